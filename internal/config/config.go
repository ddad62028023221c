package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full server configuration, loaded from yaml with environment
// overrides under the PUZZLEPOP_ prefix.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig covers the HTTP/WebSocket listener.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// GameConfig carries every tunable the engine reads. The original deployment
// shipped with inconsistent hardcoded values for the drop interval and
// probability; both are configuration here on purpose.
type GameConfig struct {
	BattleDuration  time.Duration `mapstructure:"battle_duration"`
	DropInterval    time.Duration `mapstructure:"drop_interval"`
	DropProbability int           `mapstructure:"drop_probability"` // percent
	GraceWindow     time.Duration `mapstructure:"grace_window"`

	BoardWidthCount  int    `mapstructure:"board_width_count"`
	BoardLengthCount int    `mapstructure:"board_length_count"`
	PictureWidth     int    `mapstructure:"picture_width"`
	PictureLength    int    `mapstructure:"picture_length"`
	PictureEncoded   string `mapstructure:"picture_encoded"`
}

// DatabaseConfig configures the optional match-record store. An empty DSN
// disables persistence entirely.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// LoggingConfig selects log level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load reads the configuration file at path, applying defaults and
// environment overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("PUZZLEPOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !strings.Contains(err.Error(), "no such file") {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("game.battle_duration", 300*time.Second)
	v.SetDefault("game.drop_interval", 20*time.Second)
	v.SetDefault("game.drop_probability", 30)
	v.SetDefault("game.grace_window", 1500*time.Millisecond)
	v.SetDefault("game.board_width_count", 8)
	v.SetDefault("game.board_length_count", 6)
	v.SetDefault("game.picture_width", 64)
	v.SetDefault("game.picture_length", 48)
	v.SetDefault("game.picture_encoded", ".")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 4)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

func (c *Config) validate() error {
	if c.Game.DropProbability < 0 || c.Game.DropProbability > 100 {
		return fmt.Errorf("config: drop_probability must be 0-100, got %d", c.Game.DropProbability)
	}
	if c.Game.BattleDuration <= 0 {
		return fmt.Errorf("config: battle_duration must be positive")
	}
	if c.Game.DropInterval <= 0 {
		return fmt.Errorf("config: drop_interval must be positive")
	}
	if c.Game.BoardWidthCount < 1 || c.Game.BoardLengthCount < 1 {
		return fmt.Errorf("config: board dimensions must be positive")
	}
	return nil
}
