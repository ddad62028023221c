package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 300*time.Second, cfg.Game.BattleDuration)
	assert.Equal(t, 20*time.Second, cfg.Game.DropInterval)
	assert.Equal(t, 30, cfg.Game.DropProbability)
	assert.Equal(t, 1500*time.Millisecond, cfg.Game.GraceWindow)
	assert.Equal(t, 8, cfg.Game.BoardWidthCount)
	assert.Empty(t, cfg.Database.DSN)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9999"
game:
  battle_duration: 120s
  drop_probability: 50
logging:
  level: debug
  format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, 2*time.Minute, cfg.Game.BattleDuration)
	assert.Equal(t, 50, cfg.Game.DropProbability)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched keys keep their defaults.
	assert.Equal(t, 20*time.Second, cfg.Game.DropInterval)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("game:\n  drop_probability: 150\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
