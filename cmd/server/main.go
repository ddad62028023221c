package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/puzzlepop/puzzle-server-go/internal/config"
	"github.com/puzzlepop/puzzle-server-go/internal/game"
	"github.com/puzzlepop/puzzle-server-go/internal/puzzle"
	"github.com/puzzlepop/puzzle-server-go/internal/repository"
	"github.com/puzzlepop/puzzle-server-go/internal/scheduler"
	"github.com/puzzlepop/puzzle-server-go/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting puzzle server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Record sink: PostgreSQL when configured, log-only otherwise.
	var records scheduler.RecordSink
	if cfg.Database.DSN != "" {
		pool, err := repository.NewPool(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		repo, err := repository.NewRecordRepository(ctx, pool, logger)
		if err != nil {
			logger.Fatal("failed to initialize record repository", zap.Error(err))
		}
		records = repo
		logger.Info("record repository initialized",
			zap.Int32("max_conns", cfg.Database.MaxConns),
		)
	} else {
		records = repository.NewLogSink(logger)
		logger.Info("no database configured, match records are log-only")
	}

	manager := game.NewManager(cfg.Game.GraceWindow, logger)
	logger.Info("room registry initialized",
		zap.Duration("grace_window", cfg.Game.GraceWindow),
	)

	hub := server.NewHub(logger)

	boardCfg := game.BoardConfig{
		Picture: puzzle.Picture{
			Width:   cfg.Game.PictureWidth,
			Length:  cfg.Game.PictureLength,
			Encoded: cfg.Game.PictureEncoded,
		},
		WidthCount:  cfg.Game.BoardWidthCount,
		LengthCount: cfg.Game.BoardLengthCount,
	}
	router := server.NewRouter(manager, hub, boardCfg, logger)
	hub.SetHandler(router)

	sched := scheduler.New(manager, hub, records, scheduler.Config{
		BattleDuration:  cfg.Game.BattleDuration,
		DropInterval:    cfg.Game.DropInterval,
		DropProbability: cfg.Game.DropProbability,
	}, logger)
	go sched.Run(ctx)
	logger.Info("scheduler started",
		zap.Duration("battle_duration", cfg.Game.BattleDuration),
		zap.Duration("drop_interval", cfg.Game.DropInterval),
		zap.Int("drop_probability", cfg.Game.DropProbability),
	)

	controller := server.NewRoomController(manager, hub, logger)
	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: controller.Routes(),
	}

	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.Address))
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(serveErr))
		}
	}()

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}

	logger.Info("puzzle server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
