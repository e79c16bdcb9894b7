package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shinyyama/marketchat/internal/backend"
	"github.com/shinyyama/marketchat/internal/config"
	"github.com/shinyyama/marketchat/internal/logging"
	"github.com/shinyyama/marketchat/internal/server"
	"go.uber.org/zap"
)

// Set with -ldflags at build time.
var (
	gitSHA    = "dev"
	buildTime = ""
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn("store close", zap.Error(err))
		}
	}()

	srv := server.New(cfg, b.Store, b.Verifier, logger, server.BuildInfo{SHA: gitSHA, Time: buildTime})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
