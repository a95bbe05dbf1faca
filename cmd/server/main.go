package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sevigo/docwarden/internal/app"
	"github.com/sevigo/docwarden/internal/config"
	"github.com/sevigo/docwarden/internal/logger"
)

func main() {
	if err := run(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.NewLogger(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.NewServerApp(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("initialize server: %w", err)
	}

	log.Info("starting docwarden api server")

	go func() {
		if err := application.Start(); err != nil {
			log.Error("server error", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		log.Info("received shutdown signal")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down")
	}

	if err := application.Stop(); err != nil {
		return fmt.Errorf("stop server: %w", err)
	}
	return nil
}

// exitCodeFor maps a startup/runtime error to a process exit code: 0 for
// no error, and the sysexits-style 70 (internal software error) for any
// error.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	return 70
}
