package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sevigo/docwarden/internal/app"
	"github.com/sevigo/docwarden/internal/broker"
	"github.com/sevigo/docwarden/internal/config"
	"github.com/sevigo/docwarden/internal/logger"
)

// Exit codes per the worker's documented startup contract: 0 clean
// shutdown, 64 configuration error, 69 broker unavailable at startup, 70
// uncaught runtime fault.
const (
	exitOK               = 0
	exitConfigError      = 64
	exitBrokerUnavailable = 69
	exitRuntimeFault     = 70
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return exitConfigError
	}

	log := logger.NewLogger(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.NewWorkerApp(ctx, cfg, log)
	if err != nil {
		if errors.Is(err, broker.ErrUnavailable) {
			log.Error("task broker unavailable at startup", "error", err)
			return exitBrokerUnavailable
		}
		log.Error("failed to initialize worker", "error", err)
		return exitRuntimeFault
	}
	defer application.Stop()

	log.Info("starting docwarden worker", "workers", cfg.Worker.Count)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info("received shutdown signal")
		cancel()
	}()

	application.Run(ctx)

	log.Info("worker stopped cleanly")
	return exitOK
}
