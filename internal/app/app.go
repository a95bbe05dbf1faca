// Package app wires the shared components of the job orchestration engine
// -- Job Store, Task Broker, Pipeline, Worker Runtime, and the HTTP API --
// for the two processes that use them: cmd/server and cmd/worker.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/docwarden/internal/artifact"
	"github.com/sevigo/docwarden/internal/broker"
	"github.com/sevigo/docwarden/internal/config"
	"github.com/sevigo/docwarden/internal/core"
	"github.com/sevigo/docwarden/internal/db"
	"github.com/sevigo/docwarden/internal/gitutil"
	"github.com/sevigo/docwarden/internal/llmgen"
	"github.com/sevigo/docwarden/internal/pipeline"
	"github.com/sevigo/docwarden/internal/server"
	"github.com/sevigo/docwarden/internal/stages"
	"github.com/sevigo/docwarden/internal/store"
	"github.com/sevigo/docwarden/internal/submit"
	"github.com/sevigo/docwarden/internal/worker"
)

// shared holds the components common to both processes: the Job Store and
// Task Broker, selected between their Postgres/Redis and in-memory
// implementations based on whether a DSN/address is configured.
type shared struct {
	store  core.JobStore
	broker core.TaskBroker
	closers []func() error
}

func newShared(cfg *config.Config, log *slog.Logger) (*shared, error) {
	s := &shared{}

	if cfg.DB.DSN != "" {
		dbConn, closeDB, err := db.NewDatabase(cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		s.store = store.NewPostgres(dbConn.DB)
		s.closers = append(s.closers, func() error { closeDB(); return nil })
	} else {
		log.Warn("db.dsn not set; using in-memory job store")
		s.store = store.NewMemory()
	}

	if cfg.Broker.RedisAddr != "" {
		redisBroker, err := broker.NewRedis(cfg.Broker.RedisAddr, cfg.Broker.VisibilityTimeout, cfg.Broker.PoisonPillThreshold)
		if err != nil {
			return nil, fmt.Errorf("connect broker: %w", err)
		}
		s.broker = redisBroker
		s.closers = append(s.closers, redisBroker.Close)
	} else {
		log.Warn("broker.redis_addr not set; using in-memory task broker")
		s.broker = broker.NewMemory(cfg.Broker.VisibilityTimeout, cfg.Broker.PoisonPillThreshold)
	}

	return s, nil
}

func (s *shared) Close() {
	for _, closer := range s.closers {
		_ = closer()
	}
}

// ServerApp runs the inbound HTTP API (C10) over the shared Job Store and
// Task Broker.
type ServerApp struct {
	shared *shared
	http   *server.Server
	log    *slog.Logger
}

// NewServerApp wires cmd/server's dependencies.
func NewServerApp(_ context.Context, cfg *config.Config, log *slog.Logger) (*ServerApp, error) {
	sh, err := newShared(cfg, log)
	if err != nil {
		return nil, err
	}

	submitter := submit.New(sh.store, sh.broker, log)
	httpServer := server.NewServer(cfg.Server, sh.store, submitter, log)

	return &ServerApp{shared: sh, http: httpServer, log: log}, nil
}

// Start runs the HTTP server; it blocks until the server stops.
func (a *ServerApp) Start() error { return a.http.Start() }

// Stop shuts the HTTP server down and releases shared resources.
func (a *ServerApp) Stop() error {
	err := a.http.Stop()
	a.shared.Close()
	return err
}

// WorkerApp runs the Worker Runtime (C4) over the shared Job Store and Task
// Broker.
type WorkerApp struct {
	shared  *shared
	runtime *worker.Runtime
	reaper  *worker.Reaper
}

// NewWorkerApp wires cmd/worker's dependencies: the git client, language
// model, artifact gateway, and the six stage tools that make up the
// Pipeline, matching the teacher's constructor-injection style throughout.
func NewWorkerApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*WorkerApp, error) {
	sh, err := newShared(cfg, log)
	if err != nil {
		return nil, err
	}

	gitClient := gitutil.NewClient(log)

	model, err := llmgen.NewModel(ctx, cfg.Model, log)
	if err != nil {
		return nil, fmt.Errorf("create language model: %w", err)
	}
	prompts, err := llmgen.NewPromptManager()
	if err != nil {
		return nil, fmt.Errorf("load prompt templates: %w", err)
	}
	generator := llmgen.NewGenerator(model, prompts, cfg.Model)

	gateway, err := artifact.New(ctx, cfg.ArtifactStore, log)
	if err != nil {
		return nil, fmt.Errorf("create artifact gateway: %w", err)
	}

	pipe := pipeline.New(log,
		stages.NewFetch(gitClient, log),
		stages.NewScan(cfg.Scanner),
		stages.NewAnalyze(cfg.Analyzer),
		stages.NewGenerate(generator, cfg.Generator.ReadmeBudgetChars),
		stages.NewPublish(gateway, generator, cfg.GitHub, log),
		stages.NewCleanup(log),
	)

	workspace := worker.DefaultWorkspaceFactory{}
	runtime := worker.New(sh.store, sh.broker, pipe, workspace, cfg.Worker, cfg.Broker.PoisonPillThreshold, log)
	reaper := worker.NewReaper(sh.store, cfg.Reaper, log)

	return &WorkerApp{shared: sh, runtime: runtime, reaper: reaper}, nil
}

// Run starts the worker pool and the stale-pending-job reaper, and blocks
// until ctx is cancelled.
func (a *WorkerApp) Run(ctx context.Context) {
	go a.reaper.Run(ctx)
	a.runtime.Run(ctx)
}

// Stop releases shared resources. Call after Run returns.
func (a *WorkerApp) Stop() {
	a.shared.Close()
}
