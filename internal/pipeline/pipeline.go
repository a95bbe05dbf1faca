// Package pipeline threads a RunState through the fixed S1..S6 stage
// sequence: Fetch, Scan, Analyze, Generate, Publish, Cleanup.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/sevigo/docwarden/internal/core"
)

// namedStage pairs a Stage tag with the StageFunc that implements it, so the
// Pipeline can log and attribute errors by name without each stage function
// needing to know its own identity.
type namedStage struct {
	stage core.Stage
	fn    core.StageFunc
}

// linear is the core.Pipeline implementation: a strict, ordered sequence of
// stages sharing one RunState. The first stage to return an error
// short-circuits the remaining stages other than Cleanup, which always runs.
type linear struct {
	stages  []namedStage
	cleanup core.StageFunc
	log     *slog.Logger
}

// New builds the fixed pipeline. cleanup runs unconditionally after the
// other stages, whether or not one of them failed; it cannot itself be
// cancelled by RunState.Cancel.
func New(log *slog.Logger, fetch, scan, analyze, generate, publish, cleanup core.StageFunc) core.Pipeline {
	return &linear{
		stages: []namedStage{
			{core.StageFetch, fetch},
			{core.StageScan, scan},
			{core.StageAnalyze, analyze},
			{core.StageGenerate, generate},
			{core.StagePublish, publish},
		},
		cleanup: cleanup,
		log:     log,
	}
}

func (p *linear) Run(ctx context.Context, state *core.RunState) *core.StageError {
	var stageErr *core.StageError

	for _, ns := range p.stages {
		if state.Cancelled(ctx) {
			stageErr = core.NewStageError(ns.stage, core.KindTimedOut, "cancelled at stage boundary", nil)
			break
		}

		state.EnterStage(string(ns.stage))
		p.log.Debug("entering stage", "event", core.Event{JobID: state.JobID, Stage: ns.stage, At: time.Now()})

		if err := ns.fn(ctx, state); err != nil {
			p.log.Warn("stage failed", "job_id", state.JobID, "stage", ns.stage, "kind", err.Kind, "detail", err.Detail)
			stageErr = err
			break
		}
	}

	state.EnterStage(string(core.StageCleanup))
	p.log.Debug("entering stage", "event", core.Event{JobID: state.JobID, Stage: core.StageCleanup, At: time.Now()})
	if p.cleanup != nil {
		// Cleanup always runs and is never itself cancellable; use a
		// detached context so a cancelled or expired parent cannot cut it
		// short, since it is responsible for removing the workspace.
		if cleanupErr := p.cleanup(context.Background(), state); cleanupErr != nil {
			p.log.Error("cleanup failed", "job_id", state.JobID, "kind", cleanupErr.Kind, "detail", cleanupErr.Detail)
			if stageErr == nil {
				stageErr = cleanupErr
			}
		}
	}

	return stageErr
}
