// Package worker implements the Worker Runtime (C4): a fixed pool of slots
// that reserve WorkItems from the Task Broker, run the Pipeline against a
// deadline, and write the terminal Job status back to the Job Store.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/sevigo/docwarden/internal/config"
	"github.com/sevigo/docwarden/internal/core"
)

// WorkspaceFactory prepares and tears down the local clone directory for a
// job. It is injected so the Fetch stage and the runtime agree on layout.
type WorkspaceFactory interface {
	New(jobID string) (path string, cleanup func(), err error)
}

// Runtime is the Worker Runtime (C4).
type Runtime struct {
	store     core.JobStore
	broker    core.TaskBroker
	pipeline  core.Pipeline
	workspace WorkspaceFactory
	cfg       config.WorkerConfig
	log       *slog.Logger

	poisonPillThreshold int
	reserveWait         time.Duration

	wg sync.WaitGroup
}

// New constructs a Worker Runtime. reserveWait bounds how long each slot
// blocks in Reserve before looping to check for shutdown.
func New(store core.JobStore, broker core.TaskBroker, pipeline core.Pipeline, workspace WorkspaceFactory, cfg config.WorkerConfig, poisonPillThreshold int, log *slog.Logger) *Runtime {
	return &Runtime{
		store:               store,
		broker:              broker,
		pipeline:            pipeline,
		workspace:           workspace,
		cfg:                 cfg,
		poisonPillThreshold: poisonPillThreshold,
		reserveWait:         5 * time.Second,
		log:                 log,
	}
}

// Run starts cfg.Count worker slots and blocks until ctx is cancelled, then
// waits for in-flight jobs to reach a stage boundary and stop.
func (r *Runtime) Run(ctx context.Context) {
	count := r.cfg.Count
	if count <= 0 {
		count = 1
	}

	for i := 0; i < count; i++ {
		r.wg.Add(1)
		go r.loop(ctx, i)
	}
	r.wg.Wait()
}

func (r *Runtime) loop(ctx context.Context, slot int) {
	defer r.wg.Done()
	r.log.Info("worker slot started", "slot", slot)

	for {
		select {
		case <-ctx.Done():
			r.log.Info("worker slot stopping", "slot", slot)
			return
		default:
		}

		res, err := r.broker.Reserve(ctx, r.reserveWait)
		if err != nil {
			if err == core.ErrQueueEmpty {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			r.log.Error("reserve failed", "slot", slot, "error", err)
			continue
		}

		r.process(ctx, slot, res)
	}
}

func (r *Runtime) process(ctx context.Context, slot int, res core.Reservation) {
	logger := r.log.With("slot", slot, "job_id", res.Item.JobID)

	job, err := r.store.Get(ctx, res.Item.JobID)
	if err != nil {
		if err == core.ErrNotFound {
			logger.Warn("reserved job no longer exists; dropping")
			_ = r.broker.Ack(ctx, res)
			return
		}
		logger.Error("load job failed", "error", err)
		_ = r.broker.Nack(ctx, res, true)
		return
	}

	switch job.Status {
	case core.StatusProcessing:
		r.recoverCrashedJob(ctx, logger, job, res)
		return
	case core.StatusPending:
		// proceed below
	default:
		logger.Info("job already terminal; dropping redelivered item", "status", job.Status)
		_ = r.broker.Ack(ctx, res)
		return
	}

	job, err = r.store.SetStatus(ctx, job.ID, core.StatusProcessing, core.StatusUpdate{})
	if err != nil {
		if err == core.ErrIllegalTransition {
			logger.Info("lost race to transition job to processing; dropping")
			_ = r.broker.Ack(ctx, res)
			return
		}
		logger.Error("transition to processing failed", "error", err)
		_ = r.broker.Nack(ctx, res, true)
		return
	}

	r.runPipeline(ctx, logger, job, res)
}

// recoverCrashedJob implements step 8 of §4.4: a redelivered WorkItem whose
// Job is still `processing` means the original worker was lost. Past the
// poison-pill threshold the Job is failed outright; otherwise it is reset to
// `pending` and returned to the queue for a fresh attempt.
func (r *Runtime) recoverCrashedJob(ctx context.Context, logger *slog.Logger, job *core.Job, res core.Reservation) {
	if res.DeliveryCount >= r.poisonPillThreshold {
		logger.Warn("job exceeded redelivery threshold; failing as worker-crash", "delivery_count", res.DeliveryCount)
		errMsg := string(core.KindWorkerCrash)
		if _, err := r.store.SetStatus(ctx, job.ID, core.StatusFailed, core.StatusUpdate{Error: &errMsg}); err != nil {
			logger.Error("failed to mark crashed job failed", "error", err)
		}
		_ = r.broker.Ack(ctx, res)
		return
	}

	logger.Info("recovering job left processing by a lost worker", "delivery_count", res.DeliveryCount)
	if _, err := r.store.SetStatus(ctx, job.ID, core.StatusPending, core.StatusUpdate{}); err != nil {
		logger.Error("failed to reset crashed job to pending", "error", err)
	}
	_ = r.broker.Nack(ctx, res, true)
}

func (r *Runtime) runPipeline(ctx context.Context, logger *slog.Logger, job *core.Job, res core.Reservation) {
	workspacePath, cleanup, err := r.workspace.New(job.ID.String())
	if err != nil {
		logger.Error("workspace setup failed", "error", err)
		r.fail(ctx, logger, job, res, core.KindIOError, err.Error(), true)
		return
	}
	defer cleanup()

	state := &core.RunState{
		JobID:         job.ID,
		Source:        job.Source,
		Variant:       job.Variant,
		Credential:    res.Item.Credential,
		WorkspacePath: workspacePath,
	}

	hardCtx, hardCancel := context.WithTimeout(ctx, r.cfg.HardDeadline)
	defer hardCancel()

	softTimer := time.AfterFunc(r.cfg.SoftDeadline, state.Cancel)
	defer softTimer.Stop()

	done := make(chan *core.StageError, 1)
	go func() {
		done <- r.pipeline.Run(hardCtx, state)
	}()

	select {
	case stageErr := <-done:
		r.finalize(ctx, logger, job, res, state, stageErr)
	case <-hardCtx.Done():
		if ctx.Err() != nil {
			// Worker shutdown rather than this job's deadline: the pipeline
			// observes the cancelled context at its next stage boundary, so
			// wait for it to stop there and finalize as usual.
			r.finalize(ctx, logger, job, res, state, <-done)
			return
		}
		logger.Warn("hard deadline exceeded; aborting pipeline", "job_id", job.ID)
		cleanup()
		r.fail(ctx, logger, job, res, core.KindDeadlineExceeded, "hard deadline exceeded", false)
	}
}

func (r *Runtime) finalize(ctx context.Context, logger *slog.Logger, job *core.Job, res core.Reservation, state *core.RunState, stageErr *core.StageError) {
	if stageErr == nil {
		promptTokens := state.PromptTokens
		completionTokens := state.CompletionTokens
		update := core.StatusUpdate{
			ArtifactURL:      nonEmptyPtr(state.PublishedURL),
			PullRequestURL:   nonEmptyPtr(state.PullRequestURL),
			BundleURL:        nonEmptyPtr(state.BundleURL),
			PromptTokens:     &promptTokens,
			CompletionTokens: &completionTokens,
		}
		if _, err := r.store.SetStatus(ctx, job.ID, core.StatusCompleted, update); err != nil {
			logger.Error("failed to mark job completed", "error", err)
		}
		_ = r.broker.Ack(ctx, res)
		return
	}

	if !stageErr.Kind.Terminal() {
		// model-unavailable, model-rate-limited, and the README
		// publish-failed case: the stage tool already exhausted its own
		// retry budget (generator backoff, gateway local fallback). Leave
		// the Job `processing` and let the broker redeliver; a fresh attempt
		// re-runs the whole pipeline. The broker drops rather than
		// redelivers an item whose delivery count has reached the
		// poison-pill threshold, so on that delivery the Job is failed here
		// with the stage's own kind.
		if res.DeliveryCount >= r.poisonPillThreshold {
			logger.Warn("non-terminal stage failure on final delivery; failing job", "kind", stageErr.Kind, "delivery_count", res.DeliveryCount)
			r.fail(ctx, logger, job, res, stageErr.Kind, stageErr.Detail, false)
			return
		}
		logger.Warn("non-terminal stage failure; returning job for retry", "kind", stageErr.Kind, "detail", stageErr.Detail)
		_ = r.broker.Nack(ctx, res, true)
		return
	}
	r.fail(ctx, logger, job, res, stageErr.Kind, stageErr.Detail, false)
}

func (r *Runtime) fail(ctx context.Context, logger *slog.Logger, job *core.Job, res core.Reservation, kind core.Kind, detail string, retryable bool) {
	msg := string(kind)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", kind, detail)
	}
	if _, err := r.store.SetStatus(ctx, job.ID, core.StatusFailed, core.StatusUpdate{Error: &msg}); err != nil {
		logger.Error("failed to mark job failed", "error", err)
	}
	_ = r.broker.Nack(ctx, res, retryable)
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// DefaultWorkspaceFactory creates workspaces under the OS temp directory.
type DefaultWorkspaceFactory struct {
	Root string
}

func (f DefaultWorkspaceFactory) New(jobID string) (string, func(), error) {
	root := f.Root
	if root == "" {
		root = os.TempDir()
	}
	dir, err := os.MkdirTemp(root, "docwarden-"+jobID+"-")
	if err != nil {
		return "", func() {}, fmt.Errorf("create workspace: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}
