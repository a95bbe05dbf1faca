package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/sevigo/docwarden/internal/config"
	"github.com/sevigo/docwarden/internal/core"
)

// Reaper is the operator-driven sweep of spec.md §4.3 step 4 / §7: a Job
// that was committed to the Job Store but never made it onto the Task
// Broker (Submit's Enqueue call failed after Create succeeded) sits
// `pending` forever, since nothing ever reserves it. The Reaper periodically
// scans for Jobs pending longer than cfg.StaleAfter and fails them with
// enqueue-timeout, giving the caller a terminal status to observe instead of
// an indefinitely stuck submission.
type Reaper struct {
	store core.JobStore
	cfg   config.ReaperConfig
	log   *slog.Logger
}

// NewReaper constructs a Reaper.
func NewReaper(store core.JobStore, cfg config.ReaperConfig, log *slog.Logger) *Reaper {
	return &Reaper{store: store, cfg: cfg, log: log}
}

// Run sweeps every cfg.Interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	interval := r.cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	staleAfter := r.cfg.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}

	stale, err := r.store.ListStale(ctx, core.StatusPending, time.Now().UTC().Add(-staleAfter))
	if err != nil {
		r.log.Error("reaper sweep failed to list stale jobs", "error", err)
		return
	}

	for _, job := range stale {
		msg := string(core.KindEnqueueTimeout)
		if _, err := r.store.SetStatus(ctx, job.ID, core.StatusFailed, core.StatusUpdate{Error: &msg}); err != nil {
			r.log.Error("reaper failed to fail stale job", "job_id", job.ID, "error", err)
			continue
		}
		r.log.Warn("reaper failed stale pending job", "job_id", job.ID, "pending_since", job.UpdatedAt)
	}
}
