package submit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sevigo/docwarden/internal/core"
)

// Result carries the created or pre-existing Job along with whether the
// request matched an already-active Job for the same locator.
type Result struct {
	Job     *core.Job
	Existed bool
}

// Submitter implements C3: it normalizes the locator, delegates the
// de-duplicating insert to the Job Store, and enqueues a WorkItem for a
// newly created Job. If enqueue fails, the Job is left pending; the
// worker-side reaper is responsible for eventually failing it with
// enqueue-timeout rather than the Submitter retrying synchronously.
type Submitter struct {
	store  core.JobStore
	broker core.TaskBroker
	log    *slog.Logger
}

// New constructs a Submitter.
func New(store core.JobStore, broker core.TaskBroker, log *slog.Logger) *Submitter {
	return &Submitter{store: store, broker: broker, log: log}
}

// Submit implements the four-step operation of §4.3: normalize, create
// (which itself performs the de-duplicating lookup), and enqueue only when
// a new Job was created.
func (s *Submitter) Submit(ctx context.Context, rawLocator string, variant core.Variant, credential string, callerID *string) (Result, error) {
	if !variant.Valid() {
		return Result{}, core.NewStageError("", core.KindInvalidSource, fmt.Sprintf("unknown variant %q", variant), nil)
	}

	locator, err := NormalizeLocator(rawLocator)
	if err != nil {
		return Result{}, core.NewStageError("", core.KindInvalidSource, err.Error(), err)
	}

	created, err := s.store.Create(ctx, locator, variant, callerID)
	if err != nil {
		return Result{}, fmt.Errorf("create job: %w", err)
	}
	if created.Existed {
		return Result{Job: created.Job, Existed: true}, nil
	}

	item := core.WorkItem{JobID: created.Job.ID, Credential: credential, Variant: variant}
	if err := s.broker.Enqueue(ctx, item); err != nil {
		s.log.Error("enqueue failed after job creation; leaving job pending for reaper", "job_id", created.Job.ID, "error", err)
		return Result{Job: created.Job, Existed: false}, nil
	}

	return Result{Job: created.Job, Existed: false}, nil
}
