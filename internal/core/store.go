package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by JobStore lookups that find no matching Job.
var ErrNotFound = errors.New("job not found")

// ErrIllegalTransition is returned by SetStatus when the requested (from,
// to) pair is not in the allowed forward set, or the Job is already
// terminal.
var ErrIllegalTransition = errors.New("illegal job status transition")

// CreateResult distinguishes a freshly created Job from a pre-existing one
// returned because of the uniqueness rule in invariant 2.
type CreateResult struct {
	Job     *Job
	Existed bool
}

// StatusUpdate carries the optional fields a status transition may set,
// mirroring the terminal-state invariants: completed jobs get an artifact
// and/or pull-request URL, failed jobs get an error string.
type StatusUpdate struct {
	Error            *string
	ArtifactURL      *string
	PullRequestURL   *string
	BundleURL        *string
	HasWriteAccess   *bool
	PromptTokens     *int
	CompletionTokens *int
}

// PageCursor is a keyset pagination bookmark on the (created_at, id) tuple
// used to order Job listings newest-first. Passing the cursor of the last
// Job on a page returns the next page starting strictly after it; unlike a
// row offset, a keyset cursor stays correct when a newer Job is inserted at
// the head between page fetches, since it names a position relative to a
// specific row rather than a row count.
type PageCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// JobStore is the durable record of every Job and its terminal artifacts.
// Implementations must enforce invariant 2 (at most one active Job per
// normalized locator) and invariant 1 (forward-only status transitions).
type JobStore interface {
	// Create inserts a new pending Job for the given normalized locator, or
	// returns the existing active Job for that locator unchanged.
	Create(ctx context.Context, locator string, variant Variant, callerID *string) (CreateResult, error)
	Get(ctx context.Context, id uuid.UUID) (*Job, error)
	// List returns up to limit Jobs newest-first, starting strictly after
	// cursor (nil for the first page). Implementations must clamp limit to
	// at most 100.
	List(ctx context.Context, cursor *PageCursor, limit int) ([]*Job, error)
	SetStatus(ctx context.Context, id uuid.UUID, status Status, update StatusUpdate) (*Job, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ListStale returns Jobs in status whose UpdatedAt is older than
	// olderThan, the operator-driven reaper's view of Jobs that a
	// commit-but-enqueue-failure left stranded (see §4.3/§7).
	ListStale(ctx context.Context, status Status, olderThan time.Time) ([]*Job, error)
}

// MaxPageSize is the documented ceiling on List's limit parameter.
const MaxPageSize = 100
