// Package core defines the essential interfaces and data structures that form
// the backbone of the job orchestration engine. These components are designed
// to be abstract, allowing for flexible and decoupled implementations of the
// application's logic.
package core

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a Job: pending -> processing ->
// {completed, failed}, plus pending -> failed and processing -> pending
// (crash recovery). Terminal statuses have no outgoing transitions.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Variant selects which pipeline a Job runs.
type Variant string

const (
	VariantDocs         Variant = "docs"
	VariantDocsComments Variant = "docs+comments"
)

// Valid reports whether v is a recognized pipeline variant.
func (v Variant) Valid() bool {
	return v == VariantDocs || v == VariantDocsComments
}

// Job is the durable record of a single documentation request.
type Job struct {
	ID               uuid.UUID `db:"id" json:"id"`
	Source           string    `db:"source_locator" json:"source"`
	Variant          Variant   `db:"variant" json:"variant"`
	Status           Status    `db:"status" json:"status"`
	Error            *string   `db:"error" json:"error"`
	ArtifactURL      *string   `db:"artifact_url" json:"artifact_url"`
	PullRequestURL   *string   `db:"pull_request_url" json:"pull_request_url"`
	BundleURL        *string   `db:"bundle_url" json:"bundle_url,omitempty"`
	CallerID         *string   `db:"caller_id" json:"caller_id,omitempty"`
	HasWriteAccess   bool      `db:"has_write_access" json:"has_write_access"`
	PromptTokens     int       `db:"prompt_tokens" json:"prompt_tokens,omitempty"`
	CompletionTokens int       `db:"completion_tokens" json:"completion_tokens,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Active reports whether the Job currently blocks a new submission for the
// same locator, per invariant 2 of the job store contract.
func (j *Job) Active() bool {
	return j.Status == StatusPending || j.Status == StatusProcessing || j.Status == StatusCompleted
}

// Terminal reports whether the Job has reached a status from which it can
// never transition again.
func (j *Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}

// allowedTransitions enumerates the only (from, to) pairs a Job may pass
// through, per spec testable property P2. The (pending, failed) pair is
// reserved for reaper-initiated transitions (enqueue-timeout, worker-crash
// before any processing was observed). The (processing, pending) pair is
// reserved for crash recovery: a replacement worker that observes a
// redelivered WorkItem for a still-processing Job resets it to pending
// before returning the item to the queue.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusProcessing: true,
		StatusFailed:     true,
	},
	StatusProcessing: {
		StatusCompleted: true,
		StatusFailed:    true,
		StatusPending:   true,
	},
}

// CanTransition reports whether moving from `from` to `to` is a legal Job
// state transition.
func CanTransition(from, to Status) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}
