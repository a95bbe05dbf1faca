package core

import "fmt"

// Kind is a taxonomy label for a stage or runtime failure. It is the value
// stored on a failed Job's short, human-readable error field; verbose
// diagnostics belong in logs, never on the Job record.
type Kind string

const (
	KindInvalidSource     Kind = "invalid-source"
	KindDuplicateJob      Kind = "duplicate-job"
	KindRepoNotFound      Kind = "repo-not-found"
	KindAuthDenied        Kind = "auth-denied"
	KindNetwork           Kind = "network"
	KindFetchTimeout      Kind = "fetch-timeout"
	KindIOError           Kind = "io-error"
	KindScanTruncated     Kind = "scan-truncated"
	KindNoAnalyzableFiles Kind = "no-analyzable-files"
	KindModelUnavailable  Kind = "model-unavailable"
	KindModelRateLimited  Kind = "model-rate-limited"
	KindModelRejected     Kind = "model-rejected"
	KindEmptyOutput       Kind = "empty-output"
	KindPublishFailed     Kind = "publish-failed"
	KindBundlePublishFailed Kind = "bundle-publish-failed"
	KindTimedOut          Kind = "timed-out"
	KindDeadlineExceeded  Kind = "deadline-exceeded"
	KindWorkerCrash       Kind = "worker-crash"
	KindEnqueueTimeout    Kind = "enqueue-timeout"
)

// Terminal reports whether a Kind always ends the Job (true) or may instead
// be resolved by a broker-driven retry (false). KindPublishFailed covers a
// README-publish failure, which retries the whole pipeline; a PR-creation
// failure goes straight to the bundle fallback, and KindBundlePublishFailed
// is reserved for the docs-plus-comments case where that bundle upload also
// fails, leaving no further fallback to retry into.
func (k Kind) Terminal() bool {
	switch k {
	case KindModelUnavailable, KindModelRateLimited, KindDuplicateJob, KindPublishFailed:
		return false
	default:
		return true
	}
}

// StageError is the typed error surfaced by a Stage Tool to the Pipeline. It
// carries a Kind (for the taxonomy) and a Detail (for logs only).
type StageError struct {
	Stage  Stage
	Kind   Kind
	Detail string
	Err    error
}

func (e *StageError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError constructs a StageError, wrapping err for %w-style chains
// while keeping the Job-visible message to the Kind plus minimal detail.
func NewStageError(stage Stage, kind Kind, detail string, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Detail: detail, Err: err}
}
