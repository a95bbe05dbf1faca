package core

import "context"

// StageFunc is one step of the fixed linear Pipeline. It mutates state
// in place and returns a *StageError on failure; the Pipeline short-circuits
// remaining stages (other than Cleanup) on the first error.
type StageFunc func(ctx context.Context, state *RunState) *StageError

// Pipeline runs the fixed S1..S6 sequence against a RunState.
type Pipeline interface {
	Run(ctx context.Context, state *RunState) *StageError
}
