package stages

import (
	"context"
	"log/slog"
	"os"

	"github.com/sevigo/docwarden/internal/core"
)

// NewCleanup returns the S6 Cleanup stage tool: it always removes the
// workspace directory and never fails the pipeline, matching the
// Pipeline's guarantee that Cleanup runs on a detached context regardless
// of how the earlier stages ended.
func NewCleanup(log *slog.Logger) core.StageFunc {
	return func(_ context.Context, state *core.RunState) *core.StageError {
		root := state.WorkspacePath
		if root == "" {
			return nil
		}
		if err := os.RemoveAll(root); err != nil {
			log.Warn("cleanup failed to remove workspace", "job_id", state.JobID, "path", root, "error", err)
		}
		return nil
	}
}
