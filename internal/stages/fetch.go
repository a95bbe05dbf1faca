// Package stages implements the S1..S6 Stage Tools (C6): pure functions
// over a RunState, each returning a *core.StageError on failure. None of
// them touch the Job Store or Task Broker; the Pipeline is the only place
// stage results are reconciled with persistent state.
package stages

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/sevigo/docwarden/internal/config"
	"github.com/sevigo/docwarden/internal/core"
	"github.com/sevigo/docwarden/internal/gitutil"
)

const fetchTimeout = 5 * time.Minute

// NewFetch returns the S1 Fetch stage tool, grounded on gitutil.Client's
// shallow-clone helper: a single-branch, single-commit snapshot of the
// default branch into `<workspace>/repo`. It also loads an optional
// `.docwarden.yml` override from the root of the clone, if the repository
// carries one, for the Scan and Analyze stages that follow.
func NewFetch(git *gitutil.Client, log *slog.Logger) core.StageFunc {
	return func(ctx context.Context, state *core.RunState) *core.StageError {
		ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()

		repoPath := filepath.Join(state.WorkspacePath, "repo")
		result, err := git.CloneShallow(ctx, state.Source, repoPath, state.Credential)
		if err != nil {
			return classifyFetchError(err)
		}

		state.WorkspacePath = repoPath
		state.Fetch = core.FetchMeta{
			Branch:        result.Branch,
			Revision:      result.Revision,
			CommitAuthor:  result.CommitAuthor,
			CommitMessage: result.CommitMessage,
		}

		overrides, err := config.LoadRepoOverrides(state.WorkspacePath)
		switch {
		case err == nil:
			state.RepoOverrides = overrides
		case errors.Is(err, config.ErrRepoConfigNotFound):
			// no .docwarden.yml in this repo; process defaults apply.
		default:
			log.Warn("ignoring malformed .docwarden.yml", "job_id", state.JobID, "error", err)
		}
		return nil
	}
}

// classifyFetchError maps the underlying git-CLI/network failure into the
// taxonomy kinds S1 is allowed to raise. git's own error text is the only
// signal available once the process has exited, so this is a best-effort
// substring match against the CLI's conventional phrasing.
func classifyFetchError(err error) *core.StageError {
	msg := err.Error()
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "deadline exceeded") || strings.Contains(lower, "context deadline"):
		return core.NewStageError(core.StageFetch, core.KindFetchTimeout, msg, err)
	case strings.Contains(lower, "not found") || strings.Contains(lower, "repository not found") || strings.Contains(lower, "does not exist"):
		return core.NewStageError(core.StageFetch, core.KindRepoNotFound, msg, err)
	case strings.Contains(lower, "authentication") || strings.Contains(lower, "403") || strings.Contains(lower, "permission denied") || strings.Contains(lower, "could not read username"):
		return core.NewStageError(core.StageFetch, core.KindAuthDenied, msg, err)
	default:
		return core.NewStageError(core.StageFetch, core.KindNetwork, msg, err)
	}
}
