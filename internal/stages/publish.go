package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sevigo/docwarden/internal/artifact"
	"github.com/sevigo/docwarden/internal/config"
	"github.com/sevigo/docwarden/internal/core"
	"github.com/sevigo/docwarden/internal/ghpr"
	"github.com/sevigo/docwarden/internal/llmgen"
)

const commentCandidateCap = 10

// commentBundle is the JSON fallback shape uploaded through the Artifact
// Store Gateway when a docs-plus-comments job cannot open a pull request
// (no credential, no App installation, or the GitHub API rejects it).
type commentBundle struct {
	Repository string            `json:"repository"`
	Revision   string            `json:"revision"`
	Files      map[string]string `json:"files"`
}

// NewPublish returns the S5 Publish stage tool: it always writes the
// generated README through the Artifact Store Gateway, and for the
// docs-plus-comments variant additionally generates per-file commented
// source and either opens a pull request or, failing that, publishes a
// JSON bundle through the same gateway.
func NewPublish(gw *artifact.Gateway, gen *llmgen.Generator, ghCfg config.GitHubConfig, log *slog.Logger) core.StageFunc {
	return func(ctx context.Context, state *core.RunState) *core.StageError {
		readmeKey := fmt.Sprintf("docs/%s/README.md", state.JobID)
		url, err := gw.Put(ctx, readmeKey, []byte(state.GeneratedText), "text/markdown")
		if err != nil {
			return core.NewStageError(core.StagePublish, core.KindPublishFailed, err.Error(), err)
		}
		state.PublishedURL = url

		if state.Variant != core.VariantDocsComments {
			return nil
		}

		return publishComments(ctx, state, gw, gen, ghCfg, log)
	}
}

func publishComments(ctx context.Context, state *core.RunState, gw *artifact.Gateway, gen *llmgen.Generator, ghCfg config.GitHubConfig, log *slog.Logger) *core.StageError {
	candidates := selectCandidates(state.Files, commentCandidateCap)

	files := make([]ghpr.File, 0, len(candidates))
	for _, f := range candidates {
		if state.Cancelled(ctx) {
			return core.NewStageError(core.StagePublish, core.KindTimedOut, "cancelled during publish", nil)
		}

		content, err := os.ReadFile(filepath.Join(state.WorkspacePath, f.Path))
		if err != nil {
			log.Warn("skipping unreadable file for commenting", "path", f.Path, "error", err)
			continue
		}

		commented, _, _, err := gen.GenerateComment(ctx, f.Path, languageForExt(filepath.Ext(f.Path)), string(content))
		if err != nil {
			log.Warn("commenting failed for file, using original content", "path", f.Path, "error", err)
			commented = string(content)
		}
		files = append(files, ghpr.File{Path: f.Path, Content: commented})
	}

	prURL, prErr := tryOpenPullRequest(ctx, state, ghCfg, files, log)
	if prErr == nil {
		state.PullRequestURL = prURL
		return nil
	}
	log.Warn("pull request path unavailable, falling back to bundle publish", "job_id", state.JobID, "error", prErr)

	bundle := commentBundle{Repository: state.Source, Revision: state.Fetch.Revision, Files: map[string]string{}}
	for _, f := range files {
		bundle.Files[f.Path] = f.Content
	}
	payload, err := json.Marshal(bundle)
	if err != nil {
		return core.NewStageError(core.StagePublish, core.KindBundlePublishFailed, err.Error(), err)
	}

	bundleKey := fmt.Sprintf("docs/%s/comments.json", state.JobID)
	bundleURL, err := gw.Put(ctx, bundleKey, payload, "application/json")
	if err != nil {
		return core.NewStageError(core.StagePublish, core.KindBundlePublishFailed, err.Error(), err)
	}
	state.BundleURL = bundleURL
	return nil
}

func tryOpenPullRequest(ctx context.Context, state *core.RunState, ghCfg config.GitHubConfig, files []ghpr.File, log *slog.Logger) (string, error) {
	client, err := ghpr.New(ctx, ghCfg, state.Credential, state.Source, log)
	if err != nil {
		return "", err
	}

	branch := ghpr.BranchName(state.JobID.String())
	message := fmt.Sprintf("docwarden: add generated comments (%s)", state.Fetch.Revision)
	title := "docwarden: generated source comments"
	body := "Automatically generated by docwarden. Review before merging."

	return client.OpenPullRequest(ctx, state.Fetch.Branch, branch, message, title, body, files)
}

func languageForExt(ext string) string {
	switch ext {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js", ".jsx":
		return "javascript"
	case ".ts", ".tsx":
		return "typescript"
	case ".java":
		return "java"
	default:
		return "text"
	}
}
