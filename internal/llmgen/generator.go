package llmgen

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/sevigo/goframe/llms"

	"github.com/sevigo/docwarden/internal/config"
	"github.com/sevigo/docwarden/internal/core"
)

// TransientError carries the classified core.Kind of a model failure.
// Callers unwrap it to recover that Kind; only model-unavailable and
// model-rate-limited errors are retried by callWithRetry, while
// empty-output and model-rejected ones are returned at once.
type TransientError struct {
	Kind core.Kind
	Err  error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// Generator wraps an llms.Model with the retry/backoff policy Design Note
// §9 assigns to the tool rather than the Worker Runtime: up to R_model
// retries after the first attempt, with jittered exponential backoff, for
// transient errors.
type Generator struct {
	model   llms.Model
	prompts *PromptManager
	cfg     config.ModelConfig
}

// NewGenerator constructs a Generator.
func NewGenerator(model llms.Model, prompts *PromptManager, cfg config.ModelConfig) *Generator {
	return &Generator{model: model, prompts: prompts, cfg: cfg}
}

// readmeData is the template payload for the readme prompt.
type readmeData struct {
	RepoName      string
	Branch        string
	Revision      string
	Stats         core.ScanStats
	TreeText      string
	Analysis      []core.FileAnalysis
	ReadmeExcerpt string
}

// GenerateReadme renders the readme prompt from RunState and calls the
// model, applying the in-tool retry policy for transient errors.
func (g *Generator) GenerateReadme(ctx context.Context, state *core.RunState, readmeExcerpt string) (text string, promptTokens, completionTokens int, err error) {
	prompt, err := g.prompts.Render(ReadmePrompt, readmeData{
		RepoName:      repoDisplayName(state.Source),
		Branch:        state.Fetch.Branch,
		Revision:      state.Fetch.Revision,
		Stats:         state.Stats,
		TreeText:      renderTree(state.Tree, 3),
		Analysis:      state.Analysis,
		ReadmeExcerpt: readmeExcerpt,
	})
	if err != nil {
		return "", 0, 0, fmt.Errorf("render readme prompt: %w", err)
	}

	response, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		return "", 0, 0, err
	}

	response = truncateToTokenBudget(response, g.cfg.OutputTokenBudget)
	promptTokens = g.countTokens(ctx, prompt)
	completionTokens = g.countTokens(ctx, response)
	return response, promptTokens, completionTokens, nil
}

// GenerateComment produces a commented version of a single file's source
// for the docs-plus-comments variant's per-file model call.
func (g *Generator) GenerateComment(ctx context.Context, path, language, content string) (text string, promptTokens, completionTokens int, err error) {
	prompt, err := g.prompts.Render(CommentPrompt, struct {
		Path     string
		Language string
		Content  string
	}{Path: path, Language: language, Content: content})
	if err != nil {
		return "", 0, 0, fmt.Errorf("render comment prompt: %w", err)
	}

	response, err := g.callWithRetry(ctx, prompt)
	if err != nil {
		return "", 0, 0, err
	}

	promptTokens = g.countTokens(ctx, prompt)
	completionTokens = g.countTokens(ctx, response)
	return response, promptTokens, completionTokens, nil
}

// callWithRetry makes one attempt plus up to R_model retries, with
// exponential backoff and jitter, for transient provider errors, matching
// the config surface's model.retries option.
func (g *Generator) callWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	attempts := g.cfg.Retries + 1
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			jitter := time.Duration(rand.Int63n(int64(backoff) / 2 + 1))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}

		response, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt)
		if err == nil {
			if strings.TrimSpace(response) == "" {
				return "", &TransientError{Kind: core.KindEmptyOutput, Err: errors.New("model returned empty output")}
			}
			return response, nil
		}

		lastErr = err
		if !isTransientModelError(err) {
			return "", classifyModelError(err)
		}
	}

	return "", classifyModelError(lastErr)
}

func isTransientModelError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unavailable") || strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "429") || strings.Contains(msg, "503") || strings.Contains(msg, "timeout")
}

func classifyModelError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return &TransientError{Kind: core.KindModelRateLimited, Err: err}
	case strings.Contains(msg, "unavailable") || strings.Contains(msg, "503") || strings.Contains(msg, "timeout"):
		return &TransientError{Kind: core.KindModelUnavailable, Err: err}
	case strings.Contains(msg, "rejected") || strings.Contains(msg, "safety") || strings.Contains(msg, "blocked"):
		return &TransientError{Kind: core.KindModelRejected, Err: err}
	default:
		return &TransientError{Kind: core.KindModelRejected, Err: err}
	}
}

// countTokens uses the model's own reported token count when the provider
// implements llms.Tokenizer, matching the teacher's OllamaTokenizerAdapter;
// otherwise it falls back to the same character-based estimate the teacher
// uses when the provider does not support exact counting.
func (g *Generator) countTokens(ctx context.Context, text string) int {
	if t, ok := g.model.(llms.Tokenizer); ok {
		if n, err := t.CountTokens(ctx, text); err == nil {
			return n
		}
	}
	return len(text) / 3
}

func truncateToTokenBudget(text string, budgetTokens int) string {
	if budgetTokens <= 0 {
		return text
	}
	maxChars := budgetTokens * 4
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars]
}

func repoDisplayName(locator string) string {
	trimmed := strings.TrimRight(locator, "/")
	if idx := strings.LastIndexByte(trimmed, '/'); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

func renderTree(node *core.ScanNode, maxDepth int) string {
	if node == nil {
		return ""
	}
	var b strings.Builder
	var walk func(n *core.ScanNode, depth int)
	walk = func(n *core.ScanNode, depth int) {
		if depth > maxDepth {
			return
		}
		b.WriteString(strings.Repeat("  ", depth))
		if n.Dir {
			b.WriteString(n.Name + "/\n")
		} else {
			b.WriteString(n.Name + "\n")
		}
		for _, child := range n.Children {
			walk(child, depth+1)
		}
	}
	walk(node, 0)
	return b.String()
}
