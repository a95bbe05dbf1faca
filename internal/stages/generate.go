package stages

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/sevigo/docwarden/internal/core"
	"github.com/sevigo/docwarden/internal/llmgen"
)

// genTimeout is T_gen: the per-stage deadline for the model call, separate
// from and shorter than the job's overall hard deadline.
const genTimeout = 10 * time.Minute

// defaultReadmeExcerptLen is used when the operator leaves
// GENERATOR_README_BUDGET_CHARS unset or non-positive.
const defaultReadmeExcerptLen = 3000

var readmeNames = []string{"README.md", "README", "readme.md", "Readme.md"}

// NewGenerate returns the S4 Generate stage tool: it renders the readme
// prompt from the accumulated RunState and calls the configured model,
// storing the result and its token counts on the RunState for S5 to
// publish. excerptLen caps how much of an existing README is folded into
// the prompt, from config.GeneratorConfig.ReadmeBudgetChars.
func NewGenerate(gen *llmgen.Generator, excerptLen int) core.StageFunc {
	if excerptLen <= 0 {
		excerptLen = defaultReadmeExcerptLen
	}
	return func(ctx context.Context, state *core.RunState) *core.StageError {
		if state.Cancelled(ctx) {
			return core.NewStageError(core.StageGenerate, core.KindTimedOut, "cancelled before generate", nil)
		}

		ctx, cancel := context.WithTimeout(ctx, genTimeout)
		defer cancel()

		excerpt := readExistingReadme(state.WorkspacePath, excerptLen)

		text, promptTokens, completionTokens, err := gen.GenerateReadme(ctx, state, excerpt)
		if err != nil {
			return classifyGenerateError(err)
		}

		state.GeneratedText = text
		state.PromptTokens = promptTokens
		state.CompletionTokens = completionTokens
		return nil
	}
}

func readExistingReadme(workspacePath string, excerptLen int) string {
	for _, name := range readmeNames {
		content, err := os.ReadFile(filepath.Join(workspacePath, name))
		if err != nil {
			continue
		}
		if len(content) > excerptLen {
			return string(content[:excerptLen])
		}
		return string(content)
	}
	return ""
}

func classifyGenerateError(err error) *core.StageError {
	var transient *llmgen.TransientError
	if errors.As(err, &transient) {
		return core.NewStageError(core.StageGenerate, transient.Kind, transient.Error(), transient.Err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return core.NewStageError(core.StageGenerate, core.KindTimedOut, "cancelled during generate", err)
	}
	return core.NewStageError(core.StageGenerate, core.KindModelRejected, err.Error(), err)
}
