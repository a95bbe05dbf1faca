// Package llmgen wraps the goframe language-model client used by the
// Generate stage: provider selection, prompt rendering, and the model's
// own in-tool retry/backoff policy for transient errors.
package llmgen

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sevigo/goframe/llms"
	"github.com/sevigo/goframe/llms/gemini"
	"github.com/sevigo/goframe/llms/ollama"

	"github.com/sevigo/docwarden/internal/config"
)

func newOllamaHTTPClient() *http.Client {
	return &http.Client{Timeout: 5 * time.Minute}
}

// NewModel selects and constructs the configured llms.Model, mirroring the
// teacher's createLLM provider switch.
func NewModel(ctx context.Context, cfg config.ModelConfig, log *slog.Logger) (llms.Model, error) {
	switch cfg.Provider {
	case "gemini":
		log.Info("using gemini llm provider", "model", cfg.GeneratorModel)
		return gemini.New(ctx,
			gemini.WithModel(cfg.GeneratorModel),
			gemini.WithAPIKey(cfg.GeminiAPIKey),
		)
	case "ollama":
		log.Info("using ollama llm provider", "model", cfg.GeneratorModel, "host", cfg.OllamaHost)
		return ollama.New(
			ollama.WithServerURL(cfg.OllamaHost),
			ollama.WithHTTPClient(newOllamaHTTPClient()),
			ollama.WithModel(cfg.GeneratorModel),
			ollama.WithLogger(log),
		)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}
