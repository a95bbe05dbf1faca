package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	// Load reads a ".env" file from the working directory; ensure none of the
	// test-suite's ambient env vars leak in unexpectedly between tests.
	for _, key := range []string{
		"GITHUB_APP_ID", "JOB_DEADLINE_HARD",
		"JOB_DEADLINE_SOFT", "LLM_PROVIDER", "GEMINI_API_KEY",
	} {
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 2, cfg.Worker.Count)
	assert.Equal(t, "ollama", cfg.Model.Provider)
	assert.Equal(t, 1000, cfg.Scanner.MaxFiles)
	assert.Equal(t, 20, cfg.Analyzer.MaxFiles)
	assert.Contains(t, cfg.Scanner.IgnoredNames, "node_modules")
	assert.False(t, cfg.ArtifactStore.Enabled)
}

func TestLoad_RejectsSoftDeadlineAboveHard(t *testing.T) {
	resetViper(t)
	t.Setenv("JOB_DEADLINE_HARD", "10m")
	t.Setenv("JOB_DEADLINE_SOFT", "20m")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsUnsupportedProvider(t *testing.T) {
	resetViper(t)
	t.Setenv("LLM_PROVIDER", "davinci")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RequiresGeminiAPIKey(t *testing.T) {
	resetViper(t)
	t.Setenv("LLM_PROVIDER", "gemini")

	_, err := Load()
	require.Error(t, err)
}
