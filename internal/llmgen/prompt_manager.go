package llmgen

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed prompts/*.prompt
var promptFiles embed.FS

// PromptKey names an embedded prompt template.
type PromptKey string

const (
	ReadmePrompt  PromptKey = "readme"
	CommentPrompt PromptKey = "comment"
)

// PromptManager renders the fixed set of generation prompts from templates
// embedded in the binary, in the teacher's prompt_manager.go idiom.
type PromptManager struct {
	templates map[PromptKey]*template.Template
}

// NewPromptManager parses every embedded `.prompt` file into its named
// template.
func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{templates: make(map[PromptKey]*template.Template)}

	for _, key := range []PromptKey{ReadmePrompt, CommentPrompt} {
		content, err := promptFiles.ReadFile(fmt.Sprintf("prompts/%s.prompt", key))
		if err != nil {
			return nil, fmt.Errorf("read embedded prompt %s: %w", key, err)
		}
		tmpl, err := template.New(string(key)).Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse embedded prompt %s: %w", key, err)
		}
		pm.templates[key] = tmpl
	}

	return pm, nil
}

// Render executes the named template against data.
func (pm *PromptManager) Render(key PromptKey, data any) (string, error) {
	tmpl, ok := pm.templates[key]
	if !ok {
		return "", fmt.Errorf("no prompt registered for key %q", key)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", key, err)
	}
	return buf.String(), nil
}
