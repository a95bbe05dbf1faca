package stages

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/sevigo/docwarden/internal/config"
	"github.com/sevigo/docwarden/internal/core"
)

// Extractor is the common shape of a per-language structural analyzer, per
// the registry design of Design Note §9: callers never inspect the
// concrete implementation, only the FileAnalysis it returns.
type Extractor interface {
	Extract(path string, content []byte) (core.FileAnalysis, error)
}

var extractors = map[string]Extractor{
	".go":   goExtractor{},
	".py":   pythonExtractor{},
	".js":   braceExtractor{language: "javascript"},
	".jsx":  braceExtractor{language: "javascript"},
	".ts":   braceExtractor{language: "typescript"},
	".tsx":  braceExtractor{language: "typescript"},
	".java": braceExtractor{language: "java"},
}

var genericExtractorInst = genericExtractor{}

func extractorFor(ext string) Extractor {
	if e, ok := extractors[ext]; ok {
		return e
	}
	return genericExtractorInst
}

// NewAnalyze returns the S3 Analyze stage tool. A `.docwarden.yml` override
// loaded by Fetch (state.RepoOverrides) can raise the analyzer's file cap
// for this run only.
func NewAnalyze(cfg config.AnalyzerConfig) core.StageFunc {
	return func(ctx context.Context, state *core.RunState) *core.StageError {
		_, effective := state.RepoOverrides.Apply(config.ScannerConfig{}, cfg)
		candidates := selectCandidates(state.Files, effective.MaxFiles)
		if len(candidates) == 0 {
			return core.NewStageError(core.StageAnalyze, core.KindNoAnalyzableFiles, "no code files found to analyze", nil)
		}

		analyses := make([]core.FileAnalysis, 0, len(candidates))
		for _, f := range candidates {
			if state.Cancelled(ctx) {
				return core.NewStageError(core.StageAnalyze, core.KindTimedOut, "cancelled during analyze", nil)
			}

			fullPath := filepath.Join(state.WorkspacePath, f.Path)
			content, err := os.ReadFile(fullPath)
			if err != nil {
				analyses = append(analyses, core.FileAnalysis{Path: f.Path, Err: err.Error()})
				continue
			}

			ext := strings.ToLower(filepath.Ext(f.Path))
			analysis, err := extractorFor(ext).Extract(f.Path, content)
			if err != nil {
				analysis.Path = f.Path
				analysis.Err = err.Error()
			}
			analyses = append(analyses, analysis)
		}

		state.Analysis = analyses
		return nil
	}
}

// selectCandidates implements S3's priority: root-level files first, then
// larger files, ties broken alphabetically, capped at maxFiles.
func selectCandidates(files []core.ScannedFile, maxFiles int) []core.ScannedFile {
	var code []core.ScannedFile
	for _, f := range files {
		if f.Category == core.CategoryCode {
			code = append(code, f)
		}
	}

	sort.SliceStable(code, func(i, j int) bool {
		iRoot := !strings.Contains(code[i].Path, string(filepath.Separator))
		jRoot := !strings.Contains(code[j].Path, string(filepath.Separator))
		if iRoot != jRoot {
			return iRoot
		}
		if code[i].Size != code[j].Size {
			return code[i].Size > code[j].Size
		}
		return code[i].Path < code[j].Path
	})

	if len(code) > maxFiles {
		code = code[:maxFiles]
	}
	return code
}

// genericExtractor handles any extension without a dedicated implementation:
// it records only the path and a short excerpt, never fails to parse.
type genericExtractor struct{}

const genericExcerptLen = 400

func (genericExtractor) Extract(path string, content []byte) (core.FileAnalysis, error) {
	excerpt := string(content)
	if len(excerpt) > genericExcerptLen {
		excerpt = excerpt[:genericExcerptLen]
	}
	return core.FileAnalysis{Path: path, Language: "generic", Excerpt: excerpt}, nil
}

var (
	braceClassRe = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:public\s+|private\s+|protected\s+)?(?:abstract\s+)?class\s+([A-Za-z_][A-Za-z0-9_]*)`)
	braceFuncRe  = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:public\s+|private\s+|protected\s+|static\s+)*(?:async\s+)?function\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)`)
	braceMethodRe = regexp.MustCompile(`(?m)^\s*(?:public|private|protected|static|final|synchronized)\s+[\w<>\[\], ]+\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)\s*\{`)
	braceImportRe = regexp.MustCompile(`(?m)^\s*import\s+(?:\{[^}]*\}\s+from\s+)?['"]?([\w./-]+)['"]?`)
)

// braceExtractor is the pattern-based extractor for brace-delimited
// languages other than Go. It uses line-anchored regexes rather than a real
// parser, per Design Note §9: additional languages degrade to this
// extractor rather than growing a bespoke AST for each one.
type braceExtractor struct {
	language string
}

func (e braceExtractor) Extract(path string, content []byte) (core.FileAnalysis, error) {
	text := string(content)
	lineOf := func(offset int) int {
		return strings.Count(text[:offset], "\n") + 1
	}

	analysis := core.FileAnalysis{Path: path, Language: e.language}

	for _, m := range braceClassRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		analysis.Classes = append(analysis.Classes, core.ClassSymbol{
			Symbol: core.Symbol{Name: name, Line: lineOf(m[0])},
		})
	}
	for _, m := range braceFuncRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		params := splitParams(text[m[4]:m[5]])
		analysis.Functions = append(analysis.Functions, core.FuncSymbol{
			Symbol: core.Symbol{Name: name, Line: lineOf(m[0])},
			Params: params,
		})
	}
	if e.language == "java" {
		for _, m := range braceMethodRe.FindAllStringSubmatchIndex(text, -1) {
			name := text[m[2]:m[3]]
			params := splitParams(text[m[4]:m[5]])
			analysis.Functions = append(analysis.Functions, core.FuncSymbol{
				Symbol: core.Symbol{Name: name, Line: lineOf(m[0])},
				Params: params,
			})
		}
	}
	for _, m := range braceImportRe.FindAllStringSubmatchIndex(text, -1) {
		module := text[m[2]:m[3]]
		analysis.Imports = append(analysis.Imports, core.ImportSymbol{Module: module})
	}

	return analysis, nil
}

func splitParams(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.SplitN(strings.TrimSpace(p), " ", 2)[0])
		p = strings.TrimSpace(strings.SplitN(p, ":", 2)[0])
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
