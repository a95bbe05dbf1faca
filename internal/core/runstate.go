package core

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sevigo/docwarden/internal/config"
)

// FileCategory classifies a scanned file for the Scan stage.
type FileCategory string

const (
	CategoryCode   FileCategory = "code"
	CategoryDocs   FileCategory = "docs"
	CategoryConfig FileCategory = "config"
	CategoryOther  FileCategory = "other"
)

// ScanNode is one entry of the hierarchical tree produced by Scan.
type ScanNode struct {
	Name     string      `json:"name"`
	Dir      bool        `json:"dir"`
	Children []*ScanNode `json:"children,omitempty"`
}

// ScannedFile is one entry of the flat file list produced by Scan.
type ScannedFile struct {
	Path     string       `json:"path"`
	Category FileCategory `json:"category"`
	Size     int64        `json:"size"`
}

// ScanStats are the aggregate counts computed by Scan.
type ScanStats struct {
	TotalFiles int
	TotalSize  int64
	ByCategory map[FileCategory]int
	Truncated  bool
}

// Symbol is a named declaration extracted by Analyze.
type Symbol struct {
	Name      string `json:"name"`
	Docstring string `json:"docstring,omitempty"`
	Line      int    `json:"line"`
}

// ClassSymbol is a class/type declaration with its methods.
type ClassSymbol struct {
	Symbol
	Methods []string `json:"methods,omitempty"`
}

// FuncSymbol is a free function declaration with its parameter names.
type FuncSymbol struct {
	Symbol
	Params []string `json:"params,omitempty"`
}

// ImportSymbol is a single import statement.
type ImportSymbol struct {
	Module string `json:"module"`
	Symbol string `json:"symbol,omitempty"`
}

// FileAnalysis is the per-file structural analysis produced by Analyze. A
// file that fails to parse yields a non-empty Err but never fails the stage.
type FileAnalysis struct {
	Path      string         `json:"path"`
	Language  string         `json:"language"`
	Classes   []ClassSymbol  `json:"classes,omitempty"`
	Functions []FuncSymbol   `json:"functions,omitempty"`
	Imports   []ImportSymbol `json:"imports,omitempty"`
	// Excerpt holds a short raw-content snippet for files with no
	// registered structural extractor (see genericExtractor in
	// internal/stages/analyze.go).
	Excerpt string `json:"excerpt,omitempty"`
	Err     string `json:"error,omitempty"`
}

// FetchMeta is the repository metadata captured by the Fetch stage.
type FetchMeta struct {
	Branch        string
	Revision      string
	CommitAuthor  string
	CommitMessage string
}

// RunState is the per-execution, per-worker value accumulated by the stages
// of one pipeline invocation. It is owned by exactly one worker for the
// duration of that invocation.
type RunState struct {
	JobID      uuid.UUID
	Source     string
	Variant    Variant
	Credential string

	WorkspacePath string
	Fetch         FetchMeta

	// RepoOverrides is the `.docwarden.yml` override Fetch loaded from the
	// root of the cloned workspace, if the repository carries one. nil means
	// no override file was found and the process-wide Scanner/Analyzer
	// config applies unmodified.
	RepoOverrides *config.RepoOverrides

	Tree  *ScanNode
	Files []ScannedFile
	Stats ScanStats

	Analysis []FileAnalysis

	GeneratedText    string
	PromptTokens     int
	CompletionTokens int

	PublishedURL   string
	PullRequestURL string
	BundleURL      string

	Stage string

	cancelled atomic.Bool
}

// Cancel marks the RunState as cooperatively cancelled. Stages observe this
// at their boundaries and must stop advancing once it is set.
func (r *RunState) Cancel() { r.cancelled.Store(true) }

// Cancelled reports whether Cancel has been called or ctx has been done.
func (r *RunState) Cancelled(ctx context.Context) bool {
	if r.cancelled.Load() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// EnterStage records the stage a RunState is about to execute, for
// observability. It never fails.
func (r *RunState) EnterStage(name string) {
	r.Stage = name
}

// Event is a lightweight structured record of pipeline progress, logged via
// slog rather than persisted, per the spec's error-handling policy that
// verbose diagnostics stay in logs keyed by job id.
type Event struct {
	JobID uuid.UUID
	Stage Stage
	At    time.Time
}

// LogValue renders an Event as a single structured slog group, so every
// caller that logs one produces the same job_id/stage/at shape instead of
// each hand-rolling its own attribute list.
func (e Event) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("job_id", e.JobID.String()),
		slog.String("stage", string(e.Stage)),
		slog.Time("at", e.At),
	)
}

// Stage names the fixed pipeline stages, in execution order.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageScan     Stage = "scan"
	StageAnalyze  Stage = "analyze"
	StageGenerate Stage = "generate"
	StagePublish  Stage = "publish"
	StageCleanup  Stage = "cleanup"
)
