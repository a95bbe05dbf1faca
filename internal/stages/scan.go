package stages

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sevigo/docwarden/internal/config"
	"github.com/sevigo/docwarden/internal/core"
)

var codeExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".java": true, ".rb": true, ".rs": true, ".c": true, ".h": true, ".cpp": true,
	".cc": true, ".cs": true, ".php": true, ".kt": true, ".swift": true, ".scala": true,
}

var docsExtensions = map[string]bool{
	".md": true, ".rst": true, ".txt": true, ".adoc": true,
}

var configExtensions = map[string]bool{
	".yml": true, ".yaml": true, ".json": true, ".toml": true, ".ini": true,
	".cfg": true, ".env": true, ".xml": true,
}

func categorize(name string) core.FileCategory {
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case codeExtensions[ext]:
		return core.CategoryCode
	case docsExtensions[ext]:
		return core.CategoryDocs
	case configExtensions[ext]:
		return core.CategoryConfig
	default:
		return core.CategoryOther
	}
}

// NewScan returns the S2 Scan stage tool: a breadth-first, depth- and
// count-bounded enumeration of the fetched workspace that produces both a
// hierarchical tree and a flat, categorized file list. A `.docwarden.yml`
// override loaded by Fetch (state.RepoOverrides) can widen the ignore list
// or change the file cap for this run only; the depth cap is not
// overridable.
func NewScan(cfg config.ScannerConfig) core.StageFunc {
	return func(ctx context.Context, state *core.RunState) *core.StageError {
		effective, _ := state.RepoOverrides.Apply(cfg, config.AnalyzerConfig{})

		ignored := make(map[string]bool, len(effective.IgnoredNames))
		for _, name := range effective.IgnoredNames {
			ignored[name] = true
		}

		type queued struct {
			path string
			node *core.ScanNode
			dir  string
			depth int
		}

		root := &core.ScanNode{Name: filepath.Base(state.WorkspacePath), Dir: true}
		state.Tree = root

		var files []core.ScannedFile
		var totalSize int64
		byCategory := map[core.FileCategory]int{}
		truncated := false

		queue := []queued{{path: state.WorkspacePath, node: root, dir: state.WorkspacePath, depth: 0}}

		for len(queue) > 0 {
			if len(files) >= effective.MaxFiles {
				truncated = true
				break
			}

			item := queue[0]
			queue = queue[1:]

			if item.depth > effective.MaxDepth {
				truncated = true
				continue
			}

			entries, err := os.ReadDir(item.dir)
			if err != nil {
				return core.NewStageError(core.StageScan, core.KindIOError, err.Error(), err)
			}

			sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

			for _, entry := range entries {
				if ignored[entry.Name()] {
					continue
				}
				fullPath := filepath.Join(item.dir, entry.Name())

				if entry.IsDir() {
					child := &core.ScanNode{Name: entry.Name(), Dir: true}
					item.node.Children = append(item.node.Children, child)
					queue = append(queue, queued{path: fullPath, node: child, dir: fullPath, depth: item.depth + 1})
					continue
				}

				if len(files) >= effective.MaxFiles {
					truncated = true
					break
				}

				info, err := entry.Info()
				if err != nil {
					continue
				}

				relPath, err := filepath.Rel(state.WorkspacePath, fullPath)
				if err != nil {
					relPath = fullPath
				}

				category := categorize(entry.Name())
				files = append(files, core.ScannedFile{Path: relPath, Category: category, Size: info.Size()})
				byCategory[category]++
				totalSize += info.Size()

				item.node.Children = append(item.node.Children, &core.ScanNode{Name: entry.Name(), Dir: false})
			}

			if state.Cancelled(ctx) {
				return core.NewStageError(core.StageScan, core.KindTimedOut, "cancelled during scan", nil)
			}
		}

		state.Files = files
		state.Stats = core.ScanStats{
			TotalFiles: len(files),
			TotalSize:  totalSize,
			ByCategory: byCategory,
			Truncated:  truncated,
		}
		return nil
	}
}
