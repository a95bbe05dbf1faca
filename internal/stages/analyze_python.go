package stages

import (
	"regexp"
	"strings"

	"github.com/sevigo/docwarden/internal/core"
)

var (
	pyClassRe = regexp.MustCompile(`^(\s*)class\s+([A-Za-z_][A-Za-z0-9_]*)\s*(?:\(([^)]*)\))?\s*:`)
	pyDefRe   = regexp.MustCompile(`^(\s*)def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)`)
	pyImportRe = regexp.MustCompile(`^\s*(?:from\s+([\w.]+)\s+import\s+([\w*, ]+)|import\s+([\w.]+))`)
)

// pythonExtractor is the indent-delimited, AST-flavored extractor: rather
// than a full CPython-grade parser it tracks indentation to associate
// methods with their enclosing class, which is enough structure for the
// prompt without a third-party Python grammar.
type pythonExtractor struct{}

func (pythonExtractor) Extract(path string, content []byte) (core.FileAnalysis, error) {
	lines := strings.Split(string(content), "\n")
	analysis := core.FileAnalysis{Path: path, Language: "python"}

	type openClass struct {
		index  int
		indent int
	}
	var classStack []openClass

	popTo := func(indent int) {
		for len(classStack) > 0 && classStack[len(classStack)-1].indent >= indent {
			classStack = classStack[:len(classStack)-1]
		}
	}

	for i, line := range lines {
		if m := pyClassRe.FindStringSubmatch(line); m != nil {
			indent := len(m[1])
			popTo(indent)
			cls := core.ClassSymbol{Symbol: core.Symbol{Name: m[2], Line: i + 1, Docstring: nextDocstring(lines, i)}}
			analysis.Classes = append(analysis.Classes, cls)
			classStack = append(classStack, openClass{index: len(analysis.Classes) - 1, indent: indent})
			continue
		}
		if m := pyDefRe.FindStringSubmatch(line); m != nil {
			indent := len(m[1])
			popTo(indent)
			name := m[2]
			params := splitParams(m[3])

			if len(classStack) > 0 && classStack[len(classStack)-1].indent < indent {
				idx := classStack[len(classStack)-1].index
				analysis.Classes[idx].Methods = append(analysis.Classes[idx].Methods, name)
				continue
			}
			analysis.Functions = append(analysis.Functions, core.FuncSymbol{
				Symbol: core.Symbol{Name: name, Line: i + 1, Docstring: nextDocstring(lines, i)},
				Params: params,
			})
			continue
		}
		if m := pyImportRe.FindStringSubmatch(line); m != nil {
			switch {
			case m[1] != "":
				for _, sym := range strings.Split(m[2], ",") {
					analysis.Imports = append(analysis.Imports, core.ImportSymbol{Module: m[1], Symbol: strings.TrimSpace(sym)})
				}
			case m[3] != "":
				analysis.Imports = append(analysis.Imports, core.ImportSymbol{Module: m[3]})
			}
		}
	}

	return analysis, nil
}

// nextDocstring returns the first line of a triple-quoted docstring
// immediately following a def/class line, if present.
func nextDocstring(lines []string, defLine int) string {
	for i := defLine + 1; i < len(lines) && i < defLine+3; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, "'''") {
			doc := strings.TrimPrefix(trimmed, `"""`)
			doc = strings.TrimPrefix(doc, "'''")
			doc = strings.TrimSuffix(doc, `"""`)
			doc = strings.TrimSuffix(doc, "'''")
			return strings.TrimSpace(doc)
		}
		return ""
	}
	return ""
}
