package stages

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/sevigo/docwarden/internal/core"
)

// goExtractor parses Go source with the standard library's own compiler
// front end. This is the one deliberate exception to the pattern-based
// registry: Go's grammar already has a correct, canonical parser in the
// toolchain, and no example in the corpus reaches for a third-party
// Go-source parser, so hand-rolling brace-counting here would be a worse
// imitation of idiomatic Go rather than a better one.
type goExtractor struct{}

func (goExtractor) Extract(path string, content []byte) (core.FileAnalysis, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, content, parser.ParseComments)
	if err != nil {
		return core.FileAnalysis{}, fmt.Errorf("parse go source: %w", err)
	}

	analysis := core.FileAnalysis{Path: path, Language: "go"}
	methodsByReceiver := map[string][]string{}

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				if _, ok := ts.Type.(*ast.StructType); !ok && !isInterface(ts.Type) {
					continue
				}
				analysis.Classes = append(analysis.Classes, core.ClassSymbol{
					Symbol: core.Symbol{
						Name:      ts.Name.Name,
						Line:      fset.Position(ts.Pos()).Line,
						Docstring: docText(d.Doc),
					},
				})
			}
		case *ast.FuncDecl:
			params := paramNames(d.Type.Params)
			if d.Recv != nil && len(d.Recv.List) > 0 {
				receiver := receiverTypeName(d.Recv.List[0].Type)
				methodsByReceiver[receiver] = append(methodsByReceiver[receiver], d.Name.Name)
				continue
			}
			analysis.Functions = append(analysis.Functions, core.FuncSymbol{
				Symbol: core.Symbol{
					Name:      d.Name.Name,
					Line:      fset.Position(d.Pos()).Line,
					Docstring: docText(d.Doc),
				},
				Params: params,
			})
		}
	}

	for i := range analysis.Classes {
		analysis.Classes[i].Methods = methodsByReceiver[analysis.Classes[i].Name]
	}

	for _, imp := range file.Imports {
		module := strings.Trim(imp.Path.Value, `"`)
		symbol := ""
		if imp.Name != nil {
			symbol = imp.Name.Name
		}
		analysis.Imports = append(analysis.Imports, core.ImportSymbol{Module: module, Symbol: symbol})
	}

	return analysis, nil
}

func isInterface(expr ast.Expr) bool {
	_, ok := expr.(*ast.InterfaceType)
	return ok
}

func docText(doc *ast.CommentGroup) string {
	if doc == nil {
		return ""
	}
	text := strings.TrimSpace(doc.Text())
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return text
}

func paramNames(fields *ast.FieldList) []string {
	if fields == nil {
		return nil
	}
	var names []string
	for _, f := range fields.List {
		if len(f.Names) == 0 {
			names = append(names, exprString(f.Type))
			continue
		}
		for _, n := range f.Names {
			names = append(names, n.Name)
		}
	}
	return names
}

func receiverTypeName(expr ast.Expr) string {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if ident, ok := expr.(*ast.Ident); ok {
		return ident.Name
	}
	return exprString(expr)
}

func exprString(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return "*" + exprString(e.X)
	case *ast.SelectorExpr:
		return exprString(e.X) + "." + e.Sel.Name
	default:
		return "?"
	}
}
