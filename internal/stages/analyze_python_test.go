package stages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A method found on the outer class after a nested inner class has been
// appended to analysis.Classes must still land on the outer class: a def
// at the nested class's own indentation closes that class, and classStack
// holds indices into analysis.Classes, so the append for Inner cannot
// leave Outer's entry pointing at a stale copy.
func TestPythonExtractor_NestedClassDoesNotDropOuterMethods(t *testing.T) {
	src := `class Outer:
    def outer_method_before(self):
        pass

    class Inner:
        def inner_method(self):
            pass

    def outer_method_after(self):
        pass
`
	analysis, err := pythonExtractor{}.Extract("mod.py", []byte(src))
	require.NoError(t, err)
	require.Len(t, analysis.Classes, 2)

	outer := analysis.Classes[0]
	inner := analysis.Classes[1]

	assert.Equal(t, "Outer", outer.Name)
	assert.Equal(t, "Inner", inner.Name)
	assert.Contains(t, outer.Methods, "outer_method_before")
	assert.Contains(t, outer.Methods, "outer_method_after")
	assert.Contains(t, inner.Methods, "inner_method")
	assert.NotContains(t, inner.Methods, "outer_method_after")
}

func TestPythonExtractor_TopLevelFunctionsAndImports(t *testing.T) {
	src := `import os
from typing import List, Optional

def helper(a, b):
    pass
`
	analysis, err := pythonExtractor{}.Extract("mod.py", []byte(src))
	require.NoError(t, err)

	require.Len(t, analysis.Functions, 1)
	assert.Equal(t, "helper", analysis.Functions[0].Name)
	assert.Equal(t, []string{"a", "b"}, analysis.Functions[0].Params)

	require.Len(t, analysis.Imports, 3)
	assert.Equal(t, "os", analysis.Imports[0].Module)
	assert.Equal(t, "typing", analysis.Imports[1].Module)
	assert.Equal(t, "List", analysis.Imports[1].Symbol)
}
