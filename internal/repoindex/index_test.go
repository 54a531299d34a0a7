package repoindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, relPath, content string) {
	t.Helper()
	full := filepath.Join(dir, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestWalkSkipsIgnoredDirectories(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "src/app.go", "package src\nfunc Foo() {}\n")
	writeTestFile(t, dir, "node_modules/pkg/index.js", "module.exports = {}\n")

	files, err := Walk(dir)
	require.NoError(t, err)
	require.Contains(t, files, "src/app.go")
	require.NotContains(t, files, "node_modules/pkg/index.js")
}

func TestWalkHonorsGitignore(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, ".gitignore", "generated/\n*.min.js\n")
	writeTestFile(t, dir, "src/keep.go", "package src\n")
	writeTestFile(t, dir, "generated/skip.go", "package generated\n")
	writeTestFile(t, dir, "src/bundle.min.js", "//min\n")

	files, err := Walk(dir)
	require.NoError(t, err)
	require.Contains(t, files, "src/keep.go")
	require.NotContains(t, files, "generated/skip.go")
	require.NotContains(t, files, "src/bundle.min.js")
}

func TestBuildIndexesGoImportsAndFunctions(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "main.go", `package main

import (
	"fmt"
	"github.com/example/widgets"
)

func main() {
	fmt.Println(widgets.New())
}
`)

	idx, err := Build(context.Background(), dir, nil)
	require.NoError(t, err)
	require.Contains(t, idx.Files, "main.go")

	imports := idx.Imports["main.go"]
	require.NotEmpty(t, imports)

	found := false
	for _, imp := range imports {
		if imp.From == "github.com/example/widgets" {
			found = true
		}
	}
	require.True(t, found, "expected github.com/example/widgets among imports, got %+v", imports)

	funcs := idx.Functions["main.go"]
	require.NotEmpty(t, funcs)
	require.Equal(t, "main", funcs[0].Name)
}

func TestFindFilesImportingMatchesSubpaths(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.go", `package a

import "github.com/example/widgets/sub"

func A() {}
`)
	writeTestFile(t, dir, "b.go", `package b

import "github.com/other/thing"

func B() {}
`)

	idx, err := Build(context.Background(), dir, nil)
	require.NoError(t, err)

	matches := idx.FindFilesImporting("github.com/example/widgets")
	require.Equal(t, []string{"a.go"}, matches)

	require.Empty(t, idx.FindFilesImporting("github.com/nonexistent"))
}

func TestStaleDetectsMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.go", "package a\n")

	idx, err := Build(context.Background(), dir, nil)
	require.NoError(t, err)
	require.False(t, idx.Stale("a.go"))

	require.NoError(t, os.Remove(filepath.Join(dir, "a.go")))
	require.True(t, idx.Stale("a.go"))
}
