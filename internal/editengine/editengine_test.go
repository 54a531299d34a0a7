package editengine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestApplyEditUniqueMatchSucceeds(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.js", "ReactDOM.render(<App/>, root)\n")

	eng, err := New(dir, nil)
	require.NoError(t, err)

	edit := model.Edit{
		File:    "app.js",
		Search:  "ReactDOM.render(<App/>, root)",
		Replace: "createRoot(root).render(<App/>)",
	}
	err = eng.ApplyEdit(context.Background(), edit)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "app.js"))
	require.NoError(t, err)
	require.Contains(t, string(data), "createRoot(root).render(<App/>)")
}

func TestApplyEditNoMatchFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.js", "console.log('hi')\n")

	eng, err := New(dir, nil)
	require.NoError(t, err)

	err = eng.ApplyEdit(context.Background(), model.Edit{File: "app.js", Search: "not present", Replace: "x"})
	require.ErrorIs(t, err, ErrNoMatch)
}

func TestApplyEditAmbiguousMatchFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "app.js", "foo()\nfoo()\n")

	eng, err := New(dir, nil)
	require.NoError(t, err)

	err = eng.ApplyEdit(context.Background(), model.Edit{File: "app.js", Search: "foo()", Replace: "bar()"})
	require.ErrorIs(t, err, ErrAmbiguousMatch)
}

func TestApplyEditPathEscapeRejected(t *testing.T) {
	dir := t.TempDir()
	eng, err := New(dir, nil)
	require.NoError(t, err)

	err = eng.ApplyEdit(context.Background(), model.Edit{File: "../../etc/passwd", Search: "x", Replace: "y"})
	require.ErrorIs(t, err, ErrPathUnsafe)
}

func TestApplyEditsBatchContinuesPastFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.js", "alpha\n")
	writeFile(t, dir, "b.js", "beta\n")

	eng, err := New(dir, nil)
	require.NoError(t, err)

	edits := []model.Edit{
		{File: "a.js", Search: "alpha", Replace: "ALPHA"},
		{File: "b.js", Search: "missing", Replace: "x"},
	}
	results, applied, failed := eng.ApplyEdits(context.Background(), edits)
	require.Len(t, results, 2)
	require.Equal(t, 1, applied)
	require.Equal(t, 1, failed)
}

func TestPreviewEditsDoesNotTouchDisk(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.js", "alpha\n")

	eng, err := New(dir, nil)
	require.NoError(t, err)

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	preview := eng.PreviewEdits([]model.Edit{{File: "a.js", Search: "alpha", Replace: "ALPHA", Description: "rename"}})
	require.Contains(t, preview, "alpha")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestRollbackWithoutRepoIsNoop(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.js", "alpha\n")

	eng, err := New(dir, nil)
	require.NoError(t, err)

	require.NoError(t, eng.ApplyEdit(context.Background(), model.Edit{File: "a.js", Search: "alpha", Replace: "ALPHA"}))
	require.NoError(t, eng.Rollback(context.Background()))
}

func TestClearHistoryEmptiesTouchedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.js", "alpha\n")

	eng, err := New(dir, nil)
	require.NoError(t, err)
	require.NoError(t, eng.ApplyEdit(context.Background(), model.Edit{File: "a.js", Search: "alpha", Replace: "ALPHA"}))
	require.Len(t, eng.TouchedFiles(), 1)

	eng.ClearHistory()
	require.Len(t, eng.TouchedFiles(), 0)
}
