package fixer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
)

type fakeClient struct {
	response  string
	err       error
	available bool
}

func (f *fakeClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.response, f.err
}

func (f *fakeClient) Available() bool { return f.available }

func TestGenerateEditsReturnsNilWhenModelUnavailable(t *testing.T) {
	f := New(&fakeClient{available: false}, nil)
	edits := f.GenerateEdits(context.Background(), Request{Package: model.PackageRef{Name: "chalk"}})
	require.Nil(t, edits)
}

func TestGenerateEditsReturnsNilOnMalformedResponse(t *testing.T) {
	f := New(&fakeClient{available: true, response: "not json"}, nil)
	edits := f.GenerateEdits(context.Background(), Request{Package: model.PackageRef{Name: "chalk"}})
	require.Nil(t, edits)
}

func TestGenerateEditsParsesValidEnvelope(t *testing.T) {
	response := `{"edits": [{"file": "src/App.tsx", "description": "fix import", "search": "old", "replace": "new"}]}`
	f := New(&fakeClient{available: true, response: response}, nil)
	edits := f.GenerateEdits(context.Background(), Request{Package: model.PackageRef{Name: "chalk"}})

	require.Len(t, edits, 1)
	require.Equal(t, "src/App.tsx", edits[0].File)
	require.Equal(t, "old", edits[0].Search)
}

func TestBuildPromptIncludesCandidateFileContents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "App.tsx"), []byte("const x = 1;\n"), 0o644))

	req := Request{
		Package:        model.PackageRef{Name: "chalk", CurrentVersion: "4.0.0", LatestVersion: "5.3.0"},
		WorkDir:        dir,
		CandidateFiles: []string{"App.tsx"},
	}

	prompt, err := buildPrompt(req)
	require.NoError(t, err)
	require.Contains(t, prompt, "const x = 1;")
	require.Contains(t, prompt, "chalk")
}

func TestBuildPromptSkipsUnreadableCandidateFile(t *testing.T) {
	req := Request{
		Package:        model.PackageRef{Name: "chalk"},
		WorkDir:        t.TempDir(),
		CandidateFiles: []string{"missing.tsx"},
	}

	prompt, err := buildPrompt(req)
	require.NoError(t, err)
	require.NotContains(t, prompt, "missing.tsx:")
}
