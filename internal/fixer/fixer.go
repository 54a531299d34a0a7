// Package fixer asks the model for a batch of search/replace Edits
// that address a failing build or test after an upgrade. It composes
// a structured prompt from the upgrade direction, the most
// informative failing lines, retrieved migration guides, and the
// annotated contents of each candidate file, then parses a
// {edits: [...]} envelope out of the model's response. Grounded on
// the teacher's agent/llm request-composition shape
// (services/code_buddy/agent/llm/client.go), narrowed to this one
// structured call.
package fixer

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
	"github.com/devpost-labs/devpost-upgrade/internal/modelclient"
	"github.com/devpost-labs/devpost-upgrade/internal/runner"
	"github.com/devpost-labs/devpost-upgrade/pkg/logging"
)

// maxFailureLines caps how many lines of filtered failure output are
// included in the prompt.
const maxFailureLines = 50

// Fixer generates Edits for one failing group.
type Fixer struct {
	Model modelclient.Client
	Log   *logging.Logger
}

// New creates a Fixer backed by client, which may be nil.
func New(client modelclient.Client, log *logging.Logger) *Fixer {
	return &Fixer{Model: client, Log: log}
}

type editEnvelope struct {
	Edits []model.Edit `json:"edits"`
}

// Request bundles everything Fixer needs to compose a prompt.
type Request struct {
	Package         model.PackageRef
	CombinedOutput  string
	Guides          []model.MigrationGuide
	CandidateFiles  []string // relative paths, read from WorkDir
	WorkDir         string
}

// GenerateEdits asks the model for edits addressing req. A model
// error is logged and an empty edit list is returned — malformed JSON
// likewise yields no edits, which the orchestrator treats as fatal
// for the current group.
func (f *Fixer) GenerateEdits(ctx context.Context, req Request) []model.Edit {
	if f.Model == nil || !f.Model.Available() {
		if f.Log != nil {
			f.Log.Warn("fixer: model unavailable, no edits generated", "package", req.Package.Name)
		}
		return nil
	}

	prompt, err := buildPrompt(req)
	if err != nil {
		if f.Log != nil {
			f.Log.Warn("fixer: failed to compose prompt", "error", err)
		}
		return nil
	}

	raw, err := f.Model.Complete(ctx,
		"You fix broken builds and tests after a dependency upgrade. Respond with a single JSON object and nothing else.",
		prompt,
	)
	if err != nil {
		if f.Log != nil {
			f.Log.Warn("fixer: model request failed", "error", err)
		}
		return nil
	}

	var envelope editEnvelope
	if err := modelclient.DecodeEnvelope(raw, &envelope); err != nil {
		if f.Log != nil {
			f.Log.Warn("fixer: malformed model response", "error", err)
		}
		return nil
	}

	return envelope.Edits
}

func buildPrompt(req Request) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "Upgrade direction: %s %s -> %s\n\n",
		req.Package.Name, req.Package.CurrentVersion, req.Package.LatestVersion)

	lines := runner.ExtractFailureLines(req.CombinedOutput, maxFailureLines)
	if len(lines) > 0 {
		b.WriteString("Relevant failure output:\n")
		for _, l := range lines {
			b.WriteString(l)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	for _, g := range req.Guides {
		fmt.Fprintf(&b, "Migration guide (%s, %s):\n%s\n\n", g.Source, g.URL, g.Content)
	}

	for _, rel := range req.CandidateFiles {
		content, err := os.ReadFile(req.WorkDir + "/" + rel)
		if err != nil {
			continue // unreadable candidate files are skipped, not fatal
		}
		fmt.Fprintf(&b, "File %s:\n%s\n\n", rel, annotateLines(string(content)))
	}

	b.WriteString(`Return JSON: {"edits": [{"file": "...", "description": "...", "search": "...", "replace": "..."}]}` + "\n")
	b.WriteString("Each search string must match its file exactly once.\n")

	return b.String(), nil
}

func annotateLines(content string) string {
	lines := strings.Split(content, "\n")
	var b strings.Builder
	for i, l := range lines {
		fmt.Fprintf(&b, "%4d  %s\n", i+1, l)
	}
	return b.String()
}
