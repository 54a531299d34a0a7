// Package editengine applies the Fixer's proposed search/replace
// edits under a uniqueness guarantee: an edit whose search string does
// not occur in its file exactly once is rejected rather than applied
// ambiguously. It is grounded on the teacher's diff.Applier — the
// per-file locking and path-safety check are carried over verbatim in
// spirit — but retargeted from hunk-based patch application to exact
// search/replace, since a model-proposed fix is a pair of literal
// strings rather than a unified diff.
package editengine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
	"github.com/devpost-labs/devpost-upgrade/internal/vcs"
)

// ErrNoMatch is returned when an edit's search string does not occur
// in its file at all.
var ErrNoMatch = errors.New("editengine: search string not found")

// ErrAmbiguousMatch is returned when an edit's search string occurs
// more than once in its file.
var ErrAmbiguousMatch = errors.New("editengine: search string matches more than once")

// ErrPathUnsafe is returned when an edit's file path would resolve
// outside the engine's base directory.
var ErrPathUnsafe = errors.New("editengine: path escapes base directory")

// Result is the per-edit outcome of an apply attempt.
type Result struct {
	Edit    model.Edit
	Applied bool
	Err     error
}

// Engine applies edits under the uniqueness guarantee and tracks
// every file it has touched in the current group, so rollback can
// target exactly those files via VCS checkout.
//
// Engine is safe for concurrent use; individual file writes are
// serialized with a per-file lock, though in practice §4.8's
// applyEditsWithValidation processes one file at a time by design.
type Engine struct {
	basePath string
	repo     *vcs.Repo

	mu      sync.Mutex
	touched map[string]bool

	fileLocksMu sync.Mutex
	fileLocks   map[string]*sync.Mutex
}

// New creates an Engine rooted at basePath, which must be an absolute
// directory. repo may be nil, in which case Rollback is a no-op (the
// working tree is not under version control).
func New(basePath string, repo *vcs.Repo) (*Engine, error) {
	if !filepath.IsAbs(basePath) {
		return nil, fmt.Errorf("editengine: basePath must be absolute: %s", basePath)
	}
	info, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("editengine: stat basePath: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("editengine: basePath is not a directory: %s", basePath)
	}
	return &Engine{
		basePath:  basePath,
		repo:      repo,
		touched:   map[string]bool{},
		fileLocks: map[string]*sync.Mutex{},
	}, nil
}

// ApplyEdit counts occurrences of e.Search in e.File; rejects on zero
// or multiple matches; otherwise performs a single textual replace
// and records the file in history.
func (eng *Engine) ApplyEdit(ctx context.Context, e model.Edit) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fullPath, err := eng.resolve(e.File)
	if err != nil {
		return err
	}

	lock := eng.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return fmt.Errorf("editengine: read %s: %w", e.File, err)
	}
	content := string(data)

	search, replace := e.Search, e.Replace
	if strings.Contains(content, "\r\n") {
		// Match and write in the file's own CRLF line endings.
		search = strings.ReplaceAll(strings.ReplaceAll(search, "\r\n", "\n"), "\n", "\r\n")
		replace = strings.ReplaceAll(strings.ReplaceAll(replace, "\r\n", "\n"), "\n", "\r\n")
	}

	count := strings.Count(content, search)
	switch count {
	case 0:
		return fmt.Errorf("%w: %s", ErrNoMatch, e.File)
	case 1:
		// exactly one match, proceed
	default:
		return fmt.Errorf("%w: %s (%d occurrences)", ErrAmbiguousMatch, e.File, count)
	}

	newContent := strings.Replace(content, search, replace, 1)
	if err := os.WriteFile(fullPath, []byte(newContent), 0o644); err != nil {
		return fmt.Errorf("editengine: write %s: %w", e.File, err)
	}

	eng.mu.Lock()
	eng.touched[e.File] = true
	eng.mu.Unlock()

	return nil
}

// ApplyEdits applies edits in order, continuing past individual
// failures, and reports how many applied versus failed. Batch success
// requires zero failures.
func (eng *Engine) ApplyEdits(ctx context.Context, edits []model.Edit) (results []Result, appliedCount, failedCount int) {
	results = make([]Result, 0, len(edits))
	for _, e := range edits {
		err := eng.ApplyEdit(ctx, e)
		results = append(results, Result{Edit: e, Applied: err == nil, Err: err})
		if err == nil {
			appliedCount++
		} else {
			failedCount++
		}
	}
	return results, appliedCount, failedCount
}

// ApplyEditsWithValidation groups edits by file, applies all edits
// for one file, then stages that file in VCS before moving to the
// next file. This gives a per-file checkpoint within a single fix
// attempt: if a later file's edit fails, the earlier files are
// already safely staged rather than lost alongside it.
func (eng *Engine) ApplyEditsWithValidation(ctx context.Context, edits []model.Edit) (results []Result, appliedCount, failedCount int) {
	byFile := groupByFile(edits)

	for _, file := range byFile.order {
		for _, e := range byFile.edits[file] {
			err := eng.ApplyEdit(ctx, e)
			results = append(results, Result{Edit: e, Applied: err == nil, Err: err})
			if err == nil {
				appliedCount++
			} else {
				failedCount++
			}
		}

		if eng.repo != nil {
			if err := eng.repo.Add(ctx, file); err != nil {
				// Staging failure does not invalidate the edit itself;
				// it surfaces at commit time via an incomplete index.
				continue
			}
		}
	}

	return results, appliedCount, failedCount
}

// PreviewEdits renders each edit's search/replace previews, truncated
// to 200 characters each, without touching disk.
func (eng *Engine) PreviewEdits(edits []model.Edit) string {
	var b strings.Builder
	for _, e := range edits {
		fmt.Fprintf(&b, "--- %s: %s\n", e.File, e.Description)
		fmt.Fprintf(&b, "  search:  %s\n", truncate(e.Search, 200))
		fmt.Fprintf(&b, "  replace: %s\n", truncate(e.Replace, 200))
	}
	return b.String()
}

// Rollback reverts every file touched in the current group via VCS
// checkout, then clears history on success. A nil repo (working tree
// not under version control) makes Rollback a no-op.
func (eng *Engine) Rollback(ctx context.Context) error {
	eng.mu.Lock()
	files := make([]string, 0, len(eng.touched))
	for f := range eng.touched {
		files = append(files, f)
	}
	eng.mu.Unlock()

	if len(files) == 0 {
		return nil
	}
	if eng.repo == nil {
		return nil
	}

	if err := eng.repo.CheckoutPaths(ctx, files...); err != nil {
		return fmt.Errorf("editengine: rollback: %w", err)
	}

	eng.ClearHistory()
	return nil
}

// ClearHistory discards the set of touched files, called by the
// orchestrator after a successful COMMIT.
func (eng *Engine) ClearHistory() {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	eng.touched = map[string]bool{}
}

// TouchedFiles returns the files edited in the current group.
func (eng *Engine) TouchedFiles() []string {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	files := make([]string, 0, len(eng.touched))
	for f := range eng.touched {
		files = append(files, f)
	}
	return files
}

func (eng *Engine) resolve(relPath string) (string, error) {
	full := relPath
	if !filepath.IsAbs(relPath) {
		full = filepath.Join(eng.basePath, relPath)
	}

	cleanBase := filepath.Clean(eng.basePath)
	cleanPath := filepath.Clean(full)
	rel, err := filepath.Rel(cleanBase, cleanPath)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s", ErrPathUnsafe, relPath)
	}
	return full, nil
}

func (eng *Engine) getFileLock(path string) *sync.Mutex {
	eng.fileLocksMu.Lock()
	defer eng.fileLocksMu.Unlock()
	if lock, ok := eng.fileLocks[path]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	eng.fileLocks[path] = lock
	return lock
}

type fileGroups struct {
	order []string
	edits map[string][]model.Edit
}

func groupByFile(edits []model.Edit) fileGroups {
	g := fileGroups{edits: map[string][]model.Edit{}}
	for _, e := range edits {
		if _, seen := g.edits[e.File]; !seen {
			g.order = append(g.order, e.File)
		}
		g.edits[e.File] = append(g.edits[e.File], e)
	}
	return g
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
