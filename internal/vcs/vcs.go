// Package vcs is a narrow git CLI facade: the handful of operations
// the Orchestrator and EditEngine need (add, commit, checkout
// -- <files>, log, and a detect for "is this even a repo"). It shells out
// rather than linking a git library because the only git-touching
// collaborator in the pack (services/code_buddy/git) is itself a
// CLI wrapper, not a pure-Go git implementation.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrUnavailable is returned when git is not on PATH, or dir is not
// inside a git working tree.
var ErrUnavailable = errors.New("vcs: git unavailable")

// Repo is a git working tree rooted at Dir.
type Repo struct {
	Dir string
}

// Open returns a Repo rooted at dir if dir is inside a git working
// tree, or ErrUnavailable otherwise.
func Open(ctx context.Context, dir string) (*Repo, error) {
	r := &Repo{Dir: dir}
	if _, err := r.run(ctx, "rev-parse", "--is-inside-work-tree"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return r, nil
}

// IsVersioned reports whether dir sits inside a git working tree,
// without returning an error for the common "it's just not a repo"
// case — the orchestrator uses this to decide RunFlags.IsVersioned.
func IsVersioned(ctx context.Context, dir string) bool {
	_, err := Open(ctx, dir)
	return err == nil
}

// Add stages the given paths.
func (r *Repo) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, paths...)
	_, err := r.run(ctx, args...)
	return err
}

// Commit creates a commit with message over whatever is currently
// staged. An empty diff (nothing staged) is not an error — it is
// reported as a no-op so the orchestrator can decide how to log it.
func (r *Repo) Commit(ctx context.Context, message string) error {
	_, err := r.run(ctx, "commit", "-m", message)
	if err != nil && strings.Contains(err.Error(), "nothing to commit") {
		return nil
	}
	return err
}

// CheckoutPaths discards working-tree changes to the given paths,
// restoring them to HEAD. This is EditEngine's rollback primitive;
// Updater restores the manifest from its own in-memory backup instead.
func (r *Repo) CheckoutPaths(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"checkout", "--"}, paths...)
	_, err := r.run(ctx, args...)
	return err
}

// Log returns the subject lines of the last n commits, most recent
// first. Nothing else in this module calls it.
func (r *Repo) Log(ctx context.Context, n int) ([]string, error) {
	out, err := r.run(ctx, "log", fmt.Sprintf("-n%d", n), "--pretty=format:%s")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.Dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// CommitMessage builds the commit message format §6 specifies:
// a single line for a lone package, a header + bulleted list for a
// group of two or more.
func CommitMessage(names []string, fromVersions, toVersions map[string]string) string {
	if len(names) == 1 {
		name := names[0]
		return fmt.Sprintf("chore(deps): upgrade %s from %s to %s", name, fromVersions[name], toVersions[name])
	}

	var b strings.Builder
	fmt.Fprintf(&b, "chore(deps): upgrade %d packages\n\n", len(names))
	for _, name := range names {
		fmt.Fprintf(&b, "  - %s: %s → %s\n", name, fromVersions[name], toVersions[name])
	}
	return strings.TrimRight(b.String(), "\n")
}
