// Package updater mutates a project's manifest to the caret range of
// each group member's latest version, runs the package manager's
// install command to resynchronize the lockfile, and restores the
// original manifest (re-running install) if anything in that sequence
// fails. It is grounded on the teacher's diff.Applier rollback-buffer
// idiom (services/code_buddy/diff/apply.go), retasked here from
// in-memory file edits to a single manifest file's before/after text.
package updater

import (
	"context"
	"fmt"
	"os"

	"github.com/devpost-labs/devpost-upgrade/internal/manifest"
	"github.com/devpost-labs/devpost-upgrade/internal/model"
	"github.com/devpost-labs/devpost-upgrade/internal/pm"
	"github.com/devpost-labs/devpost-upgrade/pkg/validation"
)

// Updater mutates one project's manifest and reinstalls.
type Updater struct {
	Dir      string
	Manager  pm.Manager
	backup   []byte
	hasBackup bool
}

// New creates an Updater rooted at dir.
func New(dir string) *Updater {
	return &Updater{Dir: dir, Manager: pm.Detect(dir)}
}

func (u *Updater) manifestPath() string {
	return u.Dir + "/package.json"
}

// Apply rewrites each member's version constraint to the caret range
// of its LatestVersion, writes the manifest, and runs install. If the
// write or the install fails, the manifest is restored from the
// in-memory rollback buffer and install is re-run to resynchronize the
// lock state; failures before the write leave the manifest untouched.
func (u *Updater) Apply(ctx context.Context, group model.PackageGroup) (model.TestOutcome, error) {
	for _, ref := range group.Members {
		if err := validation.ValidatePackageName(ref.Name); err != nil {
			return model.TestOutcome{}, fmt.Errorf("updater: %w", err)
		}
		if err := validation.ValidateVersionSpecifier("^" + ref.LatestVersion); err != nil {
			return model.TestOutcome{}, fmt.Errorf("updater: %w", err)
		}
	}

	path := u.manifestPath()

	original, err := os.ReadFile(path)
	if err != nil {
		return model.TestOutcome{}, fmt.Errorf("updater: read manifest: %w", err)
	}
	u.backup = original
	u.hasBackup = true

	m, err := manifest.Parse(original)
	if err != nil {
		return model.TestOutcome{}, fmt.Errorf("updater: parse manifest: %w", err)
	}

	for _, ref := range group.Members {
		_, section, ok := m.Lookup(ref.Name)
		if !ok {
			section = manifest.SectionRuntime
		}
		m.Set(ref.Name, "^"+ref.LatestVersion, section)
	}

	if err := m.Write(path); err != nil {
		if rbErr := u.Rollback(ctx); rbErr != nil {
			return model.TestOutcome{}, fmt.Errorf("updater: write manifest failed and rollback failed: %w", rbErr)
		}
		return model.TestOutcome{}, fmt.Errorf("updater: write manifest: %w", err)
	}

	outcome, installErr := pm.Shell(ctx, u.Manager, u.Dir, u.Manager.InstallArgs()...)
	if installErr != nil || !outcome.Success {
		if rbErr := u.Rollback(ctx); rbErr != nil {
			return outcome, fmt.Errorf("updater: install failed and rollback failed: %w", rbErr)
		}
		if installErr != nil {
			return outcome, fmt.Errorf("updater: install: %w", installErr)
		}
		return outcome, fmt.Errorf("updater: install reported failure")
	}

	return outcome, nil
}

// Rollback restores the manifest from the in-memory backup and
// re-runs install to resynchronize the lockfile. A no-op (not an
// error) if Apply was never called or ClearBackup already ran.
func (u *Updater) Rollback(ctx context.Context) error {
	if !u.hasBackup {
		return nil
	}
	if err := os.WriteFile(u.manifestPath(), u.backup, 0o644); err != nil {
		return fmt.Errorf("updater: restore manifest: %w", err)
	}
	if _, err := pm.Shell(ctx, u.Manager, u.Dir, u.Manager.InstallArgs()...); err != nil {
		return fmt.Errorf("updater: resync install after rollback: %w", err)
	}
	return nil
}

// ClearBackup discards the rollback buffer. Called by the orchestrator
// only after a successful COMMIT.
func (u *Updater) ClearBackup() {
	u.backup = nil
	u.hasBackup = false
}
