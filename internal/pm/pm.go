// Package pm shells out to the detected Node.js package manager.
// Detection is lockfile-based: package-lock.json selects npm,
// yarn.lock selects yarn, pnpm-lock.yaml selects pnpm. npm is the
// default when no lockfile is present. This is the one supplemented
// feature named in SPEC_FULL.md §4.4 — the original distillation
// hardcoded npm.
package pm

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
)

// Manager names a detected package manager.
type Manager string

const (
	NPM  Manager = "npm"
	Yarn Manager = "yarn"
	PNPM Manager = "pnpm"
)

var lockfiles = map[string]Manager{
	"package-lock.json": NPM,
	"yarn.lock":          Yarn,
	"pnpm-lock.yaml":     PNPM,
}

// Detect inspects dir for a known lockfile and returns the
// corresponding Manager, defaulting to NPM when none is found.
func Detect(dir string) Manager {
	for name, manager := range lockfiles {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return manager
		}
	}
	return NPM
}

// LockfileName returns the lockfile m regenerates on install, so
// callers that just mutated the manifest know what else to stage.
func (m Manager) LockfileName() string {
	switch m {
	case Yarn:
		return "yarn.lock"
	case PNPM:
		return "pnpm-lock.yaml"
	default:
		return "package-lock.json"
	}
}

// InstallArgs returns the argv (excluding the program name) that
// installs dependencies for m.
func (m Manager) InstallArgs() []string {
	switch m {
	case Yarn:
		return []string{"install"}
	case PNPM:
		return []string{"install"}
	default:
		return []string{"install"}
	}
}

// ListOutdatedArgs returns the argv that lists outdated dependencies
// in a machine-readable format, used by the Analyzer.
func (m Manager) ListOutdatedArgs() []string {
	switch m {
	case Yarn:
		return []string{"outdated", "--json"}
	case PNPM:
		return []string{"outdated", "--format", "json"}
	default:
		return []string{"outdated", "--json"}
	}
}

// ViewArgs returns the argv that prints a single package's registry
// metadata (including homepage and repository) as JSON, used by the
// Analyzer to enrich a PackageRef for DocSearch.
func (m Manager) ViewArgs(name string) []string {
	switch m {
	case Yarn:
		return []string{"info", name, "--json"}
	default:
		return []string{"view", name, "--json"}
	}
}

// Shell runs a package-manager subcommand in dir and returns its
// combined stdout/stderr and exit status as a TestOutcome, the same
// shape Runner produces, so Analyzer and Updater can use one failure
// vocabulary across collaborators.
func Shell(ctx context.Context, m Manager, dir string, args ...string) (model.TestOutcome, error) {
	cmd := exec.CommandContext(ctx, string(m), args...)
	cmd.Dir = dir

	stdout, err := cmd.Output()
	if err == nil {
		return model.TestOutcome{Success: true, Stdout: string(stdout), ExitCode: 0}, nil
	}

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		return model.TestOutcome{
			Success:  false,
			Stderr:   err.Error(),
			ExitCode: -1,
		}, fmt.Errorf("pm: spawn %s %v: %w", m, args, err)
	}

	return model.TestOutcome{
		Success:  false,
		Stdout:   string(stdout),
		Stderr:   string(exitErr.Stderr),
		ExitCode: exitErr.ExitCode(),
	}, nil
}
