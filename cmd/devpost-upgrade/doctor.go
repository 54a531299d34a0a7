package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/devpost-labs/devpost-upgrade/internal/config"
	"github.com/devpost-labs/devpost-upgrade/internal/pm"
	"github.com/devpost-labs/devpost-upgrade/internal/vcs"
)

// newDoctorCmd reports whether the package manager, git, and a model
// API key are reachable — the CLI health check the teacher's own
// cmd_health.go / health_checker.go carries for its stack, generalized
// here to devpost-upgrade's three external dependencies (SUPPLEMENTED
// FEATURES #4).
func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the package manager, git, and model API key are reachable",
		RunE:  runDoctor,
	}
}

type checkResult struct {
	name   string
	ok     bool
	detail string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	checks := []checkResult{
		checkPackageManager(ctx, dir),
		checkGit(ctx, dir),
		checkModelAPIKey(cmd, dir),
	}

	failed := false
	for _, c := range checks {
		status := "ok"
		if !c.ok {
			status = "FAIL"
			failed = true
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-16s %-4s %s\n", c.name, status, c.detail)
	}

	if failed {
		return fmt.Errorf("doctor: one or more checks failed")
	}
	return nil
}

func checkPackageManager(ctx context.Context, dir string) checkResult {
	manager := pm.Detect(dir)
	if _, err := exec.LookPath(string(manager)); err != nil {
		return checkResult{name: "package manager", ok: false, detail: fmt.Sprintf("%s not found on PATH", manager)}
	}
	return checkResult{name: "package manager", ok: true, detail: fmt.Sprintf("%s detected and on PATH", manager)}
}

func checkGit(ctx context.Context, dir string) checkResult {
	if !vcs.IsVersioned(ctx, dir) {
		return checkResult{name: "git", ok: true, detail: "not a git worktree; commits will be skipped"}
	}
	return checkResult{name: "git", ok: true, detail: "worktree detected; commits will be created per group"}
}

func checkModelAPIKey(cmd *cobra.Command, dir string) checkResult {
	res, err := config.Load(cmd, dir)
	if err != nil {
		return checkResult{name: "model API key", ok: false, detail: err.Error()}
	}
	if res.APIKey == "" {
		return checkResult{name: "model API key", ok: true, detail: "GEMINI_API_KEY not set; grouping will use deterministic fallback and fixing is disabled"}
	}
	return checkResult{name: "model API key", ok: true, detail: "GEMINI_API_KEY present"}
}
