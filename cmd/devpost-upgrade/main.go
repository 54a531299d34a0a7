// Command devpost-upgrade discovers outdated dependencies, groups
// them, mutates manifests, runs the build and test suite, and uses a
// model plus fetched migration docs to heal breakage — resumable at
// any phase boundary via a checkpoint file. Structured the way the
// teacher's cmd/aleutian wires a cobra root command: flags registered
// in an init-adjacent step, dependencies assembled once per invocation,
// no package-level mutable state beyond the command tree itself.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/devpost-labs/devpost-upgrade/internal/analyzer"
	"github.com/devpost-labs/devpost-upgrade/internal/checkpoint"
	"github.com/devpost-labs/devpost-upgrade/internal/config"
	"github.com/devpost-labs/devpost-upgrade/internal/docsearch"
	"github.com/devpost-labs/devpost-upgrade/internal/editengine"
	"github.com/devpost-labs/devpost-upgrade/internal/fixer"
	"github.com/devpost-labs/devpost-upgrade/internal/grouper"
	"github.com/devpost-labs/devpost-upgrade/internal/modelclient"
	"github.com/devpost-labs/devpost-upgrade/internal/orchestrator"
	"github.com/devpost-labs/devpost-upgrade/internal/repoindex"
	"github.com/devpost-labs/devpost-upgrade/internal/runner"
	"github.com/devpost-labs/devpost-upgrade/internal/updater"
	"github.com/devpost-labs/devpost-upgrade/internal/vcs"
	"github.com/devpost-labs/devpost-upgrade/pkg/logging"
)

// checkpointFileName is fixed by spec.md §6.
const checkpointFileName = ".devpost-upgrade-state.json"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "devpost-upgrade",
		Short:         "Autonomously discover, group, and upgrade outdated dependencies",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runUpgrade,
	}
	config.RegisterFlags(cmd)
	cmd.AddCommand(newDoctorCmd())
	return cmd
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("devpost-upgrade: %w", err)
	}

	res, err := config.Load(cmd, dir)
	if err != nil {
		return err
	}

	log := buildLogger(res)
	defer log.Close()

	cp := checkpoint.New(filepath.Join(dir, checkpointFileName))
	if res.ClearState {
		if err := cp.Clear(); err != nil {
			log.Warn("failed to clear checkpoint", "error", err)
		}
	}

	threadID := checkpoint.NewThreadID()
	if res.Resume {
		if last, ok, err := cp.LastThreadID(); err == nil && ok {
			threadID = last
		}
	}

	ctx := context.Background()
	deps, err := buildDeps(ctx, dir, res, cp, threadID, log)
	if err != nil {
		return err
	}

	state, err := orchestrator.New(deps).Run(ctx, res.Config, res.Resume)
	if err != nil {
		return fmt.Errorf("devpost-upgrade: %w", err)
	}
	if state.Error != "" {
		log.Error("upgrade did not complete", "phase", state.Phase, "error", state.Error)
		os.Exit(1)
	}
	return nil
}

func buildLogger(res config.Result) *logging.Logger {
	level := logging.LevelInfo
	if res.Debug {
		level = logging.LevelDebug
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  res.LogDir,
		Service: "devpost-upgrade",
		JSON:    res.Debug,
	})
}

// buildDeps assembles the orchestrator's dependency container from
// the resolved config — the one place every collaborator built across
// this module is wired together.
func buildDeps(ctx context.Context, dir string, res config.Result, cp *checkpoint.Checkpointer, threadID string, log *logging.Logger) (*orchestrator.Deps, error) {
	model := modelclient.NewOpenAIClient(res.APIKey, res.Config.ModelName)

	var repo *vcs.Repo
	if vcs.IsVersioned(ctx, dir) {
		r, err := vcs.Open(ctx, dir)
		if err != nil {
			return nil, fmt.Errorf("devpost-upgrade: open repo: %w", err)
		}
		repo = r
	}

	editEngine, err := editengine.New(dir, repo)
	if err != nil {
		return nil, fmt.Errorf("devpost-upgrade: build edit engine: %w", err)
	}

	idx, err := repoindex.Build(ctx, dir, log)
	if err != nil {
		log.Warn("repo index build failed; fix localization will degrade to output-derived paths only", "error", err)
		idx = nil
	}

	return &orchestrator.Deps{
		Dir:          dir,
		Analyzer:     analyzer.New(dir),
		Grouper:      grouper.New(model, log),
		Updater:      updater.New(dir),
		Runner:       runner.New(dir),
		Fixer:        fixer.New(model, log),
		DocSearch:    docsearch.New(nil),
		EditEngine:   editEngine,
		Checkpointer: cp,
		Repo:         repo,
		Index:        idx,
		Log:          log,
		ThreadID:     threadID,
		Prompter:     StdinPrompter{In: os.Stdin, Out: os.Stdout},
	}, nil
}
