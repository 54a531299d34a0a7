// Package orchestrator drives the nine-phase upgrade state machine:
// ANALYZE -> GROUP -> UPDATE -> REPRODUCE -> LOCALIZE -> FIX ->
// VALIDATE -> COMMIT -> COMPLETE, looping UPDATE..COMMIT once per
// group and checkpointing after every transition. Grounded on the
// teacher's agent.StateMachine driving loop combined with
// dag.Executor's Resume/RunFromState pattern
// (services/trace/dag/executor.go) for the checkpoint-before-next-phase
// discipline.
package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/devpost-labs/devpost-upgrade/internal/analyzer"
	"github.com/devpost-labs/devpost-upgrade/internal/checkpoint"
	"github.com/devpost-labs/devpost-upgrade/internal/docsearch"
	"github.com/devpost-labs/devpost-upgrade/internal/editengine"
	"github.com/devpost-labs/devpost-upgrade/internal/fixer"
	"github.com/devpost-labs/devpost-upgrade/internal/grouper"
	"github.com/devpost-labs/devpost-upgrade/internal/localizer"
	"github.com/devpost-labs/devpost-upgrade/internal/model"
	"github.com/devpost-labs/devpost-upgrade/internal/repoindex"
	"github.com/devpost-labs/devpost-upgrade/internal/runner"
	"github.com/devpost-labs/devpost-upgrade/internal/updater"
	"github.com/devpost-labs/devpost-upgrade/internal/vcs"
	"github.com/devpost-labs/devpost-upgrade/pkg/logging"
)

// Prompter confirms an action with the user before the orchestrator
// proceeds. Grounded on the teacher's util.UserPrompter dependency
// (injected into DefaultCachePathResolver and InfrastructureManager in
// cmd/aleutian/cache_resolver.go and infrastructure_manager.go), kept
// as a single-method interface so tests can substitute a fake instead
// of driving real stdin.
type Prompter interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Deps is the dependency container constructed once per run and
// passed by reference to every phase handler — per SPEC_FULL.md §9
// ("singleton components initialized lazily" -> "an explicit
// dependency-container constructed once per run, no ambient global
// state").
type Deps struct {
	Dir          string
	Analyzer     *analyzer.Analyzer
	Grouper      *grouper.Grouper
	Updater      *updater.Updater
	Runner       *runner.Runner
	Fixer        *fixer.Fixer
	DocSearch    *docsearch.Searcher
	EditEngine   *editengine.Engine
	Checkpointer *checkpoint.Checkpointer
	Repo         *vcs.Repo // nil when the working tree is not versioned
	Index        *repoindex.Index
	Log          *logging.Logger
	ThreadID     string
	// Prompter confirms each group before UPDATE mutates anything, when
	// Config.Interactive is set. Nil disables the pause even if
	// Interactive is set, rather than panicking on a non-interactive run.
	Prompter Prompter
}

// Orchestrator drives RunState through the transition table.
type Orchestrator struct {
	deps *Deps
	sm   *StateMachine
}

// New creates an Orchestrator over deps.
func New(deps *Deps) *Orchestrator {
	return &Orchestrator{deps: deps, sm: NewStateMachine()}
}

// Run drives RunState to COMPLETE, checkpointing after every
// transition. If resume is true and a checkpoint exists, execution
// starts from the checkpointed phase instead of ANALYZE.
func (o *Orchestrator) Run(ctx context.Context, cfg model.RunConfig, resume bool) (model.RunState, error) {
	state := model.RunState{Phase: model.PhaseAnalyze, Config: cfg}

	if resume && o.deps.Checkpointer.Has() {
		loaded, ok, err := o.deps.Checkpointer.Load(o.deps.ThreadID)
		if err != nil {
			return state, fmt.Errorf("orchestrator: load checkpoint: %w", err)
		}
		if ok {
			state = loaded
			if o.deps.Log != nil {
				o.deps.Log.Info("resuming from checkpoint", "phase", state.Phase, "cursor", state.Cursor)
			}
		}
	}

	state.Flags.IsVersioned = o.deps.Repo != nil
	state.Flags.ModelEnabled = o.deps.Fixer != nil && o.deps.Fixer.Model != nil && o.deps.Fixer.Model.Available()

	for state.Phase != model.PhaseComplete {
		next, err := o.step(ctx, &state)
		if err != nil {
			return state, err
		}

		if terr := o.sm.Transition(&state, next); terr != nil {
			return state, terr
		}

		if saveErr := o.deps.Checkpointer.Save(o.deps.ThreadID, state); saveErr != nil && o.deps.Log != nil {
			// Per §7 error taxonomy: a lost checkpoint disables resume
			// but must never corrupt on-disk state, so this is logged
			// and the run continues.
			o.deps.Log.Warn("orchestrator: checkpoint save failed", "error", saveErr)
		}

		if o.deps.Log != nil {
			o.deps.Log.Phase(string(state.Phase), state.Cursor, "transitioned", "retryCount", state.RetryCount)
		}
	}

	if state.Error != "" {
		o.rollback(ctx, &state)
	} else {
		_ = o.deps.Checkpointer.Clear()
	}

	return state, nil
}

// rollback best-effort reverts the manifest and any applied edits for
// the in-progress group. Failures are logged, never re-raised — a
// terminal error must still terminate even if cleanup is partial.
func (o *Orchestrator) rollback(ctx context.Context, state *model.RunState) {
	if err := o.deps.Updater.Rollback(ctx); err != nil && o.deps.Log != nil {
		o.deps.Log.Warn("orchestrator: manifest rollback failed", "error", err)
	}
	if err := o.deps.EditEngine.Rollback(ctx); err != nil && o.deps.Log != nil {
		o.deps.Log.Warn("orchestrator: edit rollback failed", "error", err)
	}
	if o.deps.Log != nil {
		group, ok := state.CurrentGroup()
		groupName := "unknown"
		if ok && len(group.Members) > 0 {
			groupName = group.Members[0].Name
		}
		o.deps.Log.Error("upgrade failed", "phase", state.Phase, "group", groupName, "error", state.Error)
	}
}

// step computes the next phase for the current state, running
// whichever collaborator that phase calls for.
func (o *Orchestrator) step(ctx context.Context, state *model.RunState) (model.Phase, error) {
	switch state.Phase {
	case model.PhaseAnalyze:
		return o.runAnalyze(ctx, state)
	case model.PhaseGroup:
		return o.runGroup(ctx, state)
	case model.PhaseUpdate:
		return o.runUpdate(ctx, state)
	case model.PhaseReproduce:
		return o.runReproduce(ctx, state)
	case model.PhaseLocalize:
		return o.runLocalize(ctx, state)
	case model.PhaseFix:
		return o.runFix(ctx, state)
	case model.PhaseValidate:
		return o.runValidate(ctx, state)
	case model.PhaseCommit:
		return o.runCommit(ctx, state)
	default:
		return model.PhaseComplete, fmt.Errorf("orchestrator: no handler for phase %s", state.Phase)
	}
}

func (o *Orchestrator) runAnalyze(ctx context.Context, state *model.RunState) (model.Phase, error) {
	refs, err := o.deps.Analyzer.Analyze(ctx)
	if err != nil {
		state.Error = err.Error()
		return model.PhaseComplete, nil
	}
	state.Plan = model.Plan{Packages: refs}
	if len(refs) == 0 {
		return model.PhaseComplete, nil
	}
	return model.PhaseGroup, nil
}

func (o *Orchestrator) runGroup(ctx context.Context, state *model.RunState) (model.Phase, error) {
	plan := o.deps.Grouper.Group(ctx, state.Plan.Packages)
	state.Plan = plan

	if state.Config.DryRun {
		if o.deps.Log != nil {
			o.deps.Log.Info("dry run: plan computed, no changes will be made", "groups", len(plan.Groups))
		}
		return model.PhaseComplete, nil
	}

	state.Cursor = 0
	return model.PhaseUpdate, nil
}

func (o *Orchestrator) runUpdate(ctx context.Context, state *model.RunState) (model.Phase, error) {
	group, ok := state.CurrentGroup()
	if !ok {
		return model.PhaseComplete, nil
	}

	if state.Config.Interactive && o.deps.Prompter != nil {
		prompt := fmt.Sprintf("Upgrade %s? [y/N] ", strings.Join(group.Names(), ", "))
		proceed, err := o.deps.Prompter.Confirm(ctx, prompt)
		if err != nil {
			state.Error = fmt.Sprintf("interactive confirmation failed: %v", err)
			return model.PhaseComplete, nil
		}
		if !proceed {
			state.Error = "upgrade declined at interactive confirmation"
			return model.PhaseComplete, nil
		}
	}

	if _, err := o.deps.Updater.Apply(ctx, group); err != nil {
		state.Error = err.Error()
		return model.PhaseComplete, nil
	}

	state.RetryCount = 0
	return model.PhaseReproduce, nil
}

func (o *Orchestrator) runReproduce(ctx context.Context, state *model.RunState) (model.Phase, error) {
	build, test := o.deps.Runner.RunAll(ctx, state.Config.BuildCommand, state.Config.TestCommand)
	outcome := test
	if !build.Success {
		outcome = build
	}
	state.LastOutcome = &outcome

	if build.Success && test.Success {
		return model.PhaseCommit, nil
	}
	return model.PhaseLocalize, nil
}

func (o *Orchestrator) runLocalize(ctx context.Context, state *model.RunState) (model.Phase, error) {
	if !state.Flags.ModelEnabled || state.RetryCount >= state.Config.MaxRetries {
		state.Error = "build/test failed and no further fix attempts are available"
		return model.PhaseComplete, nil
	}
	return model.PhaseFix, nil
}

func (o *Orchestrator) runFix(ctx context.Context, state *model.RunState) (model.Phase, error) {
	group, ok := state.CurrentGroup()
	if !ok {
		state.Error = "orchestrator: FIX reached with no current group"
		return model.PhaseComplete, nil
	}

	combined := ""
	if state.LastOutcome != nil {
		combined = state.LastOutcome.CombinedOutput()
	}

	var allEdits []model.Edit
	for _, pkg := range group.Members {
		candidates := localizer.Localize(combined, o.deps.Dir, pkg.Name, o.deps.Index)
		guides := o.deps.DocSearch.Search(ctx, docsearch.Request{
			Package:    pkg,
			UserURLs:   state.Config.MigrationDocs[pkg.Name],
			ForgeOwner: pkg.ForgeOwner,
		})

		edits := o.deps.Fixer.GenerateEdits(ctx, fixer.Request{
			Package:        pkg,
			CombinedOutput: combined,
			Guides:         guides,
			CandidateFiles: candidates,
			WorkDir:        o.deps.Dir,
		})
		allEdits = append(allEdits, edits...)
	}

	if len(allEdits) == 0 {
		state.Error = "fixer produced no edits"
		return model.PhaseComplete, nil
	}

	if state.Config.DryRun {
		if o.deps.Log != nil {
			o.deps.Log.Info("dry run: edit preview", "preview", o.deps.EditEngine.PreviewEdits(allEdits))
		}
		state.Error = "dry run stopped before applying edits"
		return model.PhaseComplete, nil
	}

	o.deps.EditEngine.ApplyEditsWithValidation(ctx, allEdits)

	state.RetryCount++
	return model.PhaseValidate, nil
}

func (o *Orchestrator) runValidate(ctx context.Context, state *model.RunState) (model.Phase, error) {
	build, test := o.deps.Runner.RunAll(ctx, state.Config.BuildCommand, state.Config.TestCommand)
	outcome := test
	if !build.Success {
		outcome = build
	}
	state.LastOutcome = &outcome

	if build.Success && test.Success {
		return model.PhaseCommit, nil
	}
	if state.RetryCount < state.Config.MaxRetries {
		return model.PhaseLocalize, nil
	}
	state.Error = "exhausted retry budget without a green build"
	return model.PhaseComplete, nil
}

func (o *Orchestrator) runCommit(ctx context.Context, state *model.RunState) (model.Phase, error) {
	group, ok := state.CurrentGroup()
	if ok && state.Flags.IsVersioned && o.deps.Repo != nil && state.Config.CreateCommits {
		names := make([]string, 0, len(group.Members))
		from := map[string]string{}
		to := map[string]string{}
		for _, m := range group.Members {
			names = append(names, m.Name)
			from[m.Name] = m.CurrentVersion
			to[m.Name] = m.LatestVersion
		}

		_ = o.deps.Repo.Add(ctx, "package.json", o.deps.Updater.Manager.LockfileName())
		message := vcs.CommitMessage(names, from, to)
		if err := o.deps.Repo.Commit(ctx, message); err != nil && o.deps.Log != nil {
			o.deps.Log.Warn("orchestrator: commit failed", "error", err)
		}
	}

	o.deps.Updater.ClearBackup()
	o.deps.EditEngine.ClearHistory()
	state.CompletedGroups = append(state.CompletedGroups, state.Cursor)

	if state.Cursor+1 < len(state.Plan.Groups) {
		state.Cursor++
		return model.PhaseUpdate, nil
	}
	return model.PhaseComplete, nil
}
