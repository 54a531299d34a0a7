// Package model holds the data types shared across every stage of an
// upgrade run: the packages under consideration, the groups the
// Grouper partitions them into, the edits the Fixer proposes, and the
// RunState the Orchestrator checkpoints after every transition.
//
// Every type here is JSON-tagged because RunState (and everything it
// transitively holds) is what the Checkpointer persists to disk.
package model

import "fmt"

// ChangeKind cosmetically classifies a version bump for logging; it
// has no bearing on grouping or ordering decisions.
type ChangeKind string

const (
	ChangeMajor   ChangeKind = "major"
	ChangeMinor   ChangeKind = "minor"
	ChangePatch   ChangeKind = "patch"
	ChangeUnknown ChangeKind = "unknown"
)

// PackageRef names one outdated dependency and its version span.
// Produced by the Analyzer and immutable thereafter.
type PackageRef struct {
	Name           string `json:"name"`
	CurrentVersion string `json:"currentVersion"`
	LatestVersion  string `json:"latestVersion"`
	Homepage       string `json:"homepage,omitempty"`
	// ForgeOwner is the "owner/repo" slug of the package's canonical
	// source-forge repository, derived from its registry metadata.
	// Empty when the registry lists no repository or it isn't GitHub.
	ForgeOwner string `json:"forgeOwner,omitempty"`
}

func (p PackageRef) String() string {
	return fmt.Sprintf("%s %s->%s", p.Name, p.CurrentVersion, p.LatestVersion)
}

// PackageGroup is an ordered, reasoned partition of packages that
// share one upgrade batch and one commit. Every PackageRef produced
// by the Analyzer must appear in exactly one group of a plan.
type PackageGroup struct {
	Members   []PackageRef `json:"members"`
	Reasoning string       `json:"reasoning"`
	Priority  int          `json:"priority"`
}

// Names returns the member package names, in group order.
func (g PackageGroup) Names() []string {
	names := make([]string, len(g.Members))
	for i, m := range g.Members {
		names[i] = m.Name
	}
	return names
}

// Plan is the ordered sequence of groups the Grouper produced for a
// run. Groups are processed in descending Priority order; ties are
// broken by their position in Groups.
type Plan struct {
	Packages []PackageRef   `json:"packages"`
	Groups   []PackageGroup `json:"groups"`
}

// Edit is one proposed search/replace mutation of a source file.
// Invariants enforced by EditEngine: Search must occur exactly once
// in File at apply time, and the replacement preserves File's native
// line endings.
type Edit struct {
	File        string `json:"file"`
	Description string `json:"description"`
	Search      string `json:"search"`
	Replace     string `json:"replace"`
}

// TestOutcome is the result of one build-or-test invocation.
type TestOutcome struct {
	Success  bool   `json:"success"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
}

// CombinedOutput concatenates stdout and stderr, the form Localizer
// and Fixer scan for file paths and failing assertions.
func (t TestOutcome) CombinedOutput() string {
	return t.Stdout + "\n" + t.Stderr
}

// Phase is one of the nine orchestrator states.
type Phase string

const (
	PhaseAnalyze   Phase = "ANALYZE"
	PhaseGroup     Phase = "GROUP"
	PhaseUpdate    Phase = "UPDATE"
	PhaseReproduce Phase = "REPRODUCE"
	PhaseLocalize  Phase = "LOCALIZE"
	PhaseFix       Phase = "FIX"
	PhaseValidate  Phase = "VALIDATE"
	PhaseCommit    Phase = "COMMIT"
	PhaseComplete  Phase = "COMPLETE"
)

// AllPhases lists every phase, used to seed the orchestrator's
// transition table.
func AllPhases() []Phase {
	return []Phase{
		PhaseAnalyze, PhaseGroup, PhaseUpdate, PhaseReproduce,
		PhaseLocalize, PhaseFix, PhaseValidate, PhaseCommit, PhaseComplete,
	}
}

// RunFlags carries the two booleans the orchestrator sets from its
// dependencies at the start of every Run (a resumed run included) and
// then only reads for the rest of the run.
type RunFlags struct {
	// IsVersioned is true when the working tree is under VCS, so
	// COMMIT and rollback-via-checkout are available.
	IsVersioned bool `json:"isVersioned"`

	// ModelEnabled is true when a model API key was present at
	// startup; false disables GROUP's model-assisted path and the
	// whole FIX phase.
	ModelEnabled bool `json:"modelEnabled"`
}

// RunState is the durable snapshot the Checkpointer persists after
// every orchestrator transition. The orchestrator is its only
// mutator; every other component receives a read or writes through
// a narrower return value that the orchestrator folds back in.
type RunState struct {
	Phase            Phase          `json:"phase"`
	Plan             Plan           `json:"plan"`
	Cursor           int            `json:"cursor"`
	RetryCount       int            `json:"retryCount"`
	CompletedGroups  []int          `json:"completedGroups"`
	LastOutcome      *TestOutcome   `json:"lastOutcome,omitempty"`
	Error            string         `json:"error,omitempty"`
	Config           RunConfig      `json:"config"`
	Flags            RunFlags       `json:"flags"`
}

// CurrentGroup returns the group the cursor currently points at, or
// ok=false if the cursor is out of range (an empty plan, or the plan
// already exhausted).
func (s *RunState) CurrentGroup() (PackageGroup, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Plan.Groups) {
		return PackageGroup{}, false
	}
	return s.Plan.Groups[s.Cursor], true
}

// RunConfig is the resolved configuration for a run: the merge of
// config file, CLI flags, and environment that internal/config
// produces. It is embedded in RunState so a resumed run does not
// need to re-read the config file or re-parse flags.
type RunConfig struct {
	BuildCommand  string              `json:"buildCommand"`
	TestCommand   string              `json:"testCommand"`
	MaxRetries    int                 `json:"maxRetries"`
	CreateCommits bool                `json:"createCommits"`
	ModelName     string              `json:"modelName"`
	DryRun        bool                `json:"dryRun"`
	Interactive   bool                `json:"interactive"`
	MigrationDocs map[string][]string `json:"migrationDocs,omitempty"`
}

// MigrationGuide is one retrieved document describing breaking
// changes between two releases of a package. Transient per-group
// data; never checkpointed. Higher Relevance sorts first.
type MigrationGuide struct {
	Source    string `json:"source"`
	URL       string `json:"url"`
	Content   string `json:"content"`
	Relevance int    `json:"relevance"`
}

// FileStat is the size/mtime pair RepoIndex keeps per indexed file.
type FileStat struct {
	Size  int64 `json:"size"`
	Mtime int64 `json:"mtime"`
}

// FunctionSig describes one named top-level function, arrow-bound
// identifier, or class method (qualified "ClassName.method").
type FunctionSig struct {
	Name      string `json:"name"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`
	Params    string `json:"params"`
	HasType   bool   `json:"hasType"`
}

// ImportDecl records one import statement: the module it names, and
// the local identifiers it binds.
type ImportDecl struct {
	From  string   `json:"from"`
	Names []string `json:"names"`
}
