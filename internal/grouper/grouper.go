// Package grouper partitions a set of outdated packages into ordered
// upgrade groups. The model-assisted path asks an LLM to propose
// reasoned groups; any failure — model unavailable, malformed
// response, validation failure — falls back to a deterministic
// major/non-major split. It is grounded on the teacher's
// agent/llm request/validate/fallback shape (services/code_buddy/agent/llm),
// narrowed to the single structured call this stage needs.
package grouper

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/devpost-labs/devpost-upgrade/internal/analyzer"
	"github.com/devpost-labs/devpost-upgrade/internal/model"
	"github.com/devpost-labs/devpost-upgrade/internal/modelclient"
	"github.com/devpost-labs/devpost-upgrade/pkg/logging"
)

// majorGroupPriority and nonMajorGroupPriority are the fixed
// priorities the deterministic fallback assigns.
const (
	majorGroupPriority    = 2
	nonMajorGroupPriority = 1
)

// Grouper partitions PackageRefs into a Plan's ordered Groups.
type Grouper struct {
	Model modelclient.Client
	Log   *logging.Logger
}

// New creates a Grouper. client may be nil, which always takes the
// deterministic fallback path.
func New(client modelclient.Client, log *logging.Logger) *Grouper {
	return &Grouper{Model: client, Log: log}
}

type groupEnvelope struct {
	Groups []groupProposal `json:"groups"`
}

type groupProposal struct {
	Packages  []string `json:"packages"`
	Reasoning string   `json:"reasoning"`
	Priority  int      `json:"priority"`
}

// Group partitions refs into a Plan, preferring the model-assisted
// path and falling back deterministically on any failure.
func (g *Grouper) Group(ctx context.Context, refs []model.PackageRef) model.Plan {
	plan := model.Plan{Packages: refs}

	if g.Model != nil && g.Model.Available() {
		if groups, err := g.groupWithModel(ctx, refs); err == nil {
			plan.Groups = groups
			return plan
		} else if g.Log != nil {
			g.Log.Warn("grouper: model-assisted grouping failed, using deterministic fallback", "error", err)
		}
	}

	plan.Groups = fallbackGroups(refs)
	return plan
}

func (g *Grouper) groupWithModel(ctx context.Context, refs []model.PackageRef) ([]model.PackageGroup, error) {
	prompt := buildPrompt(refs)

	raw, err := g.Model.Complete(ctx,
		"You group outdated package upgrades into ordered batches. Respond with a single JSON object and nothing else.",
		prompt,
	)
	if err != nil {
		return nil, fmt.Errorf("grouper: model request: %w", err)
	}

	var envelope groupEnvelope
	if err := modelclient.DecodeEnvelope(raw, &envelope); err != nil {
		return nil, fmt.Errorf("grouper: decode response: %w", err)
	}

	groups, err := validateProposals(envelope.Groups, refs)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Priority > groups[j].Priority })
	return groups, nil
}

func buildPrompt(refs []model.PackageRef) string {
	var b strings.Builder
	b.WriteString("Packages to upgrade:\n")
	for _, r := range refs {
		fmt.Fprintf(&b, "- %s: %s -> %s\n", r.Name, r.CurrentVersion, r.LatestVersion)
	}
	b.WriteString("\nReturn JSON: {\"groups\": [{\"packages\": [names...], \"reasoning\": \"...\", \"priority\": 1-10}]}\n")
	b.WriteString("Every package listed above must appear in exactly one group. Higher priority groups run first.\n")
	return b.String()
}

func validateProposals(proposals []groupProposal, refs []model.PackageRef) ([]model.PackageGroup, error) {
	known := make(map[string]model.PackageRef, len(refs))
	for _, r := range refs {
		known[r.Name] = r
	}

	seen := make(map[string]bool, len(refs))
	groups := make([]model.PackageGroup, 0, len(proposals))

	for _, p := range proposals {
		if len(p.Packages) == 0 {
			continue
		}
		members := make([]model.PackageRef, 0, len(p.Packages))
		for _, name := range p.Packages {
			ref, ok := known[name]
			if !ok {
				return nil, fmt.Errorf("grouper: model referenced unknown package %q", name)
			}
			if seen[name] {
				return nil, fmt.Errorf("grouper: model listed package %q in more than one group", name)
			}
			seen[name] = true
			members = append(members, ref)
		}
		groups = append(groups, model.PackageGroup{
			Members:   members,
			Reasoning: p.Reasoning,
			Priority:  p.Priority,
		})
	}

	if len(seen) != len(refs) {
		return nil, fmt.Errorf("grouper: model response covers %d of %d packages", len(seen), len(refs))
	}

	return groups, nil
}

// fallbackGroups splits refs into a major-bump group (priority 2)
// and a non-major group (priority 1), omitting empty partitions.
func fallbackGroups(refs []model.PackageRef) []model.PackageGroup {
	var major, nonMajor []model.PackageRef
	for _, r := range refs {
		if analyzer.ClassifyChange(r.CurrentVersion, r.LatestVersion) == model.ChangeMajor {
			major = append(major, r)
		} else {
			nonMajor = append(nonMajor, r)
		}
	}

	var groups []model.PackageGroup
	if len(major) > 0 {
		groups = append(groups, model.PackageGroup{
			Members:   major,
			Reasoning: "major version bumps, grouped separately to isolate breaking changes",
			Priority:  majorGroupPriority,
		})
	}
	if len(nonMajor) > 0 {
		groups = append(groups, model.PackageGroup{
			Members:   nonMajor,
			Reasoning: "minor and patch bumps, unlikely to break the build",
			Priority:  nonMajorGroupPriority,
		})
	}
	return groups
}
