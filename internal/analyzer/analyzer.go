// Package analyzer reads a project's manifest, asks the detected
// package manager which dependencies are outdated, and returns one
// model.PackageRef per package whose installed version differs from
// its latest. It is grounded on the teacher's reason/type_compat.go
// style of small, pure classification helpers, retasked here from
// type compatibility to semantic-version change classification.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"golang.org/x/mod/semver"

	"github.com/devpost-labs/devpost-upgrade/internal/manifest"
	"github.com/devpost-labs/devpost-upgrade/internal/model"
	"github.com/devpost-labs/devpost-upgrade/internal/pm"
	"github.com/devpost-labs/devpost-upgrade/pkg/validation"
)

// Analyzer discovers outdated dependencies for one project.
type Analyzer struct {
	Dir     string
	Manager pm.Manager
}

// New creates an Analyzer rooted at dir, auto-detecting the package
// manager from its lockfile.
func New(dir string) *Analyzer {
	return &Analyzer{Dir: dir, Manager: pm.Detect(dir)}
}

// outdatedEntry matches the subset of fields every supported package
// manager's --json outdated output shares.
type outdatedEntry struct {
	Current string `json:"current"`
	Wanted  string `json:"wanted"`
	Latest  string `json:"latest"`
}

// rangeOperatorPattern strips a leading semver range operator so
// downstream components see bare version numbers.
var rangeOperatorPattern = regexp.MustCompile(`^[\^~><=\s]+`)

// Analyze returns one PackageRef per outdated dependency. An empty,
// non-nil slice is returned when nothing is outdated — orchestrator
// treats this as success with nothing to do, not an error.
func (a *Analyzer) Analyze(ctx context.Context) ([]model.PackageRef, error) {
	m, err := manifest.Read(a.manifestPath())
	if err != nil {
		return nil, fmt.Errorf("analyzer: read manifest: %w", err)
	}

	outcome, shellErr := pm.Shell(ctx, a.Manager, a.Dir, a.Manager.ListOutdatedArgs()...)
	if shellErr != nil {
		// pm.Shell only returns a non-nil error for a spawn failure
		// (binary not on PATH, permission denied, ...), never for the
		// package manager's own "there are outdated packages" exit
		// code. Per §4.2 that spawn failure is fatal, not "nothing to
		// upgrade."
		return nil, fmt.Errorf("analyzer: package manager unavailable: %w", shellErr)
	}

	entries, parseErr := parseOutdated(outcome.Stdout)
	if parseErr != nil {
		return nil, fmt.Errorf("analyzer: package manager returned unparsable output: %w", parseErr)
	}

	refs := make([]model.PackageRef, 0, len(entries))
	for name, entry := range entries {
		if err := validation.ValidatePackageName(name); err != nil {
			// The package manager's own output never legitimately
			// contains an invalid name; skip rather than let it reach
			// a later os/exec argument.
			continue
		}
		current := normalizeVersion(entry.Current)
		latest := normalizeVersion(entry.Latest)
		if current == "" || latest == "" || current == latest {
			continue
		}
		if _, _, ok := m.Lookup(name); !ok {
			continue
		}
		ref := model.PackageRef{
			Name:           name,
			CurrentVersion: current,
			LatestVersion:  latest,
		}
		a.enrich(ctx, &ref)
		refs = append(refs, ref)
	}

	sort.Slice(refs, func(i, j int) bool { return refs[i].Name < refs[j].Name })
	return refs, nil
}

func (a *Analyzer) manifestPath() string {
	return a.Dir + "/package.json"
}

// registryMeta is the subset of `npm/pnpm view --json` output DocSearch
// needs. Repository is typed as any because the registry reports it
// either as a bare URL string or as {"type": "git", "url": "..."}.
type registryMeta struct {
	Homepage   string `json:"homepage"`
	Repository any    `json:"repository"`
}

// yarnInfoEnvelope unwraps yarn's `yarn info --json` response, which
// nests the package metadata under "data" alongside a "type" field
// npm/pnpm don't emit.
type yarnInfoEnvelope struct {
	Data registryMeta `json:"data"`
}

// enrich best-effort populates ref.Homepage and ref.ForgeOwner from
// the package manager's registry view. A failure here (registry
// unreachable, package unpublished under this name, unparsable
// output) is never fatal — DocSearch simply falls back to its other
// strategies — so the error is dropped rather than surfaced.
func (a *Analyzer) enrich(ctx context.Context, ref *model.PackageRef) {
	outcome, err := pm.Shell(ctx, a.Manager, a.Dir, a.Manager.ViewArgs(ref.Name)...)
	if err != nil || outcome.Stdout == "" {
		return
	}

	meta, ok := parseRegistryMeta(a.Manager, outcome.Stdout)
	if !ok {
		return
	}

	ref.Homepage = meta.Homepage
	ref.ForgeOwner = forgeOwnerFromRepository(meta.Repository)
}

func parseRegistryMeta(m pm.Manager, stdout string) (registryMeta, bool) {
	if m == pm.Yarn {
		var env yarnInfoEnvelope
		if err := json.Unmarshal([]byte(stdout), &env); err != nil {
			return registryMeta{}, false
		}
		return env.Data, true
	}
	var meta registryMeta
	if err := json.Unmarshal([]byte(stdout), &meta); err != nil {
		return registryMeta{}, false
	}
	return meta, true
}

// repositoryURLPattern extracts an "owner/repo" slug from a GitHub
// repository URL in any of its common forms: "git+https://
// github.com/owner/repo.git", "git://github.com/owner/repo.git",
// "git@github.com:owner/repo.git", or a bare "https://github.com/
// owner/repo".
var repositoryURLPattern = regexp.MustCompile(`github\.com[:/]([^/]+/[^/]+?)(?:\.git)?/?$`)

// forgeOwnerFromRepository derives an "owner/repo" slug from a
// registry "repository" field, which may be a bare URL string or a
// {"type", "url"} object. Non-GitHub or malformed repositories yield
// an empty string, which leaves DocSearch's forge-dependent strategies
// disabled for that package rather than guessing.
func forgeOwnerFromRepository(raw any) string {
	var url string
	switch v := raw.(type) {
	case string:
		url = v
	case map[string]any:
		s, _ := v["url"].(string)
		url = s
	default:
		return ""
	}

	m := repositoryURLPattern.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// parseOutdated decodes npm/pnpm-shaped {name: entry} JSON. yarn's
// outdated --json emits a different top-level shape (a report
// object); Analyzer only targets npm/pnpm's map form per
// SPEC_FULL.md. An empty body means nothing is outdated; an
// unparsable body is returned as an error, which Analyze reports as
// fatal.
func parseOutdated(stdout string) (map[string]outdatedEntry, error) {
	if stdout == "" {
		return map[string]outdatedEntry{}, nil
	}
	var entries map[string]outdatedEntry
	if err := json.Unmarshal([]byte(stdout), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func normalizeVersion(raw string) string {
	return rangeOperatorPattern.ReplaceAllString(raw, "")
}

// ClassifyChange reports the cosmetic change kind between two bare
// semantic versions, using golang.org/x/mod/semver for comparison.
// Used only for logging; it never influences grouping or ordering.
func ClassifyChange(current, latest string) model.ChangeKind {
	cv, lv := coerce(current), coerce(latest)
	if !semver.IsValid(cv) || !semver.IsValid(lv) {
		return model.ChangeUnknown
	}

	cMajor, cMinor := semver.Major(cv), semver.MajorMinor(cv)
	lMajor, lMinor := semver.Major(lv), semver.MajorMinor(lv)

	switch {
	case cMajor != lMajor:
		return model.ChangeMajor
	case cMinor != lMinor:
		return model.ChangeMinor
	case cv != lv:
		return model.ChangePatch
	default:
		return model.ChangeUnknown
	}
}

// coerce prefixes a bare version ("5.3.0") with "v" so it satisfies
// golang.org/x/mod/semver's required leading-v format.
func coerce(v string) string {
	if v == "" {
		return v
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}
