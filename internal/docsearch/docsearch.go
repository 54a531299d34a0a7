// Package docsearch retrieves migration guides for an upgraded
// package from five independent sources, running them concurrently
// and collating whichever succeed. Grounded on the teacher's
// agent/llm client's multi-provider fan-out shape, retasked from "ask
// several model providers" to "fetch from several doc sources," with
// golang.org/x/sync/errgroup joining the fetches in best-effort mode
// (a single failing source must never cancel its siblings) and
// golang.org/x/sync/singleflight collapsing duplicate concurrent
// fetches of the same guide URL across packages in one group.
package docsearch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
)

const (
	fetchTimeout  = 10 * time.Second
	maxGuideBytes = 100 * 1024
	maxGuides     = 5
)

// relevance scores per spec.md §4.9.
const (
	relevanceUserURL     = 15
	relevanceCuratedDocs = 10
	relevanceReleaseNote = 9
	relevanceChangelog   = 8
	relevanceHomepage    = 6
)

// knownDocs maps a package name to a function producing an ordered
// list of candidate documentation URLs for a target version.
var knownDocs = map[string]func(version string) []string{
	"react": func(v string) []string {
		return []string{"https://react.dev/blog/2024/04/25/react-19-upgrade-guide"}
	},
	"webpack": func(v string) []string {
		return []string{"https://webpack.js.org/migrate/5/"}
	},
	"typescript": func(v string) []string {
		return []string{"https://www.typescriptlang.org/docs/handbook/release-notes/overview.html"}
	},
}

// changelogFilenames are tried on both main and master.
var changelogFilenames = []string{"CHANGELOG.md", "CHANGES.md", "HISTORY.md"}

// versionHeaderPattern matches a changelog header line starting a
// version section, e.g. "## 5.3.0" or "## [5.3.0]".
var versionHeaderPattern = regexp.MustCompile(`^#{1,3}\s*\[?v?(\d+)\.(\d+)\.(\d+)`)

// Fetcher retrieves bytes from a URL. http.DefaultClient-backed in
// production; tests substitute a fake.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher fetches over real HTTP with a timeout per request.
type HTTPFetcher struct{}

// Fetch issues a GET request bounded by fetchTimeout and reads at
// most maxGuideBytes of the body.
func (HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("docsearch: %s: status %d", url, resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxGuideBytes))
}

// Request bundles what DocSearch needs to search for one package.
type Request struct {
	Package    model.PackageRef
	UserURLs   []string
	ForgeOwner string // e.g. "owner/repo" on the canonical source forge
}

// Searcher retrieves migration guides, deduplicating concurrent
// fetches of the same URL across packages in a group via singleflight.
type Searcher struct {
	Fetcher Fetcher
	group   singleflight.Group
}

// New creates a Searcher. A nil fetcher defaults to HTTPFetcher{}.
func New(fetcher Fetcher) *Searcher {
	if fetcher == nil {
		fetcher = HTTPFetcher{}
	}
	return &Searcher{Fetcher: fetcher}
}

// Search launches the five strategies in parallel and returns up to
// maxGuides guides, sorted by relevance descending and deduplicated
// by URL. Strategies that fail are silently omitted — DocSearch has
// no all-or-nothing contract.
func (s *Searcher) Search(ctx context.Context, req Request) []model.MigrationGuide {
	var guides []model.MigrationGuide
	results := make(chan model.MigrationGuide, 32)

	g, ctx := errgroup.WithContext(context.WithoutCancel(ctx))

	g.Go(func() error { s.userURLs(ctx, req, results); return nil })
	g.Go(func() error { s.curatedDocs(ctx, req, results); return nil })
	g.Go(func() error { s.releaseNotes(ctx, req, results); return nil })
	g.Go(func() error { s.changelog(ctx, req, results); return nil })
	g.Go(func() error { s.homepage(ctx, req, results); return nil })

	_ = g.Wait()
	close(results)

	for guide := range results {
		guides = append(guides, guide)
	}

	return rankAndDedup(guides)
}

func (s *Searcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	v, err, _ := s.group.Do(url, func() (any, error) {
		return s.Fetcher.Fetch(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *Searcher) userURLs(ctx context.Context, req Request, out chan<- model.MigrationGuide) {
	for _, url := range req.UserURLs {
		data, err := s.fetchOnce(ctx, url)
		if err != nil {
			continue
		}
		out <- model.MigrationGuide{Source: "user-provided", URL: url, Content: string(data), Relevance: relevanceUserURL}
	}
}

func (s *Searcher) curatedDocs(ctx context.Context, req Request, out chan<- model.MigrationGuide) {
	fn, ok := knownDocs[req.Package.Name]
	if !ok {
		return
	}
	for _, url := range fn(req.Package.LatestVersion) {
		data, err := s.fetchOnce(ctx, url)
		if err != nil {
			continue
		}
		out <- model.MigrationGuide{Source: "curated", URL: url, Content: string(data), Relevance: relevanceCuratedDocs}
	}
}

func (s *Searcher) releaseNotes(ctx context.Context, req Request, out chan<- model.MigrationGuide) {
	if req.ForgeOwner == "" {
		return
	}
	tagFormats := []string{
		"v" + req.Package.LatestVersion,
		req.Package.LatestVersion,
		req.Package.Name + "@" + req.Package.LatestVersion,
	}
	for _, tag := range tagFormats {
		apiURL := fmt.Sprintf("https://api.github.com/repos/%s/releases/tags/%s", req.ForgeOwner, tag)
		if data, err := s.fetchOnce(ctx, apiURL); err == nil {
			out <- model.MigrationGuide{Source: "release-notes", URL: apiURL, Content: string(data), Relevance: relevanceReleaseNote}
			return
		}
		htmlURL := fmt.Sprintf("https://github.com/%s/releases/tag/%s", req.ForgeOwner, tag)
		if data, err := s.fetchOnce(ctx, htmlURL); err == nil {
			out <- model.MigrationGuide{Source: "release-notes", URL: htmlURL, Content: string(data), Relevance: relevanceReleaseNote}
			return
		}
	}
}

func (s *Searcher) changelog(ctx context.Context, req Request, out chan<- model.MigrationGuide) {
	if req.ForgeOwner == "" {
		return
	}
	for _, branch := range []string{"main", "master"} {
		for _, filename := range changelogFilenames {
			url := fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", req.ForgeOwner, branch, filename)
			data, err := s.fetchOnce(ctx, url)
			if err != nil {
				continue
			}
			windowed := extractVersionWindow(string(data), req.Package.CurrentVersion, req.Package.LatestVersion)
			if windowed == "" {
				continue
			}
			out <- model.MigrationGuide{Source: "changelog", URL: url, Content: windowed, Relevance: relevanceChangelog}
			return
		}
	}
}

func (s *Searcher) homepage(ctx context.Context, req Request, out chan<- model.MigrationGuide) {
	if req.Package.Homepage == "" {
		return
	}
	data, err := s.fetchOnce(ctx, req.Package.Homepage)
	if err != nil {
		return
	}
	out <- model.MigrationGuide{
		Source:    "homepage",
		URL:       req.Package.Homepage,
		Content:   extractMigrationParagraphs(string(data)),
		Relevance: relevanceHomepage,
	}
}

// extractVersionWindow captures changelog lines between a header
// whose major version is <= target's major and > from's major, and
// the next header whose major is <= from's major. Capped at 150 lines.
func extractVersionWindow(changelog, from, target string) string {
	fromMajor := majorOf(from)
	targetMajor := majorOf(target)

	var b strings.Builder
	capturing := false
	lineCount := 0

	scanner := bufio.NewScanner(strings.NewReader(changelog))
	for scanner.Scan() {
		line := scanner.Text()
		if m := versionHeaderPattern.FindStringSubmatch(line); m != nil {
			major, _ := strconv.Atoi(m[1])
			switch {
			case major <= fromMajor:
				if capturing {
					return b.String()
				}
				capturing = false
				continue
			case major <= targetMajor:
				capturing = true
			}
		}
		if capturing {
			if lineCount >= 150 {
				return b.String()
			}
			b.WriteString(line)
			b.WriteString("\n")
			lineCount++
		}
	}
	return b.String()
}

func majorOf(version string) int {
	parts := strings.SplitN(strings.TrimPrefix(version, "v"), ".", 2)
	n, _ := strconv.Atoi(parts[0])
	return n
}

// migrationKeywords flags paragraphs worth extracting from a
// homepage's prose.
var migrationKeywords = []string{"migrat", "upgrad", "breaking change", "deprecat"}

func extractMigrationParagraphs(html string) string {
	var b strings.Builder
	paragraphs := strings.Split(html, "\n\n")
	for _, p := range paragraphs {
		lower := strings.ToLower(p)
		for _, kw := range migrationKeywords {
			if strings.Contains(lower, kw) {
				b.WriteString(p)
				b.WriteString("\n\n")
				break
			}
		}
	}
	return b.String()
}

func rankAndDedup(guides []model.MigrationGuide) []model.MigrationGuide {
	seen := make(map[string]bool, len(guides))
	deduped := make([]model.MigrationGuide, 0, len(guides))
	for _, g := range guides {
		if seen[g.URL] {
			continue
		}
		seen[g.URL] = true
		if len(g.Content) > maxGuideBytes {
			g.Content = g.Content[:maxGuideBytes]
		}
		deduped = append(deduped, g)
	}

	sort.SliceStable(deduped, func(i, j int) bool { return deduped[i].Relevance > deduped[j].Relevance })
	if len(deduped) > maxGuides {
		deduped = deduped[:maxGuides]
	}
	return deduped
}
