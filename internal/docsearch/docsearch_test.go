package docsearch

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
)

type fakeFetcher struct {
	responses map[string][]byte
	calls     map[string]int
}

func newFakeFetcher(responses map[string][]byte) *fakeFetcher {
	return &fakeFetcher{responses: responses, calls: map[string]int{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls[url]++
	data, ok := f.responses[url]
	if !ok {
		return nil, fmt.Errorf("fake: no response for %s", url)
	}
	return data, nil
}

func TestSearchCollectsUserURLs(t *testing.T) {
	fetcher := newFakeFetcher(map[string][]byte{
		"https://example.com/guide.md": []byte("migration content"),
	})
	s := New(fetcher)

	guides := s.Search(context.Background(), Request{
		Package: model.PackageRef{Name: "chalk", CurrentVersion: "4.0.0", LatestVersion: "5.3.0"},
		UserURLs: []string{"https://example.com/guide.md"},
	})

	require.Len(t, guides, 1)
	require.Equal(t, relevanceUserURL, guides[0].Relevance)
}

func TestSearchUsesCuratedDocsForKnownPackage(t *testing.T) {
	fetcher := newFakeFetcher(map[string][]byte{
		"https://react.dev/blog/2024/04/25/react-19-upgrade-guide": []byte("react 19 upgrade guide"),
	})
	s := New(fetcher)

	guides := s.Search(context.Background(), Request{
		Package: model.PackageRef{Name: "react", CurrentVersion: "18.0.0", LatestVersion: "19.0.0"},
	})

	require.Len(t, guides, 1)
	require.Equal(t, "curated", guides[0].Source)
}

func TestSearchReturnsNothingWhenAllFetchesFail(t *testing.T) {
	fetcher := newFakeFetcher(map[string][]byte{})
	s := New(fetcher)

	guides := s.Search(context.Background(), Request{
		Package: model.PackageRef{Name: "left-pad", CurrentVersion: "1.0.0", LatestVersion: "1.0.1"},
	})
	require.Empty(t, guides)
}

func TestSearchDedupsDuplicateUserURLs(t *testing.T) {
	fetcher := newFakeFetcher(map[string][]byte{
		"https://example.com/shared.md": []byte("shared content"),
	})
	s := New(fetcher)

	guides := s.Search(context.Background(), Request{
		Package:  model.PackageRef{Name: "chalk", CurrentVersion: "4.0.0", LatestVersion: "5.3.0"},
		UserURLs: []string{"https://example.com/shared.md", "https://example.com/shared.md"},
	})
	require.Len(t, guides, 1, "duplicate URLs should dedup to one guide")
}

func TestRankAndDedupSortsByRelevanceDescending(t *testing.T) {
	guides := []model.MigrationGuide{
		{URL: "a", Relevance: 6},
		{URL: "b", Relevance: 15},
		{URL: "c", Relevance: 9},
	}
	result := rankAndDedup(guides)
	require.Equal(t, "b", result[0].URL)
	require.Equal(t, "c", result[1].URL)
	require.Equal(t, "a", result[2].URL)
}

func TestRankAndDedupCapsAtFive(t *testing.T) {
	var guides []model.MigrationGuide
	for i := 0; i < 10; i++ {
		guides = append(guides, model.MigrationGuide{URL: fmt.Sprintf("url-%d", i), Relevance: i})
	}
	require.Len(t, rankAndDedup(guides), maxGuides)
}

func TestExtractVersionWindowCapturesBetweenHeaders(t *testing.T) {
	changelog := "## 5.3.0\nfeature five\n## 5.0.0\nfeature five base\n## 4.2.0\nold stuff\n"
	window := extractVersionWindow(changelog, "4.0.0", "5.3.0")
	require.Contains(t, window, "feature five")
	require.NotContains(t, window, "old stuff")
}

func TestMajorOfParsesLeadingComponent(t *testing.T) {
	require.Equal(t, 5, majorOf("5.3.0"))
	require.Equal(t, 5, majorOf("v5.3.0"))
}
