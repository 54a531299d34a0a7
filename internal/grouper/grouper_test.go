package grouper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
)

type fakeClient struct {
	response  string
	err       error
	available bool
}

func (f *fakeClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.response, f.err
}

func (f *fakeClient) Available() bool { return f.available }

func sampleRefs() []model.PackageRef {
	return []model.PackageRef{
		{Name: "chalk", CurrentVersion: "4.0.0", LatestVersion: "5.3.0"},
		{Name: "lodash", CurrentVersion: "4.17.20", LatestVersion: "4.17.21"},
	}
}

func TestGroupFallsBackWhenModelUnavailable(t *testing.T) {
	g := New(&fakeClient{available: false}, nil)
	plan := g.Group(context.Background(), sampleRefs())

	require.Len(t, plan.Groups, 2)
	require.Equal(t, majorGroupPriority, plan.Groups[0].Priority)
}

func TestGroupFallsBackOnMalformedModelResponse(t *testing.T) {
	g := New(&fakeClient{available: true, response: "not json"}, nil)
	plan := g.Group(context.Background(), sampleRefs())
	require.Len(t, plan.Groups, 2)
}

func TestGroupUsesModelProposalWhenValid(t *testing.T) {
	response := `{"groups": [{"packages": ["chalk"], "reasoning": "major", "priority": 5}, {"packages": ["lodash"], "reasoning": "patch", "priority": 1}]}`
	g := New(&fakeClient{available: true, response: response}, nil)
	plan := g.Group(context.Background(), sampleRefs())

	require.Len(t, plan.Groups, 2)
	require.Equal(t, 5, plan.Groups[0].Priority)
	require.Equal(t, "chalk", plan.Groups[0].Members[0].Name)
}

func TestGroupFallsBackWhenModelReferencesUnknownPackage(t *testing.T) {
	response := `{"groups": [{"packages": ["chalk", "ghost-package"], "reasoning": "x", "priority": 5}]}`
	g := New(&fakeClient{available: true, response: response}, nil)
	plan := g.Group(context.Background(), sampleRefs())
	require.Len(t, plan.Groups, 2) // fallback shape
}

func TestGroupFallsBackWhenDuplicatePackageAcrossGroups(t *testing.T) {
	response := `{"groups": [{"packages": ["chalk"], "priority": 5}, {"packages": ["chalk", "lodash"], "priority": 1}]}`
	g := New(&fakeClient{available: true, response: response}, nil)
	plan := g.Group(context.Background(), sampleRefs())
	require.Len(t, plan.Groups, 2)
}

func TestFallbackGroupsOmitsEmptyPartitions(t *testing.T) {
	refs := []model.PackageRef{{Name: "lodash", CurrentVersion: "4.17.20", LatestVersion: "4.17.21"}}
	groups := fallbackGroups(refs)
	require.Len(t, groups, 1)
	require.Equal(t, nonMajorGroupPriority, groups[0].Priority)
}
