package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
	"github.com/devpost-labs/devpost-upgrade/internal/pm"
)

func TestParseOutdatedEmptyStdout(t *testing.T) {
	entries, err := parseOutdated("")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestParseOutdatedNPMShape(t *testing.T) {
	stdout := `{"chalk":{"current":"4.0.0","wanted":"4.1.2","latest":"5.3.0"}}`
	entries, err := parseOutdated(stdout)
	require.NoError(t, err)
	require.Equal(t, "4.0.0", entries["chalk"].Current)
	require.Equal(t, "5.3.0", entries["chalk"].Latest)
}

func TestParseOutdatedMalformedReturnsError(t *testing.T) {
	_, err := parseOutdated("not json")
	require.Error(t, err)
}

func TestNormalizeVersionStripsRangeOperators(t *testing.T) {
	require.Equal(t, "5.3.0", normalizeVersion("^5.3.0"))
	require.Equal(t, "5.3.0", normalizeVersion("~5.3.0"))
	require.Equal(t, "5.3.0", normalizeVersion(">=5.3.0"))
	require.Equal(t, "5.3.0", normalizeVersion("5.3.0"))
}

func TestClassifyChangeMajor(t *testing.T) {
	require.Equal(t, model.ChangeMajor, ClassifyChange("4.0.0", "5.3.0"))
}

func TestClassifyChangeMinor(t *testing.T) {
	require.Equal(t, model.ChangeMinor, ClassifyChange("4.0.0", "4.1.0"))
}

func TestClassifyChangePatch(t *testing.T) {
	require.Equal(t, model.ChangePatch, ClassifyChange("4.0.0", "4.0.1"))
}

func TestClassifyChangeUnknownOnInvalidVersion(t *testing.T) {
	require.Equal(t, model.ChangeUnknown, ClassifyChange("not-a-version", "4.0.1"))
}

func TestForgeOwnerFromRepositoryHandlesStringForm(t *testing.T) {
	require.Equal(t, "facebook/react", forgeOwnerFromRepository("git+https://github.com/facebook/react.git"))
}

func TestForgeOwnerFromRepositoryHandlesObjectForm(t *testing.T) {
	repo := map[string]any{"type": "git", "url": "git://github.com/webpack/webpack.git"}
	require.Equal(t, "webpack/webpack", forgeOwnerFromRepository(repo))
}

func TestForgeOwnerFromRepositorySSHForm(t *testing.T) {
	require.Equal(t, "owner/repo", forgeOwnerFromRepository("git@github.com:owner/repo.git"))
}

func TestForgeOwnerFromRepositoryNonGitHubYieldsEmpty(t *testing.T) {
	require.Empty(t, forgeOwnerFromRepository("https://gitlab.com/owner/repo.git"))
}

func TestForgeOwnerFromRepositoryUnrecognizedTypeYieldsEmpty(t *testing.T) {
	require.Empty(t, forgeOwnerFromRepository(42))
}

func TestParseRegistryMetaNPMShape(t *testing.T) {
	stdout := `{"homepage":"https://react.dev/","repository":{"type":"git","url":"git+https://github.com/facebook/react.git"}}`
	meta, ok := parseRegistryMeta(pm.NPM, stdout)
	require.True(t, ok)
	require.Equal(t, "https://react.dev/", meta.Homepage)
}

func TestParseRegistryMetaYarnEnvelope(t *testing.T) {
	stdout := `{"type":"inspect","data":{"homepage":"https://webpack.js.org/","repository":"git+https://github.com/webpack/webpack.git"}}`
	meta, ok := parseRegistryMeta(pm.Yarn, stdout)
	require.True(t, ok)
	require.Equal(t, "https://webpack.js.org/", meta.Homepage)
}

func TestParseRegistryMetaMalformedReturnsFalse(t *testing.T) {
	_, ok := parseRegistryMeta(pm.NPM, "not json")
	require.False(t, ok)
}
