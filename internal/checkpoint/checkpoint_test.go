package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
)

func TestHasFalseWhenNoFile(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), ".devpost-upgrade-state.json"))
	require.False(t, c.Has())
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), ".devpost-upgrade-state.json"))
	state := model.RunState{Phase: model.PhaseUpdate, RetryCount: 1}

	require.NoError(t, c.Save("thread-1", state))
	require.True(t, c.Has())

	loaded, ok, err := c.Load("thread-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.PhaseUpdate, loaded.Phase)
	require.Equal(t, 1, loaded.RetryCount)
}

func TestSaveOverwritesOlderRecordForSameThread(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), ".devpost-upgrade-state.json"))
	require.NoError(t, c.Save("thread-1", model.RunState{Phase: model.PhaseAnalyze}))
	require.NoError(t, c.Save("thread-1", model.RunState{Phase: model.PhaseValidate}))

	loaded, ok, err := c.Load("thread-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.PhaseValidate, loaded.Phase)

	data, err := c.readAll()
	require.NoError(t, err)
	require.Len(t, data, 1)
}

func TestSavePreservesOtherThreads(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), ".devpost-upgrade-state.json"))
	require.NoError(t, c.Save("thread-1", model.RunState{Phase: model.PhaseAnalyze}))
	require.NoError(t, c.Save("thread-2", model.RunState{Phase: model.PhaseGroup}))

	loaded1, ok, err := c.Load("thread-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, model.PhaseAnalyze, loaded1.Phase)
}

func TestLoadMissingThreadReturnsFalse(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), ".devpost-upgrade-state.json"))
	require.NoError(t, c.Save("thread-1", model.RunState{Phase: model.PhaseAnalyze}))

	_, ok, err := c.Load("unknown")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestClearRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".devpost-upgrade-state.json")
	c := New(path)
	require.NoError(t, c.Save("thread-1", model.RunState{Phase: model.PhaseAnalyze}))
	require.True(t, c.Has())

	require.NoError(t, c.Clear())
	require.False(t, c.Has())
}

func TestClearWithoutFileIsNoop(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), ".devpost-upgrade-state.json"))
	require.NoError(t, c.Clear())
}

func TestNewThreadIDIsUnique(t *testing.T) {
	require.NotEqual(t, NewThreadID(), NewThreadID())
}

func TestLastThreadIDReturnsFalseWhenEmpty(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), ".devpost-upgrade-state.json"))
	_, ok, err := c.LastThreadID()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestLastThreadIDReturnsMostRecentlySavedThread(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), ".devpost-upgrade-state.json"))
	require.NoError(t, c.Save("thread-1", model.RunState{Phase: model.PhaseAnalyze}))
	require.NoError(t, c.Save("thread-2", model.RunState{Phase: model.PhaseGroup}))

	id, ok, err := c.LastThreadID()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "thread-2", id)
}
