package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
)

func TestCanTransitionAllowsDocumentedEdges(t *testing.T) {
	sm := NewStateMachine()
	require.True(t, sm.CanTransition(model.PhaseAnalyze, model.PhaseGroup))
	require.True(t, sm.CanTransition(model.PhaseAnalyze, model.PhaseComplete))
	require.True(t, sm.CanTransition(model.PhaseReproduce, model.PhaseCommit))
	require.True(t, sm.CanTransition(model.PhaseReproduce, model.PhaseLocalize))
	require.True(t, sm.CanTransition(model.PhaseValidate, model.PhaseLocalize))
	require.True(t, sm.CanTransition(model.PhaseCommit, model.PhaseUpdate))
}

func TestCanTransitionRejectsUndocumentedEdges(t *testing.T) {
	sm := NewStateMachine()
	require.False(t, sm.CanTransition(model.PhaseAnalyze, model.PhaseCommit))
	require.False(t, sm.CanTransition(model.PhaseComplete, model.PhaseAnalyze))
	require.False(t, sm.CanTransition(model.PhaseUpdate, model.PhaseFix))
}

func TestTransitionMutatesStateOnSuccess(t *testing.T) {
	sm := NewStateMachine()
	state := &model.RunState{Phase: model.PhaseAnalyze}

	require.NoError(t, sm.Transition(state, model.PhaseGroup))
	require.Equal(t, model.PhaseGroup, state.Phase)
}

func TestTransitionRejectsInvalidEdge(t *testing.T) {
	sm := NewStateMachine()
	state := &model.RunState{Phase: model.PhaseAnalyze}

	err := sm.Transition(state, model.PhaseCommit)
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, model.PhaseAnalyze, state.Phase, "state must not change on a rejected transition")
}

func TestValidTransitionsFromReproduce(t *testing.T) {
	sm := NewStateMachine()
	targets := sm.ValidTransitionsFrom(model.PhaseReproduce)
	require.ElementsMatch(t, []model.Phase{model.PhaseCommit, model.PhaseLocalize}, targets)
}

func TestCompleteHasNoOutgoingTransitions(t *testing.T) {
	sm := NewStateMachine()
	require.Empty(t, sm.ValidTransitionsFrom(model.PhaseComplete))
}
