package orchestrator

import (
	"fmt"
	"sync"

	"github.com/devpost-labs/devpost-upgrade/internal/model"
)

// ErrInvalidTransition is returned when a phase transition is not in
// the state machine's transition table.
var ErrInvalidTransition = fmt.Errorf("orchestrator: invalid phase transition")

// StateMachine enforces the nine-phase transition graph of spec.md
// §4.1:
//
//	ANALYZE   -> GROUP, COMPLETE
//	GROUP     -> UPDATE, COMPLETE
//	UPDATE    -> REPRODUCE, COMPLETE
//	REPRODUCE -> COMMIT, LOCALIZE
//	LOCALIZE  -> FIX, COMPLETE
//	FIX       -> VALIDATE, COMPLETE
//	VALIDATE  -> COMMIT, LOCALIZE, COMPLETE
//	COMMIT    -> UPDATE, COMPLETE
//
// Grounded on the teacher's agent.StateMachine
// (services/code_buddy/agent/state_machine.go): an explicit
// map[Phase]map[Phase]bool transition table rather than a generic
// graph-walker, so every legal edge is visible in one place.
type StateMachine struct {
	mu          sync.RWMutex
	transitions map[model.Phase]map[model.Phase]bool
}

// NewStateMachine builds the transition table fixed by spec.md §4.1.
func NewStateMachine() *StateMachine {
	sm := &StateMachine{transitions: make(map[model.Phase]map[model.Phase]bool)}
	for _, phase := range model.AllPhases() {
		sm.transitions[phase] = make(map[model.Phase]bool)
	}

	sm.addTransition(model.PhaseAnalyze, model.PhaseGroup)
	sm.addTransition(model.PhaseAnalyze, model.PhaseComplete)

	sm.addTransition(model.PhaseGroup, model.PhaseUpdate)
	sm.addTransition(model.PhaseGroup, model.PhaseComplete)

	sm.addTransition(model.PhaseUpdate, model.PhaseReproduce)
	sm.addTransition(model.PhaseUpdate, model.PhaseComplete)

	sm.addTransition(model.PhaseReproduce, model.PhaseCommit)
	sm.addTransition(model.PhaseReproduce, model.PhaseLocalize)

	sm.addTransition(model.PhaseLocalize, model.PhaseFix)
	sm.addTransition(model.PhaseLocalize, model.PhaseComplete)

	sm.addTransition(model.PhaseFix, model.PhaseValidate)
	sm.addTransition(model.PhaseFix, model.PhaseComplete)

	sm.addTransition(model.PhaseValidate, model.PhaseCommit)
	sm.addTransition(model.PhaseValidate, model.PhaseLocalize)
	sm.addTransition(model.PhaseValidate, model.PhaseComplete)

	sm.addTransition(model.PhaseCommit, model.PhaseUpdate)
	sm.addTransition(model.PhaseCommit, model.PhaseComplete)

	return sm
}

func (sm *StateMachine) addTransition(from, to model.Phase) {
	sm.transitions[from][to] = true
}

// CanTransition reports whether from -> to is a legal edge.
func (sm *StateMachine) CanTransition(from, to model.Phase) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if toMap, ok := sm.transitions[from]; ok {
		return toMap[to]
	}
	return false
}

// Transition validates and applies a phase change to state, returning
// ErrInvalidTransition if the edge is not in the table.
func (sm *StateMachine) Transition(state *model.RunState, to model.Phase) error {
	if !sm.CanTransition(state.Phase, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, state.Phase, to)
	}
	state.Phase = to
	return nil
}

// ValidTransitionsFrom returns every phase reachable in one step from.
func (sm *StateMachine) ValidTransitionsFrom(from model.Phase) []model.Phase {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	var result []model.Phase
	if toMap, ok := sm.transitions[from]; ok {
		for phase, valid := range toMap {
			if valid {
				result = append(result, phase)
			}
		}
	}
	return result
}
