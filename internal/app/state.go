package app

import "fmt"

type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateGenerating State = "generating"
	StateWriting    State = "writing"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateDone || s == StateFailed }

var transitions = map[State][]State{
	StateIdle:       {StateValidating},
	StateValidating: {StateGenerating, StateFailed},
	StateGenerating: {StateWriting, StateFailed},
	StateWriting:    {StateDone, StateFailed},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// stateMachine tracks a single Submit call. For incremental formats Writing
// starts with the first batch handed to the writer; for whole-document
// formats it starts once every batch has been generated. The observer may
// be called from the writer goroutine when batches are prefetched.
type stateMachine struct {
	runID    string
	state    State
	observer func(runID string, from, to State)
}

func newStateMachine(runID string, observer func(string, State, State)) *stateMachine {
	return &stateMachine{runID: runID, state: StateIdle, observer: observer}
}

func (m *stateMachine) to(next State) {
	if !canTransition(m.state, next) {
		panic(fmt.Sprintf("invalid state transition %s -> %s", m.state, next))
	}
	prev := m.state
	m.state = next
	if m.observer != nil {
		m.observer(m.runID, prev, next)
	}
}
