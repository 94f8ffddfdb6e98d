package export

import (
	"sync"
	"time"
)

// State is a phase of an export job.
type State string

const (
	StateIdle      State = "idle"
	StateCompiling State = "compiling"
	StateExecuting State = "executing"
	StatePackaging State = "packaging"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transitions can follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// Transition records one state change.
type Transition struct {
	From State
	To   State
	At   time.Time
}

type stateMachine struct {
	mu          sync.RWMutex
	state       State
	transitions []Transition
	now         func() time.Time
}

func newStateMachine(now func() time.Time) *stateMachine {
	return &stateMachine{state: StateIdle, now: now}
}

func (m *stateMachine) current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *stateMachine) history() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Transition(nil), m.transitions...)
}

// advance moves to next and returns the previous state. Terminal states are
// sticky.
func (m *stateMachine) advance(next State) (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.state
	if prev.Terminal() || prev == next {
		return prev, false
	}
	m.state = next
	m.transitions = append(m.transitions, Transition{From: prev, To: next, At: m.now()})
	return prev, true
}
