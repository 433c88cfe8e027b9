package operations

import (
	"fmt"
	"sync"
	"time"

	"notireport/pkg/contracts/domain"
)

// next is the only forward edge out of every non-terminal state
var next = map[domain.RunState]domain.RunState{
	domain.StateAwaitingFile:    domain.StateValidating,
	domain.StateValidating:      domain.StateReading,
	domain.StateReading:         domain.StateAggregating,
	domain.StateAggregating:     domain.StateRenderingCharts,
	domain.StateRenderingCharts: domain.StateWritingReport,
	domain.StateWritingReport:   domain.StateReadyForHandoff,
}

// Transition records one state change
type Transition struct {
	From domain.RunState `json:"from"`
	To   domain.RunState `json:"to"`
	At   time.Time       `json:"at"`
}

// StateMachine tracks a single run. The path is linear, every state is
// entered at most once and FAILED is terminal.
type StateMachine struct {
	mu sync.RWMutex

	current  domain.RunState
	history  []Transition
	err      error
	month    int
	monthSet bool
}

// NewStateMachine starts a run in AWAITING_FILE
func NewStateMachine() *StateMachine {
	return &StateMachine{current: domain.StateAwaitingFile}
}

// Current returns the state the run is in
func (m *StateMachine) Current() domain.RunState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Advance moves to the next state, which must be the single successor of
// the current one.
func (m *StateMachine) Advance(to domain.RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.IsTerminal() || next[m.current] != to {
		return NewInvalidTransitionError(m.current, to)
	}
	m.move(to)
	return nil
}

// Fail moves the run to FAILED with cause. Failing a finished run is an error.
func (m *StateMachine) Fail(cause error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.IsTerminal() {
		return NewInvalidTransitionError(m.current, domain.StateFailed)
	}
	m.err = cause
	m.move(domain.StateFailed)
	return nil
}

func (m *StateMachine) move(to domain.RunState) {
	m.history = append(m.history, Transition{From: m.current, To: to, At: time.Now()})
	m.current = to
}

// SelectMonth captures the optional month filter (0 means every month). It
// may be set once, and only before aggregation begins.
func (m *StateMachine) SelectMonth(month int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if month < 0 || month > 12 {
		return fmt.Errorf("month must be between 1 and 12, got %d", month)
	}
	if m.monthSet {
		return fmt.Errorf("month already selected")
	}
	if !m.beforeAggregation() {
		return NewInvalidTransitionError(m.current, domain.StateAggregating)
	}
	m.month = month
	m.monthSet = true
	return nil
}

func (m *StateMachine) beforeAggregation() bool {
	switch m.current {
	case domain.StateAwaitingFile, domain.StateValidating, domain.StateReading:
		return true
	}
	return false
}

// Month returns the selected month, 0 when none
func (m *StateMachine) Month() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.month
}

// Err returns the failure cause of a FAILED run
func (m *StateMachine) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.err
}

// History returns a copy of the transitions taken so far
func (m *StateMachine) History() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Transition(nil), m.history...)
}

// Path returns the visited states, starting with AWAITING_FILE
func (m *StateMachine) Path() []domain.RunState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path := []domain.RunState{domain.StateAwaitingFile}
	for _, t := range m.history {
		path = append(path, t.To)
	}
	return path
}
