package progress

import (
	"fmt"
	"sync"

	"github.com/slok/qchat/internal/model"
)

// TickMsg asks the interactive thread to advance the progress indicator of a run.
type TickMsg struct {
	Run uint64
}

// Machine is the Idle/Running state machine that drives the progress indicator.
// Each Idle→Running transition starts a new run, ticks of older runs are ignored.
type Machine struct {
	mu      sync.Mutex
	running bool
	tick    int
	run     uint64
}

// NewMachine returns an idle machine.
func NewMachine() *Machine {
	return &Machine{}
}

// Begin moves the machine to Running and returns the new run number.
func (m *Machine) Begin() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return 0, fmt.Errorf("run %d in progress: %w", m.run, model.ErrSubmissionRejected)
	}

	m.running = true
	m.tick = 0
	m.run++

	return m.run, nil
}

// End moves the machine to Idle, returns false if it was already idle.
func (m *Machine) End() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return false
	}
	m.running = false

	return true
}

// Abort rolls back a Begin.
func (m *Machine) Abort() { m.End() }

// Advance moves the indicator one step for the current run.
// ok is false when idle or when run is not the current one, the caller must
// stop ticking in that case.
func (m *Machine) Advance(run uint64) (step int, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running || run != m.run {
		return m.tick, false
	}
	m.tick = (m.tick + 1) % model.ProgressTicks

	return m.tick, true
}

// State returns a snapshot of the current state.
func (m *Machine) State() model.ProgressState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return model.ProgressState{Running: m.running, Tick: m.tick}
}

// Run returns the current or last run number.
func (m *Machine) Run() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.run
}
