package progress_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/qchat/internal/model"
	"github.com/slok/qchat/internal/progress"
)

func TestMachineTransitions(t *testing.T) {
	tests := map[string]struct {
		exec     func(t *testing.T, m *progress.Machine)
		expState model.ProgressState
	}{
		"A new machine should be idle.": {
			exec:     func(t *testing.T, m *progress.Machine) {},
			expState: model.ProgressState{Running: false, Tick: 0},
		},

		"Beginning should set the machine running.": {
			exec: func(t *testing.T, m *progress.Machine) {
				run, err := m.Begin()
				require.NoError(t, err)
				assert.Equal(t, uint64(1), run)
			},
			expState: model.ProgressState{Running: true, Tick: 0},
		},

		"Beginning while running should be rejected without changes.": {
			exec: func(t *testing.T, m *progress.Machine) {
				_, err := m.Begin()
				require.NoError(t, err)
				m.Advance(1)

				_, err = m.Begin()
				assert.ErrorIs(t, err, model.ErrSubmissionRejected)
				assert.Equal(t, uint64(1), m.Run())
			},
			expState: model.ProgressState{Running: true, Tick: 1},
		},

		"Ending should set the machine idle.": {
			exec: func(t *testing.T, m *progress.Machine) {
				_, err := m.Begin()
				require.NoError(t, err)
				assert.True(t, m.End())
			},
			expState: model.ProgressState{Running: false, Tick: 0},
		},

		"Ending an idle machine should do nothing.": {
			exec: func(t *testing.T, m *progress.Machine) {
				assert.False(t, m.End())
			},
			expState: model.ProgressState{Running: false, Tick: 0},
		},

		"Aborting should roll back a begin.": {
			exec: func(t *testing.T, m *progress.Machine) {
				_, err := m.Begin()
				require.NoError(t, err)
				m.Abort()
			},
			expState: model.ProgressState{Running: false, Tick: 0},
		},

		"A new run should restart the indicator.": {
			exec: func(t *testing.T, m *progress.Machine) {
				run, err := m.Begin()
				require.NoError(t, err)
				m.Advance(run)
				m.Advance(run)
				m.End()

				run, err = m.Begin()
				require.NoError(t, err)
				assert.Equal(t, uint64(2), run)
			},
			expState: model.ProgressState{Running: true, Tick: 0},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m := progress.NewMachine()
			test.exec(t, m)
			assert.Equal(t, test.expState, m.State())
		})
	}
}

func TestMachineAdvance(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	m := progress.NewMachine()

	_, ok := m.Advance(0)
	assert.False(ok, "idle machine should not advance")

	run, err := m.Begin()
	require.NoError(err)

	// A full rotation wraps to zero.
	for i := 1; i <= model.ProgressTicks; i++ {
		step, ok := m.Advance(run)
		require.True(ok)
		assert.Equal(i%model.ProgressTicks, step)
	}

	_, ok = m.Advance(run + 1)
	assert.False(ok, "unknown run should not advance")

	m.End()
	_, ok = m.Advance(run)
	assert.False(ok, "ended run should not advance")
}

func TestMachineStaleRunDoesNotAdvance(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	m := progress.NewMachine()

	old, err := m.Begin()
	require.NoError(err)
	m.End()

	current, err := m.Begin()
	require.NoError(err)

	_, ok := m.Advance(old)
	assert.False(ok)

	step, ok := m.Advance(current)
	assert.True(ok)
	assert.Equal(1, step)
}
