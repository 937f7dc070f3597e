package process

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{"idle starts understanding", StateIdle, StateUnderstanding, true},
		{"idle cannot skip to searching", StateIdle, StateSearching, false},
		{"understanding to searching", StateUnderstanding, StateSearching, true},
		{"understanding may skip to planning", StateUnderstanding, StatePlanning, true},
		{"understanding may skip to generating", StateUnderstanding, StateGenerating, true},
		{"searching to planning", StateSearching, StatePlanning, true},
		{"searching cannot go back", StateSearching, StateUnderstanding, false},
		{"planning to generating", StatePlanning, StateGenerating, true},
		{"generating to correcting", StateGenerating, StateCorrecting, true},
		{"generating to finished", StateGenerating, StateFinished, true},
		{"correcting to finished", StateCorrecting, StateFinished, true},
		{"abort from idle", StateIdle, StateStopped, true},
		{"abort from searching", StateSearching, StateStopped, true},
		{"abort from correcting", StateCorrecting, StateStopped, true},
		{"fail from understanding", StateUnderstanding, StateFailed, true},
		{"no exit from finished", StateFinished, StateUnderstanding, false},
		{"no exit from failed", StateFailed, StateStopped, false},
		{"no exit from stopped", StateStopped, StateFinished, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStrictMachineRejectsIllegalTransition(t *testing.T) {
	m := NewMachine(Strict, nil)

	_, err := m.TransitionTo(StateUnderstanding)
	require.NoError(t, err)

	// Correcting is only reachable from Generating.
	_, err = m.TransitionTo(StateCorrecting)
	require.Error(t, err)

	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, StateUnderstanding, invalid.From)
	assert.Equal(t, StateCorrecting, invalid.To)

	// The machine stays where it was.
	assert.Equal(t, StateUnderstanding, m.Current())
}

func TestPermissiveMachineIgnoresIllegalTransition(t *testing.T) {
	m := NewMachine(Permissive, nil)

	_, err := m.TransitionTo(StateUnderstanding)
	require.NoError(t, err)

	state, err := m.TransitionTo(StateCorrecting)
	require.NoError(t, err)
	assert.Equal(t, StateUnderstanding, state)
}

func TestPermissiveMachineAcceptsSkippedStages(t *testing.T) {
	// A poll loop may only observe UNDERSTANDING, GENERATING, FINISHED when
	// intermediate stages pass between ticks.
	m := NewMachine(Permissive, nil)

	for _, s := range []State{StateUnderstanding, StateGenerating, StateFinished} {
		state, err := m.TransitionTo(s)
		require.NoError(t, err)
		assert.Equal(t, s, state)
	}
	assert.True(t, m.Current().IsTerminal())
}

func TestStrictMachineRejectsSkippedTerminalJump(t *testing.T) {
	m := NewMachine(Strict, nil)

	_, err := m.TransitionTo(StateUnderstanding)
	require.NoError(t, err)

	// Terminal targets are always reachable, but a forward jump over stages
	// to a non-terminal is not.
	_, err = m.TransitionTo(StateFinished)
	require.NoError(t, err)

	_, err = m.TransitionTo(StateGenerating)
	require.Error(t, err)
}

func TestSameStateTransitionIsNoOp(t *testing.T) {
	m := NewMachine(Strict, nil)

	_, err := m.TransitionTo(StateUnderstanding)
	require.NoError(t, err)

	state, err := m.TransitionTo(StateUnderstanding)
	require.NoError(t, err)
	assert.Equal(t, StateUnderstanding, state)
}

func TestAbortFromEveryNonTerminalState(t *testing.T) {
	for _, from := range []State{StateIdle, StateUnderstanding, StateSearching, StatePlanning, StateGenerating, StateCorrecting} {
		assert.True(t, CanTransition(from, StateStopped), "expected abort allowed from %s", from)
		assert.True(t, CanTransition(from, StateFailed), "expected failure allowed from %s", from)
	}
}

func TestAtLeast(t *testing.T) {
	tests := []struct {
		name  string
		state State
		stage State
		want  bool
	}{
		{"idle has not reached searching", StateIdle, StateSearching, false},
		{"understanding has not reached searching", StateUnderstanding, StateSearching, false},
		{"searching has reached searching", StateSearching, StateSearching, true},
		{"generating has reached searching", StateGenerating, StateSearching, true},
		{"correcting has reached planning", StateCorrecting, StatePlanning, true},
		{"finished is past every stage", StateFinished, StateCorrecting, true},
		{"failed is past every stage", StateFailed, StateSearching, true},
		{"no result is past every stage", StateNoResult, StateGenerating, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.AtLeast(tt.stage))
		})
	}
}

func TestFinalize(t *testing.T) {
	tests := []struct {
		name       string
		state      State
		candidates int
		want       State
	}{
		{"finished with candidates", StateFinished, 2, StateFinished},
		{"finished without candidates becomes no result", StateFinished, 0, StateNoResult},
		{"failed stays failed", StateFailed, 0, StateFailed},
		{"stopped stays stopped", StateStopped, 0, StateStopped},
		{"non terminal untouched", StateGenerating, 0, StateGenerating},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Finalize(tt.state, tt.candidates))
		})
	}
}

func TestReset(t *testing.T) {
	m := NewMachine(Permissive, nil)

	_, err := m.TransitionTo(StateUnderstanding)
	require.NoError(t, err)

	assert.Equal(t, StateIdle, m.Reset())
	assert.Equal(t, StateIdle, m.Current())
}
