package process

import (
	"fmt"

	"ai-askdata-be/internal/pkg/logger"
)

// Mode selects how a Machine reacts to illegal transitions.
//
// The ask flow reconciles poll results that can arrive out of order, so it runs
// permissive: an illegal target is logged and ignored. Simpler flows run strict
// and treat an illegal target as a programming error.
type Mode int

const (
	Strict Mode = iota
	Permissive
)

// InvalidTransitionError is returned by a strict Machine for a move not allowed
// by the transition table.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid process transition: %s -> %s", e.From, e.To)
}

// Machine tracks the current state of one asking process.
// It is not safe for concurrent use; each ask run owns its own machine.
type Machine struct {
	current State
	mode    Mode
	logger  logger.ILogger
}

func NewMachine(mode Mode, log logger.ILogger) *Machine {
	return &Machine{
		current: StateIdle,
		mode:    mode,
		logger:  log,
	}
}

func (m *Machine) Current() State {
	return m.current
}

// TransitionTo moves the machine to target if the transition table allows it.
// In Strict mode an illegal target returns an InvalidTransitionError; in
// Permissive mode it is logged as a warning and the current state is returned
// unchanged.
func (m *Machine) TransitionTo(target State) (State, error) {
	if target == m.current {
		return m.current, nil
	}
	if !CanTransition(m.current, target) {
		if m.mode == Strict {
			return m.current, &InvalidTransitionError{From: m.current, To: target}
		}
		if m.logger != nil {
			m.logger.Warn("Process", "Ignoring illegal transition", map[string]interface{}{
				"from": string(m.current),
				"to":   string(target),
			})
		}
		return m.current, nil
	}
	m.current = target
	return m.current, nil
}

// Reset returns the machine to Idle for a fresh question.
func (m *Machine) Reset() State {
	m.current = StateIdle
	return m.current
}
