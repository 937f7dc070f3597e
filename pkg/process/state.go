package process

// State is the lifecycle stage of one asking process.
type State string

const (
	StateIdle          State = "IDLE"
	StateUnderstanding State = "UNDERSTANDING"
	StateSearching     State = "SEARCHING"
	StatePlanning      State = "PLANNING"
	StateGenerating    State = "GENERATING"
	StateCorrecting    State = "CORRECTING"
	StateFinished      State = "FINISHED"
	StateFailed        State = "FAILED"
	StateStopped       State = "STOPPED"

	// StateNoResult is a presentation-level terminal: a finished task that
	// produced zero candidate answers. It never appears in the adjacency table.
	StateNoResult State = "NO_RESULT"
)

// transitions is the forward adjacency table. Targets listed here are the only
// legal non-terminal moves; terminal targets are always allowed from any
// non-terminal state (see CanTransition).
var transitions = map[State][]State{
	StateIdle: {StateUnderstanding},
	// First poll may already observe Searching, Planning or Generating because
	// the remote service can advance faster than the poll interval.
	StateUnderstanding: {StateSearching, StatePlanning, StateGenerating},
	StateSearching:     {StatePlanning},
	StatePlanning:      {StateGenerating},
	StateGenerating:    {StateCorrecting, StateFinished, StateFailed},
	StateCorrecting:    {StateFinished, StateFailed},
}

// IsTerminal reports whether no further automatic transition happens from s.
func (s State) IsTerminal() bool {
	switch s {
	case StateFinished, StateFailed, StateStopped, StateNoResult:
		return true
	}
	return false
}

func (s State) IsValid() bool {
	switch s {
	case StateIdle, StateUnderstanding, StateSearching, StatePlanning,
		StateGenerating, StateCorrecting, StateFinished, StateFailed,
		StateStopped, StateNoResult:
		return true
	}
	return false
}

// stageIndex orders the happy-path pipeline stages. All terminal states sit
// past every pipeline stage.
var stageIndex = map[State]int{
	StateIdle:          0,
	StateUnderstanding: 1,
	StateSearching:     2,
	StatePlanning:      3,
	StateGenerating:    4,
	StateCorrecting:    5,
	StateFinished:      6,
	StateFailed:        6,
	StateStopped:       6,
	StateNoResult:      6,
}

// AtLeast reports whether s is at or past stage in pipeline order.
func (s State) AtLeast(stage State) bool {
	return stageIndex[s] >= stageIndex[stage]
}

// CanTransition reports whether from -> to is a legal move. Any non-terminal
// state may abort or complete straight to Finished, Failed or Stopped; the
// remote task can fail or be cancelled at any stage.
func CanTransition(from, to State) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StateFinished || to == StateFailed || to == StateStopped {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Finalize remaps a Finished state with zero candidates to NoResult. All other
// states pass through unchanged.
func Finalize(s State, candidateCount int) State {
	if s == StateFinished && candidateCount == 0 {
		return StateNoResult
	}
	return s
}
