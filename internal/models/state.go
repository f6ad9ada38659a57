package models

// State is the lifecycle position of a Task
type State string

const (
	// StatePending means the task is waiting for a worker
	StatePending State = "pending"
	// StateAnalyzing covers format detection, hash extraction and classification
	StateAnalyzing State = "analyzing"
	// StateCracking means an attack stage is running; Task.StageIndex says which
	StateCracking State = "cracking"
	// StateSuccess means a password was recovered
	StateSuccess State = "success"
	// StateFailed means every planned stage ran without a result
	StateFailed State = "failed"
	// StateCancelled means an external request stopped the task
	StateCancelled State = "cancelled"
	// StateError means analysis or engine launch failed
	StateError State = "error"
)

// transitions lists the allowed next states. Cracking -> Cracking is the
// advance from stage i to stage i+1.
var transitions = map[State][]State{
	StatePending:   {StateAnalyzing, StateCancelled, StateError},
	StateAnalyzing: {StateCracking, StateError, StateCancelled, StateFailed},
	StateCracking:  {StateCracking, StateSuccess, StateFailed, StateCancelled, StateError},
}

func (s State) String() string {
	return string(s)
}

// IsTerminal returns true once the task can no longer change
func (s State) IsTerminal() bool {
	switch s {
	case StateSuccess, StateFailed, StateCancelled, StateError:
		return true
	}
	return false
}

// CanTransitionTo reports whether next is a legal successor of s
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the declared states
func (s State) Valid() bool {
	switch s {
	case StatePending, StateAnalyzing, StateCracking, StateSuccess, StateFailed, StateCancelled, StateError:
		return true
	}
	return false
}
