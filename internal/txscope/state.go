package txscope

// State is the lifecycle state of a Slot.
type State int

const (
	StateNotStarted State = iota
	StateActive
	StateCommitted
	StateRolledBack
	// StateFailed is terminal: the rollback itself errored.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateActive:
		return "active"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Decision is the outcome chosen for a request transaction.
type Decision int

const (
	DecisionRollback Decision = iota
	DecisionCommit
)

func (d Decision) String() string {
	if d == DecisionCommit {
		return "commit"
	}
	return "rollback"
}
