package engine

// Action is the graded enforcement outcome of an evaluation, ordered from
// most permissive to most severe.
type Action string

const (
	ActionNone    Action = "none"
	ActionWarn    Action = "warn"
	ActionDelete  Action = "delete"
	ActionTimeout Action = "timeout"
	ActionBan     Action = "ban"
)

func (a Action) Rank() int {
	switch a {
	case ActionWarn:
		return 1
	case ActionDelete:
		return 2
	case ActionTimeout:
		return 3
	case ActionBan:
		return 4
	}
	return 0
}

// Escalate returns the next-more-severe action, never past ban. NONE does not
// escalate.
func (a Action) Escalate() Action {
	switch a {
	case ActionWarn:
		return ActionDelete
	case ActionDelete:
		return ActionTimeout
	case ActionTimeout:
		return ActionBan
	}
	return a
}

// Decision is the consolidated outcome for one message. Immutable once
// produced; cached and returned by value.
type Decision struct {
	Action Action
	// severity of the primary matched rule, or the signal-derived severity;
	// empty for NONE decisions
	Severity string
	// in [0,1], after escalation multiplication and clamping
	Confidence float64
	// deduplicated union of detector evidence and matched rule descriptions
	Reasons []string
	// names of every rule that matched, primary first
	TriggeredRules []string
	// set when the evaluation deadline expired and the engine failed open
	TimedOut bool
}
