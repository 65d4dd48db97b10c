package task

// State represents the current lifecycle state of a task.
type State string

const (
	StateReady      State = "READY"
	StateClaimed    State = "CLAIMED"
	StateInReview   State = "IN_REVIEW"
	StateCompleted  State = "COMPLETED"
	StateCancelled  State = "CANCELLED"
	StateTerminated State = "TERMINATED"
)

// ValidStates is the set of all valid task states.
var ValidStates = map[State]bool{
	StateReady:      true,
	StateClaimed:    true,
	StateInReview:   true,
	StateCompleted:  true,
	StateCancelled:  true,
	StateTerminated: true,
}

// endStates are terminal: no transition leaves them.
var endStates = map[State]bool{
	StateCompleted:  true,
	StateCancelled:  true,
	StateTerminated: true,
}

// IsEndState reports whether s is terminal.
func (s State) IsEndState() bool {
	return endStates[s]
}

// CallbackState tracks synchronization of a task with an external system.
type CallbackState string

const (
	CallbackNone               CallbackState = "NONE"
	CallbackProcessingRequired CallbackState = "CALLBACK_PROCESSING_REQUIRED"
	CallbackClaimed            CallbackState = "CLAIMED"
	CallbackProcessed          CallbackState = "CALLBACK_PROCESSING_COMPLETED"
)

// ValidCallbackStates is the set of all valid callback states.
var ValidCallbackStates = map[CallbackState]bool{
	CallbackNone:               true,
	CallbackProcessingRequired: true,
	CallbackClaimed:            true,
	CallbackProcessed:          true,
}
