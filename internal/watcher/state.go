package watcher

// State is a step of the poll cycle.
//
// The poller moves Idle -> Connecting -> Listing -> Processing(1..n) ->
// Sleeping -> Connecting -> ... . A failure in any state goes straight to
// Sleeping; there is no backoff and no retry limit within a cycle.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateListing
	StateProcessing
	StateSleeping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateListing:
		return "listing"
	case StateProcessing:
		return "processing"
	case StateSleeping:
		return "sleeping"
	default:
		return "unknown"
	}
}

// Transition describes one state change of the poller.
type Transition struct {
	From State
	To   State
	// Message is the 1-based position of the message being handled when To
	// is StateProcessing, zero otherwise.
	Message int
	// Err is the failure that ended the cycle, set only on the transition to
	// StateSleeping (or StateIdle after a single cycle).
	Err error
}

// Observer is notified of every transition, synchronously on the poller
// goroutine.
type Observer func(Transition)
