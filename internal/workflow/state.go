package workflow

// State identifies a node of the scan workflow state machine. Runs start
// at StateStart and advance through the transition sequence; the skipped
// and verified states are terminal. A fatal step failure does not have a
// state of its own: the run keeps the last state it reached, and the
// result's outcome records the failure.
type State int

const (
	// StateStart is the initial state of every run.
	StateStart State = iota

	// StateTrackingRegistered means the tracking correlation was accepted
	// by the platform.
	StateTrackingRegistered

	// StateStatusChecked means the pre-action snapshot is in hand.
	StateStatusChecked

	// StateSkippedAlreadyDone means the daily check-in was already
	// credited and no re-scan was forced. Terminal.
	StateSkippedAlreadyDone

	// StateSessionPrimed means the dashboard read established server-side
	// session state.
	StateSessionPrimed

	// StateActionAttempted means the scan submission was sent, whether or
	// not its synchronous response was an error.
	StateActionAttempted

	// StateVerifiedSuccess means post-action verification confirmed the
	// check-in took effect. Terminal.
	StateVerifiedSuccess

	// StateVerifiedFailure means neither verification signal confirmed
	// the check-in. Terminal.
	StateVerifiedFailure
)

// String returns the state's name in report form.
func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateTrackingRegistered:
		return "TRACKING_REGISTERED"
	case StateStatusChecked:
		return "STATUS_CHECKED"
	case StateSkippedAlreadyDone:
		return "SKIPPED_ALREADY_DONE"
	case StateSessionPrimed:
		return "SESSION_PRIMED"
	case StateActionAttempted:
		return "ACTION_ATTEMPTED"
	case StateVerifiedSuccess:
		return "VERIFIED_SUCCESS"
	case StateVerifiedFailure:
		return "VERIFIED_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	switch s {
	case StateSkippedAlreadyDone, StateVerifiedSuccess, StateVerifiedFailure:
		return true
	default:
		return false
	}
}
