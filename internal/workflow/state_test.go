package workflow

import "testing"

// TestState_String tests the report form of every state.
func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateStart, "START"},
		{StateTrackingRegistered, "TRACKING_REGISTERED"},
		{StateStatusChecked, "STATUS_CHECKED"},
		{StateSkippedAlreadyDone, "SKIPPED_ALREADY_DONE"},
		{StateSessionPrimed, "SESSION_PRIMED"},
		{StateActionAttempted, "ACTION_ATTEMPTED"},
		{StateVerifiedSuccess, "VERIFIED_SUCCESS"},
		{StateVerifiedFailure, "VERIFIED_FAILURE"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()

			if got := tt.state.String(); got != tt.want {
				t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
			}
		})
	}
}

// TestState_Terminal tests that exactly the skipped and verified states
// end a run.
func TestState_Terminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  bool
	}{
		{StateStart, false},
		{StateTrackingRegistered, false},
		{StateStatusChecked, false},
		{StateSkippedAlreadyDone, true},
		{StateSessionPrimed, false},
		{StateActionAttempted, false},
		{StateVerifiedSuccess, true},
		{StateVerifiedFailure, true},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			t.Parallel()

			if got := tt.state.Terminal(); got != tt.want {
				t.Errorf("State %s Terminal() = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}
