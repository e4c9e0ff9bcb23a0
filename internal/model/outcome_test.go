package model

import (
	"encoding/json"
	"testing"
)

// TestOutcomeString tests human-readable outcome names.
func TestOutcomeString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		outcome Outcome
		want    string
	}{
		{OutcomeUnknown, "UNKNOWN"},
		{OutcomeSkipped, "SKIPPED"},
		{OutcomeVerified, "VERIFIED"},
		{OutcomeUnverified, "UNVERIFIED"},
		{OutcomeFailed, "FAILED"},
		{Outcome(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.outcome.String(); got != tt.want {
			t.Errorf("Outcome(%d).String() = %q, want %q", int(tt.outcome), got, tt.want)
		}
	}
}

// TestParseOutcome tests string-to-outcome conversion.
func TestParseOutcome(t *testing.T) {
	t.Parallel()

	for _, o := range []Outcome{OutcomeSkipped, OutcomeVerified, OutcomeUnverified, OutcomeFailed} {
		if got := ParseOutcome(o.String()); got != o {
			t.Errorf("ParseOutcome(%q) = %v, want %v", o.String(), got, o)
		}
	}

	if got := ParseOutcome("definitely-not-an-outcome"); got != OutcomeUnknown {
		t.Errorf("ParseOutcome(garbage) = %v, want OutcomeUnknown", got)
	}
}

// TestOutcomeJSON tests that outcomes marshal as readable strings.
func TestOutcomeJSON(t *testing.T) {
	t.Parallel()

	t.Run("marshals as string", func(t *testing.T) {
		t.Parallel()

		data, err := json.Marshal(OutcomeVerified)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != `"VERIFIED"` {
			t.Errorf("got %s, want %q", data, `"VERIFIED"`)
		}
	})

	t.Run("round-trips through a result", func(t *testing.T) {
		t.Parallel()

		res := IdentityResult{Fingerprint: "abc123def456", Outcome: OutcomeUnverified}
		data, err := json.Marshal(res)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded IdentityResult
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decoded.Outcome != OutcomeUnverified {
			t.Errorf("got %v, want OutcomeUnverified", decoded.Outcome)
		}
	})
}

// TestSnapshotPointsIncreasedFrom tests the points-delta success signal.
func TestSnapshotPointsIncreasedFrom(t *testing.T) {
	t.Parallel()

	t.Run("strict increase", func(t *testing.T) {
		t.Parallel()

		before := &Snapshot{Points: 100}
		after := &Snapshot{Points: 150}
		if !after.PointsIncreasedFrom(before) {
			t.Error("expected increase 100 -> 150 to be detected")
		}
	})

	t.Run("unchanged points", func(t *testing.T) {
		t.Parallel()

		before := &Snapshot{Points: 100}
		after := &Snapshot{Points: 100}
		if after.PointsIncreasedFrom(before) {
			t.Error("unchanged points must not count as increase")
		}
	})

	t.Run("decreased points", func(t *testing.T) {
		t.Parallel()

		before := &Snapshot{Points: 100}
		after := &Snapshot{Points: 90}
		if after.PointsIncreasedFrom(before) {
			t.Error("decreased points must not count as increase")
		}
	})

	t.Run("nil before snapshot", func(t *testing.T) {
		t.Parallel()

		after := &Snapshot{Points: 100}
		if after.PointsIncreasedFrom(nil) {
			t.Error("nil baseline must not count as increase")
		}
	})
}
