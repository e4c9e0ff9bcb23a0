package model

import "testing"

// TestBatchReportAdd tests counter maintenance.
func TestBatchReportAdd(t *testing.T) {
	t.Parallel()

	t.Run("counts each outcome kind", func(t *testing.T) {
		t.Parallel()

		r := NewBatchReport(5)
		r.Add(IdentityResult{Outcome: OutcomeVerified})
		r.Add(IdentityResult{Outcome: OutcomeVerified})
		r.Add(IdentityResult{Outcome: OutcomeSkipped})
		r.Add(IdentityResult{Outcome: OutcomeUnverified})
		r.Add(IdentityResult{Outcome: OutcomeFailed})

		if r.Processed != 5 {
			t.Errorf("Processed = %d, want 5", r.Processed)
		}
		if r.Succeeded != 2 {
			t.Errorf("Succeeded = %d, want 2", r.Succeeded)
		}
		if r.Skipped != 1 {
			t.Errorf("Skipped = %d, want 1", r.Skipped)
		}
		if r.Unverified != 1 {
			t.Errorf("Unverified = %d, want 1", r.Unverified)
		}
		if r.Failed != 1 {
			t.Errorf("Failed = %d, want 1", r.Failed)
		}
		if len(r.Results) != 5 {
			t.Errorf("len(Results) = %d, want 5", len(r.Results))
		}
	})

	t.Run("preserves processing order", func(t *testing.T) {
		t.Parallel()

		r := NewBatchReport(3)
		r.Add(IdentityResult{Fingerprint: "first"})
		r.Add(IdentityResult{Fingerprint: "second"})
		r.Add(IdentityResult{Fingerprint: "third"})

		want := []string{"first", "second", "third"}
		for i, res := range r.Results {
			if res.Fingerprint != want[i] {
				t.Errorf("Results[%d].Fingerprint = %q, want %q", i, res.Fingerprint, want[i])
			}
		}
	})
}

// TestBatchReportSuccessRate tests the rate computation.
func TestBatchReportSuccessRate(t *testing.T) {
	t.Parallel()

	t.Run("empty batch", func(t *testing.T) {
		t.Parallel()

		r := NewBatchReport(0)
		if got := r.SuccessRate(); got != 0 {
			t.Errorf("SuccessRate() = %f, want 0", got)
		}
	})

	t.Run("two of three succeeded", func(t *testing.T) {
		t.Parallel()

		r := NewBatchReport(3)
		r.Add(IdentityResult{Outcome: OutcomeVerified})
		r.Add(IdentityResult{Outcome: OutcomeFailed})
		r.Add(IdentityResult{Outcome: OutcomeVerified})

		want := 2.0 / 3.0
		if got := r.SuccessRate(); got != want {
			t.Errorf("SuccessRate() = %f, want %f", got, want)
		}
	})
}

// TestBatchReportDuration tests timing bookkeeping.
func TestBatchReportDuration(t *testing.T) {
	t.Parallel()

	r := NewBatchReport(1)
	if r.Duration() != 0 {
		t.Error("expected zero duration before Finish")
	}

	r.Finish()
	if r.FinishedAt.IsZero() {
		t.Error("expected FinishedAt to be stamped")
	}
	if r.Duration() < 0 {
		t.Errorf("negative duration: %v", r.Duration())
	}
}
