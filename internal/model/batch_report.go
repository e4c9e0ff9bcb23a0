package model

import "time"

// BatchReport aggregates per-identity outcomes for one batch run.
//
// Design decision: Counts are maintained incrementally by Add rather than
// recomputed from Results so that a partially processed batch (e.g. after
// an interrupt) always reports consistent numbers. Succeeded counts
// verified successes only; skipped identities are reported separately
// because "already done" says nothing about this run's work.
type BatchReport struct {
	// StartedAt is when the batch began, before proxy assignment.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the batch completed or was interrupted.
	FinishedAt time.Time `json:"finished_at"`

	// Total is the number of identities loaded for this batch.
	Total int `json:"total"`

	// Processed is the number of identities whose workflow actually ran.
	// Less than Total when the batch was interrupted.
	Processed int `json:"processed"`

	// Succeeded counts OutcomeVerified results.
	Succeeded int `json:"succeeded"`

	// Skipped counts OutcomeSkipped results.
	Skipped int `json:"skipped"`

	// Unverified counts OutcomeUnverified results.
	Unverified int `json:"unverified"`

	// Failed counts OutcomeFailed results.
	Failed int `json:"failed"`

	// ProxiesUsed is the number of distinct proxies assigned at batch
	// start. Zero when running with direct connections.
	ProxiesUsed int `json:"proxies_used"`

	// Interrupted is true when the batch stopped before processing every
	// identity due to cancellation.
	Interrupted bool `json:"interrupted"`

	// Results holds one entry per processed identity, in processing order.
	Results []IdentityResult `json:"results"`
}

// NewBatchReport creates a BatchReport for a batch of the given size.
func NewBatchReport(total int) *BatchReport {
	return &BatchReport{
		StartedAt: time.Now(),
		Total:     total,
		Results:   make([]IdentityResult, 0, total),
	}
}

// Add appends one identity's result and updates the outcome counters.
func (r *BatchReport) Add(res IdentityResult) {
	r.Results = append(r.Results, res)
	r.Processed++

	switch res.Outcome {
	case OutcomeVerified:
		r.Succeeded++
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeUnverified:
		r.Unverified++
	case OutcomeFailed:
		r.Failed++
	}
}

// Finish stamps the completion time.
func (r *BatchReport) Finish() {
	r.FinishedAt = time.Now()
}

// Duration returns the batch wall-clock time. Zero until Finish is called.
func (r *BatchReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SuccessRate returns Succeeded over Processed in the range [0, 1].
// Returns 0 for an empty batch.
func (r *BatchReport) SuccessRate() float64 {
	if r.Processed == 0 {
		return 0
	}
	return float64(r.Succeeded) / float64(r.Processed)
}
