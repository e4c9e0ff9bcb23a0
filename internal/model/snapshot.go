package model

import "time"

// Snapshot captures the remote platform's view of one identity at a
// single point in time.
//
// Snapshots are fetched fresh on demand and never cached beyond the scope
// of one workflow invocation. The workflow compares a pre-action and a
// post-action snapshot to decide whether the check-in actually took
// effect, because neither signal below is reliable on its own.
type Snapshot struct {
	// Points is the identity's personal score as reported by the platform.
	Points float64 `json:"points"`

	// DailyScanDone reports whether the platform has already credited a
	// check-in for the current day.
	DailyScanDone bool `json:"daily_scan_done"`

	// ScanStreak is the number of consecutive credited days.
	ScanStreak uint `json:"scan_streak"`

	// FetchedAt is the local timestamp of the status fetch.
	FetchedAt time.Time `json:"fetched_at"`
}

// PointsIncreasedFrom reports whether this snapshot's points are strictly
// greater than the earlier snapshot's. Used as one of the two success
// signals during post-action verification.
func (s *Snapshot) PointsIncreasedFrom(before *Snapshot) bool {
	if before == nil {
		return false
	}
	return s.Points > before.Points
}
