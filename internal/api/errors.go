package api

import "errors"

// API response errors.
var (
	// ErrNoScore is returned when the status response carries no
	// identifiable points field (absent or null). A status payload without
	// a score cannot drive verification, so it classifies as malformed.
	ErrNoScore = errors.New("status response has no points field")
)
