// Package transport provides the resilient HTTP layer for check-in requests.
//
// This package owns the failure taxonomy (which error shapes are retryable
// and which are terminal), the retry loop with adaptive-linear backoff, and
// the request client that attaches authentication and correlation headers
// and routes traffic through a per-identity agent.
//
// Design decision: Failure classification is purely a function of the
// transport error shape, never of the endpoint being called. This keeps the
// taxonomy testable in isolation and lets every caller share one retry
// policy instead of re-deciding per call site.
//
// Logging from this package is deliberately aggregate-only: status class and
// duration bucket, never the request path or the correlation identifier.
package transport
