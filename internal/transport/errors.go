package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
)

// FailureKind classifies a failed request by its transport error shape.
// The classification decides retry behavior: rate limiting, server faults,
// connection drops, and timeouts are transient; client rejections and
// malformed exchanges are terminal.
type FailureKind int

const (
	// FailureMalformed indicates the exchange produced no response body or
	// an unexpected body shape. It is the zero value so that an
	// unclassified failure is never retried by accident.
	FailureMalformed FailureKind = iota

	// FailureRateLimited indicates the server answered HTTP 429.
	FailureRateLimited

	// FailureServerFault indicates an HTTP 5xx response.
	FailureServerFault

	// FailureConnectionReset indicates the peer reset the connection
	// (ECONNRESET-type OS error).
	FailureConnectionReset

	// FailureConnectionRefused indicates the connection was refused
	// (ECONNREFUSED-type OS error).
	FailureConnectionRefused

	// FailureTimeout indicates a deadline or network timeout elapsed.
	FailureTimeout

	// FailureClientRejected indicates a non-2xx status outside the rate
	// limit and server fault classes. The offending status code rides on
	// the RequestError.
	FailureClientRejected
)

// String returns the failure kind name.
func (k FailureKind) String() string {
	switch k {
	case FailureMalformed:
		return "MALFORMED"
	case FailureRateLimited:
		return "RATE_LIMITED"
	case FailureServerFault:
		return "SERVER_FAULT"
	case FailureConnectionReset:
		return "CONNECTION_RESET"
	case FailureConnectionRefused:
		return "CONNECTION_REFUSED"
	case FailureTimeout:
		return "TIMEOUT"
	case FailureClientRejected:
		return "CLIENT_REJECTED"
	default:
		return "UNKNOWN"
	}
}

// Retryable reports whether a failure of this kind is transient and worth
// retrying.
func (k FailureKind) Retryable() bool {
	switch k {
	case FailureRateLimited, FailureServerFault, FailureConnectionReset,
		FailureConnectionRefused, FailureTimeout:
		return true
	default:
		return false
	}
}

// RequestError is the classified form of a failed request. It carries the
// failure kind, the HTTP status when the failure derives from a response,
// and the underlying cause when one exists.
type RequestError struct {
	// Kind is the failure classification.
	Kind FailureKind

	// Status is the HTTP status code, or 0 when the request never
	// produced a response.
	Status int

	// Err is the underlying transport error, or nil for status-derived
	// failures.
	Err error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("request failed: %s (status %d)", e.Kind, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("request failed: %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("request failed: %s", e.Kind)
	}
}

// Unwrap returns the underlying cause for errors.Is / errors.As chains.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the error is transient.
func (e *RequestError) Retryable() bool {
	return e.Kind.Retryable()
}

// classifyStatus converts a non-2xx HTTP status into a RequestError.
func classifyStatus(status int) *RequestError {
	switch {
	case status == http.StatusTooManyRequests:
		return &RequestError{Kind: FailureRateLimited, Status: status}
	case status >= http.StatusInternalServerError:
		return &RequestError{Kind: FailureServerFault, Status: status}
	default:
		return &RequestError{Kind: FailureClientRejected, Status: status}
	}
}

// classifyTransportError converts an error from the HTTP client into a
// RequestError. Context cancellation is passed through untouched: it is
// control flow, not a transport failure.
//
// Anything that matches no known transient shape (DNS failures, TLS
// handshake errors, truncated reads) classifies as FailureMalformed and is
// therefore terminal.
func classifyTransportError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &RequestError{Kind: FailureTimeout, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &RequestError{Kind: FailureTimeout, Err: err}
	}

	if errors.Is(err, syscall.ECONNRESET) {
		return &RequestError{Kind: FailureConnectionReset, Err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &RequestError{Kind: FailureConnectionRefused, Err: err}
	}

	return &RequestError{Kind: FailureMalformed, Err: err}
}
