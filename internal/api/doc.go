// Package api implements the check-in platform's four logical operations:
// tracking registration, status fetch, session priming, and scan
// submission.
//
// All operations run through the transport retry policy, so callers see
// either success or a classified failure after the retry budget is spent.
// The package owns the wire shapes and maps them onto the domain models;
// nothing above this layer touches response JSON.
package api
