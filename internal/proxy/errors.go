package proxy

import "errors"

// Proxy resolution errors.
// These errors are returned when a proxy connection string cannot be turned
// into a usable descriptor or agent.
//
// Design decision: We define specific error types rather than wrapping all
// errors generically. This allows callers to distinguish a malformed list
// entry (fall back to direct, keep going) from an unusable scheme.
var (
	// ErrEmptyProxyString is returned when the proxy string is empty or
	// whitespace-only. Blank lines in a proxy list should be filtered by
	// the loader, so hitting this usually indicates a caller bug.
	ErrEmptyProxyString = errors.New("proxy string is empty")

	// ErrInvalidProxyFormat is returned when the host or port cannot be
	// determined from the proxy string. Expected shapes are
	// "scheme://[user:pass@]host:port", "user:pass@host:port", and
	// "host:port".
	ErrInvalidProxyFormat = errors.New("invalid proxy format: expected [scheme://][user:pass@]host:port")

	// ErrUnsupportedScheme is returned when the proxy URL carries a scheme
	// outside the supported set (http, https, socks, socks4, socks5).
	ErrUnsupportedScheme = errors.New("unsupported proxy scheme")

	// ErrInvalidProxyPort is returned when the port is not a number in the
	// 1-65535 range.
	ErrInvalidProxyPort = errors.New("invalid proxy port: expected 1-65535")
)
