package model

import (
	"net"
	"strconv"
)

// ProxyKind identifies the transport protocol of a proxy endpoint.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons. The String() and Scheme() methods provide
// human-readable output and URL construction when needed.
type ProxyKind int

const (
	// ProxyKindHTTP is a plain HTTP CONNECT proxy. This is the default
	// when a proxy string carries no scheme.
	ProxyKindHTTP ProxyKind = iota

	// ProxyKindHTTPS is an HTTP CONNECT proxy reached over TLS.
	ProxyKindHTTPS

	// ProxyKindSOCKS4 is a SOCKS4 proxy. SOCKS4 supports only a username,
	// not a password; a password in the descriptor is ignored when dialing.
	ProxyKindSOCKS4

	// ProxyKindSOCKS5 is a SOCKS5 proxy. Strings with the bare "socks"
	// scheme are treated as SOCKS5.
	ProxyKindSOCKS5
)

// String returns a human-readable representation of the proxy kind.
func (k ProxyKind) String() string {
	switch k {
	case ProxyKindHTTP:
		return "HTTP"
	case ProxyKindHTTPS:
		return "HTTPS"
	case ProxyKindSOCKS4:
		return "SOCKS4"
	case ProxyKindSOCKS5:
		return "SOCKS5"
	default:
		return "UNKNOWN"
	}
}

// Scheme returns the URL scheme for this proxy kind.
func (k ProxyKind) Scheme() string {
	switch k {
	case ProxyKindHTTP:
		return "http"
	case ProxyKindHTTPS:
		return "https"
	case ProxyKindSOCKS4:
		return "socks4"
	case ProxyKindSOCKS5:
		return "socks5"
	default:
		return ""
	}
}

// ProxyDescriptor is a parsed proxy endpoint.
//
// A descriptor is produced once per batch by parsing a raw connection
// string. Invariant: Host is non-empty and Port is non-zero after a
// successful parse; a string from which host or port cannot be determined
// never yields a descriptor. Descriptors live for one batch run and are
// not persisted.
type ProxyDescriptor struct {
	// Kind is the transport protocol used to reach the proxy.
	Kind ProxyKind

	// Host is the proxy hostname or IP address. Never empty.
	Host string

	// Port is the proxy TCP port. Never zero.
	Port uint16

	// Username is the optional proxy authentication user.
	Username string

	// Password is the optional proxy authentication password.
	// Treated as sensitive; only Redacted() output may be logged.
	Password string
}

// Address returns the proxy endpoint in "host:port" form.
func (d *ProxyDescriptor) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(int(d.Port)))
}

// HasAuth reports whether the descriptor carries credentials.
func (d *ProxyDescriptor) HasAuth() bool {
	return d.Username != "" || d.Password != ""
}

// Redacted returns a log-safe representation of the descriptor.
// Credentials are never included.
func (d *ProxyDescriptor) Redacted() string {
	return d.Kind.Scheme() + "://" + d.Address()
}

// String implements fmt.Stringer with the credential-free form so that
// descriptors passed to loggers by accident stay safe.
func (d *ProxyDescriptor) String() string {
	return d.Redacted()
}
