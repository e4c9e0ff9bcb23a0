// Package proxy resolves proxy connection strings into transport agents.
//
// This package parses the textual proxy shapes accepted by the proxy list
// (full URLs with http/https/socks/socks4/socks5 schemes, plus bare
// host:port forms), builds the per-identity HTTP agents that route traffic
// through them, and assigns proxies to identities with deterministic
// round-robin cycling.
//
// Design decision: We build on golang.org/x/net/proxy for SOCKS5 and
// h12.io/socks for SOCKS4 rather than implementing the wire protocols
// ourselves. The x/net dialer has no SOCKS4 support, so the two libraries
// together cover the full scheme set with well-tested implementations.
//
// The package is designed to be used with dependency injection - parse
// descriptors and build agents up front, then pass the agents to components
// that need network connectivity rather than using global state.
package proxy
