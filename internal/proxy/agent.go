package proxy

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/proxy"
	"h12.io/socks"

	"github.com/scanherd/scanherd/internal/model"
)

const (
	// defaultConnectTimeout bounds the TCP (and SOCKS handshake) phase of a
	// connection. It is deliberately shorter than the per-request timeout so
	// that dead proxies fail fast instead of eating the whole request budget.
	defaultConnectTimeout = 15 * time.Second

	// defaultRequestTimeout is the client-level backstop for a full
	// request/response cycle. Callers normally apply tighter per-request
	// context deadlines on top of it.
	defaultRequestTimeout = 30 * time.Second

	// maxSocketsPerAgent bounds the connection pool of one agent. Each agent
	// serves exactly one identity, so a handful of sockets is plenty; idle
	// reuse follows Go's LIFO idle-connection behavior.
	maxSocketsPerAgent = 5

	// maxRedirects limits redirect chains to prevent loops while allowing
	// normal redirects.
	maxRedirects = 10

	// dialKeepAlive is the TCP keep-alive interval for pooled connections.
	dialKeepAlive = 30 * time.Second
)

// Agent is an HTTP client bound to a single egress route: either one proxy
// descriptor or the direct connection. One agent serves one identity for the
// lifetime of a batch; agents are never shared across identities so that
// cookies and pooled sockets stay isolated.
type Agent struct {
	// descriptor is the proxy route, or nil for a direct connection.
	descriptor *model.ProxyDescriptor

	// client is the configured HTTP client. Built once in NewAgent.
	client *http.Client

	// connectTimeout bounds connection establishment.
	connectTimeout time.Duration

	// requestTimeout is the client-level timeout for a full request.
	requestTimeout time.Duration
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithConnectTimeout sets the connection establishment timeout.
func WithConnectTimeout(timeout time.Duration) AgentOption {
	return func(a *Agent) {
		a.connectTimeout = timeout
	}
}

// WithRequestTimeout sets the client-level timeout for a full
// request/response cycle.
func WithRequestTimeout(timeout time.Duration) AgentOption {
	return func(a *Agent) {
		a.requestTimeout = timeout
	}
}

// NewAgent creates an agent routed through the given descriptor. A nil
// descriptor yields a direct-connection agent.
//
// Pool parameters are fixed policy, not caller-configurable: keep-alives
// enabled, at most five sockets per agent, and a connect timeout distinct
// from the request timeout. Each agent carries its own cookie jar so that
// session state never leaks between identities.
func NewAgent(descriptor *model.ProxyDescriptor, opts ...AgentOption) (*Agent, error) {
	agent := &Agent{
		descriptor:     descriptor,
		connectTimeout: defaultConnectTimeout,
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(agent)
	}

	transport, err := agent.newTransport()
	if err != nil {
		return nil, err
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options

	agent.client = &http.Client{
		Transport: transport,
		Timeout:   agent.requestTimeout,
		Jar:       jar,
		// Limit redirects to prevent loops
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return agent, nil
}

// newTransport builds the HTTP transport for the agent's route.
func (a *Agent) newTransport() (*http.Transport, error) {
	dialer := &net.Dialer{
		Timeout:   a.connectTimeout,
		KeepAlive: dialKeepAlive,
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        maxSocketsPerAgent,
		MaxIdleConnsPerHost: maxSocketsPerAgent,
		MaxConnsPerHost:     maxSocketsPerAgent,
		IdleConnTimeout:     90 * time.Second,
	}

	if a.descriptor == nil {
		return transport, nil
	}

	switch a.descriptor.Kind {
	case model.ProxyKindHTTP, model.ProxyKindHTTPS:
		transport.Proxy = http.ProxyURL(proxyURL(a.descriptor))

	case model.ProxyKindSOCKS5:
		var auth *proxy.Auth
		if a.descriptor.HasAuth() {
			auth = &proxy.Auth{
				User:     a.descriptor.Username,
				Password: a.descriptor.Password,
			}
		}
		socksDialer, err := proxy.SOCKS5("tcp", a.descriptor.Address(), auth, dialer)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if contextDialer, ok := socksDialer.(proxy.ContextDialer); ok {
				return contextDialer.DialContext(ctx, network, addr)
			}
			return socksDialer.Dial(network, addr)
		}

	case model.ProxyKindSOCKS4:
		// The h12.io dialer predates context support, so it goes in the
		// legacy Dial field; http.Transport uses Dial when DialContext is
		// nil.
		transport.DialContext = nil
		transport.Dial = socks.Dial(socks4URI(a.descriptor, a.connectTimeout)) //nolint:staticcheck // the SOCKS4 dialer has no context variant

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, a.descriptor.Kind)
	}

	return transport, nil
}

// proxyURL builds the URL handed to http.ProxyURL for HTTP and HTTPS
// proxies. Credentials ride in the userinfo section; net/http turns them
// into a Proxy-Authorization header.
func proxyURL(d *model.ProxyDescriptor) *url.URL {
	u := &url.URL{
		Scheme: d.Kind.Scheme(),
		Host:   d.Address(),
	}
	if d.HasAuth() {
		u.User = url.UserPassword(d.Username, d.Password)
	}
	return u
}

// socks4URI builds the proxy URI understood by h12.io/socks. SOCKS4 has a
// user ID field but no password, so only the username is carried.
func socks4URI(d *model.ProxyDescriptor, timeout time.Duration) string {
	u := &url.URL{
		Scheme:   "socks4",
		Host:     d.Address(),
		RawQuery: "timeout=" + timeout.String(),
	}
	if d.Username != "" {
		u.User = url.User(d.Username)
	}
	return u.String()
}

// HTTPClient returns the configured HTTP client for this agent.
func (a *Agent) HTTPClient() *http.Client {
	return a.client
}

// Descriptor returns the proxy descriptor this agent routes through, or nil
// for a direct connection.
func (a *Agent) Descriptor() *model.ProxyDescriptor {
	return a.descriptor
}

// Route returns a loggable description of the agent's egress route:
// "direct", or the redacted proxy endpoint (credentials stripped).
func (a *Agent) Route() string {
	if a.descriptor == nil {
		return "direct"
	}
	return a.descriptor.Redacted()
}
