package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/scanherd/scanherd/internal/api"
	"github.com/scanherd/scanherd/internal/log"
	"github.com/scanherd/scanherd/internal/model"
	"github.com/scanherd/scanherd/internal/proxy"
	"github.com/scanherd/scanherd/internal/transport"
	"golang.org/x/sync/errgroup"
)

// The api client must keep satisfying the workflow's view of the
// platform.
var _ API = (*api.Client)(nil)

// DefaultIdentityDelay is the base pause between consecutive identities.
// The actual pause is jittered so batches never fire on a fixed cadence.
const DefaultIdentityDelay = 8 * time.Second

// jitterFraction is the spread applied around the inter-identity delay:
// the effective pause is base ± base*jitterFraction.
const jitterFraction = 0.2

// probeConcurrency bounds the parallel egress probes during the optional
// diagnostic phase.
const probeConcurrency = 4

// ScannerFactory builds the scanner used for one identity's workflow
// run, bound to that identity's transport agent.
//
// Design decision: We use a factory rather than one shared Scanner so
// each identity gets a client stack bound to its own agent (per-identity
// cookie jars and proxy routes must not leak between accounts), and so
// tests can substitute a scanner driving a fake API.
type ScannerFactory func(agent *proxy.Agent) *Scanner

// Batch orchestrates one run over a list of identities: proxy
// assignment, agent construction, the optional egress probe, and the
// sequential scan loop.
//
// Design decision: Identities are processed strictly sequentially, never
// concurrently. This bounds proxy and socket usage, and it avoids the
// whole identity set hammering the platform at once, which both triggers
// rate limits and looks automated. The only concurrency in this package
// is the egress probe phase, which talks to a third-party echo service
// rather than the platform.
type Batch struct {
	// baseURL is the platform API base handed to each transport client.
	baseURL string

	// rawProxies are the unparsed proxy specs assigned round-robin.
	rawProxies []string

	// useProxies enables proxy assignment. When false every identity
	// connects directly, which is a valid mode, not a degraded one.
	useProxies bool

	// identityDelay is the base inter-identity pause before jitter.
	identityDelay time.Duration

	// probeEgress enables the diagnostic egress IP probe phase.
	probeEgress bool

	// scannerFor builds the per-identity scanner.
	scannerFor ScannerFactory

	// transportOpts are forwarded to each identity's transport client.
	transportOpts []transport.ClientOption

	// scannerOpts are forwarded to each identity's scanner.
	scannerOpts []ScannerOption

	// agentOpts are forwarded to each identity's transport agent.
	agentOpts []proxy.AgentOption

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a Batch.
type BatchOption func(*Batch)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *Batch) {
		b.logger = logger
	}
}

// WithProxies supplies the raw proxy list and enables proxied egress.
// Identity i receives entry i mod len(raw); multiple identities may
// legitimately share one proxy.
func WithProxies(raw []string) BatchOption {
	return func(b *Batch) {
		b.rawProxies = raw
		b.useProxies = len(raw) > 0
	}
}

// WithIdentityDelay sets the base pause between consecutive identities.
func WithIdentityDelay(d time.Duration) BatchOption {
	return func(b *Batch) {
		b.identityDelay = d
	}
}

// WithEgressProbe enables the best-effort egress IP probe before the
// scan loop. Probing is diagnostic only; failures never affect outcomes.
func WithEgressProbe(enabled bool) BatchOption {
	return func(b *Batch) {
		b.probeEgress = enabled
	}
}

// WithScannerFactory replaces the default scanner construction. This is
// the injection seam for tests.
func WithScannerFactory(factory ScannerFactory) BatchOption {
	return func(b *Batch) {
		b.scannerFor = factory
	}
}

// WithTransportOptions forwards options to each identity's transport
// client.
func WithTransportOptions(opts ...transport.ClientOption) BatchOption {
	return func(b *Batch) {
		b.transportOpts = opts
	}
}

// WithScannerOptions forwards options to each identity's scanner.
func WithScannerOptions(opts ...ScannerOption) BatchOption {
	return func(b *Batch) {
		b.scannerOpts = opts
	}
}

// WithAgentOptions forwards options to each identity's transport agent.
func WithAgentOptions(opts ...proxy.AgentOption) BatchOption {
	return func(b *Batch) {
		b.agentOpts = opts
	}
}

// NewBatch creates a batch orchestrator for the given platform base URL.
func NewBatch(baseURL string, opts ...BatchOption) *Batch {
	b := &Batch{
		baseURL:       baseURL,
		identityDelay: DefaultIdentityDelay,
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.scannerFor == nil {
		b.scannerFor = b.newScanner
	}

	return b
}

// newScanner is the default ScannerFactory: a transport client bound to
// the agent, the platform API client on top, and a scanner with the
// batch's options applied.
func (b *Batch) newScanner(agent *proxy.Agent) *Scanner {
	clientOpts := append([]transport.ClientOption{transport.WithLogger(b.logger)}, b.transportOpts...)
	client := transport.NewClient(agent, b.baseURL, clientOpts...)

	scannerOpts := append([]ScannerOption{WithLogger(b.logger)}, b.scannerOpts...)
	return NewScanner(api.NewClient(client), scannerOpts...)
}

// Run executes one batch over the given identities and returns the
// aggregated report. The report is always non-nil and accounts for every
// processed identity, including ones that failed. Cancellation stops the
// batch before the next identity starts and marks the report
// interrupted; results collected so far are kept.
func (b *Batch) Run(ctx context.Context, identities []*model.Identity) *model.BatchReport {
	report := model.NewBatchReport(len(identities))

	b.logger.Info("batch starting",
		"identities", len(identities),
		"proxied", b.useProxies,
	)

	for _, assignErr := range proxy.Assign(identities, b.rawProxies, b.useProxies) {
		b.logger.Warn("proxy assignment fell back to direct", "error", assignErr)
	}
	report.ProxiesUsed = countDistinctProxies(identities)

	agents, agentErrs := b.buildAgents(identities)
	egress := b.probeAgents(ctx, agents)

	for i, identity := range identities {
		if err := ctx.Err(); err != nil {
			b.logger.Warn("batch interrupted",
				"processed", report.Processed,
				"remaining", len(identities)-i,
				"reason", err,
			)
			report.Interrupted = true
			break
		}

		b.logger.Info("processing identity",
			log.IdentityKey, identity.Fingerprint(),
			"index", i+1,
			"total", len(identities),
		)

		var result *model.IdentityResult
		if agents[i] == nil {
			result = b.unroutableResult(identity, agentErrs[i])
		} else {
			result = b.scannerFor(agents[i]).Run(ctx, identity, nil, false)
		}
		result.EgressIP = egress[i]
		report.Add(*result)

		if i == len(identities)-1 {
			continue
		}
		if err := sleepContext(ctx, jitteredDelay(b.identityDelay)); err != nil {
			b.logger.Warn("batch interrupted",
				"processed", report.Processed,
				"remaining", len(identities)-i-1,
				"reason", err,
			)
			report.Interrupted = true
			break
		}
	}

	report.Finish()

	b.logger.Info("batch complete",
		"processed", report.Processed,
		"succeeded", report.Succeeded,
		"skipped", report.Skipped,
		"unverified", report.Unverified,
		"failed", report.Failed,
		"duration", report.Duration().String(),
	)

	return report
}

// buildAgents constructs one transport agent per identity up front so
// the optional probe phase can exercise them before the scan loop.
// Identity i's slot is nil when its agent could not be built; the error
// is kept for that identity's result.
//
// Design decision: An identity whose assigned proxy parses but cannot be
// turned into a working agent fails outright instead of silently falling
// back to a direct connection. Assignment-time parse failures fall back
// to direct because the entry was never usable, but downgrading a bound
// egress here would route the account over the operator's own address,
// which is the one thing a proxied batch must never do.
func (b *Batch) buildAgents(identities []*model.Identity) ([]*proxy.Agent, []error) {
	agents := make([]*proxy.Agent, len(identities))
	errs := make([]error, len(identities))

	for i, identity := range identities {
		agent, err := proxy.NewAgent(identity.Proxy, b.agentOpts...)
		if err != nil {
			errs[i] = fmt.Errorf("failed to build transport agent: %w", err)
			continue
		}
		agents[i] = agent
	}

	return agents, errs
}

// probeAgents resolves each agent's public egress address when probing
// is enabled. Probes run concurrently: they are independent diagnostics
// against an IP echo service, not platform traffic, so the
// sequential-identity rule does not apply. Each goroutine writes only
// its own slot, so no locking is needed; a failed probe yields an empty
// string, never an error.
func (b *Batch) probeAgents(ctx context.Context, agents []*proxy.Agent) []string {
	egress := make([]string, len(agents))
	if !b.probeEgress {
		return egress
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)

	for i, agent := range agents {
		if agent == nil {
			continue
		}
		g.Go(func() error {
			egress[i] = proxy.ProbeEgressIP(ctx, agent)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // probe goroutines never return errors

	return egress
}

// unroutableResult records an identity that never got a working
// transport agent. The workflow did not run, so the run is failed at its
// start state.
func (b *Batch) unroutableResult(identity *model.Identity, err error) *model.IdentityResult {
	b.logger.Error("identity has no usable transport agent",
		log.IdentityKey, identity.Fingerprint(),
		"error", err,
	)

	return &model.IdentityResult{
		Fingerprint: identity.Fingerprint(),
		Outcome:     model.OutcomeFailed,
		FinalState:  StateStart.String(),
		ProxyUsed:   proxyRoute(identity),
		Error:       err.Error(),
		StartedAt:   time.Now(),
	}
}

// countDistinctProxies counts the unique proxy endpoints bound across
// the identity set after assignment.
func countDistinctProxies(identities []*model.Identity) int {
	seen := make(map[string]struct{})
	for _, identity := range identities {
		if identity.Proxy != nil {
			seen[identity.Proxy.Redacted()] = struct{}{}
		}
	}
	return len(seen)
}

// jitteredDelay spreads the base delay by ±jitterFraction so consecutive
// identities never fire on a fixed cadence, which reads as automation to
// the remote platform.
func jitteredDelay(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	spread := (rand.Float64()*2 - 1) * jitterFraction
	return base + time.Duration(spread*float64(base))
}
