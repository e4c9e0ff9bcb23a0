package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scanherd/scanherd/internal/log"
	"github.com/scanherd/scanherd/internal/model"
	"github.com/scanherd/scanherd/internal/transport"
)

// DefaultSettleDelay is the wait between submitting the check-in and
// fetching the verification snapshot. Server-side crediting is
// asynchronous; two seconds is the shortest wait that avoided false
// negatives in practice.
const DefaultSettleDelay = 2 * time.Second

// API is the remote platform surface the workflow drives. It is
// satisfied by the api package's client; tests substitute their own
// implementation.
type API interface {
	// RegisterTracking registers a tracking correlation for the identity
	// and returns the acknowledgement token.
	RegisterTracking(ctx context.Context, identity *model.Identity) (string, error)

	// FetchStatus reads the identity's current leaderboard snapshot.
	FetchStatus(ctx context.Context, identity *model.Identity) (*model.Snapshot, error)

	// PrimeSession establishes server-side session state for the identity.
	PrimeSession(ctx context.Context, identity *model.Identity) error

	// SubmitScan submits the daily check-in action.
	SubmitScan(ctx context.Context, identity *model.Identity) error
}

// Scanner executes the scan workflow for one identity at a time.
type Scanner struct {
	// api is the remote platform client. Must not be nil.
	api API

	// settleDelay is the wait before the verification fetch.
	settleDelay time.Duration

	// force re-runs the check-in even when the platform reports the
	// daily scan already done.
	force bool

	// logger is used for structured logging during execution.
	logger *slog.Logger
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithSettleDelay sets the wait between action submission and the
// verification fetch.
func WithSettleDelay(d time.Duration) ScannerOption {
	return func(s *Scanner) {
		s.settleDelay = d
	}
}

// WithForce makes every run re-scan even when the daily check-in is
// already credited.
func WithForce(force bool) ScannerOption {
	return func(s *Scanner) {
		s.force = force
	}
}

// WithLogger sets a custom logger for the scanner.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) ScannerOption {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// NewScanner creates a Scanner driving the given API.
func NewScanner(api API, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		api:         api,
		settleDelay: DefaultSettleDelay,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// scanRun carries the evolving state of one workflow execution between
// steps. Steps mutate it; nothing outside this package sees it.
type scanRun struct {
	identity *model.Identity
	state    State
	force    bool
	before   *model.Snapshot
	after    *model.Snapshot
	result   *model.IdentityResult
}

// step is one transition of the scan state machine. Do advances
// run.state on success; returning an error fails the whole run.
//
// Design decision: We use an interface rather than function types
// because steps carry their own collaborators (API client, delays) and
// a Name() method keeps log lines and failure reports readable.
type step interface {
	Do(ctx context.Context, run *scanRun) error
	Name() string
}

// Run executes the scan workflow for one identity and returns its
// terminal result. Run never returns nil: every failure mode is
// converted into a populated result so the batch can aggregate outcomes
// without special cases.
//
// A non-nil known snapshot fetched earlier in the same batch cycle is
// reused as the pre-action status, saving one request. force re-runs the
// check-in even when the platform reports it already done; it combines
// with the scanner-level force option, either being true wins.
func (s *Scanner) Run(ctx context.Context, identity *model.Identity, known *model.Snapshot, force bool) *model.IdentityResult {
	started := time.Now()

	result := &model.IdentityResult{
		Fingerprint: identity.Fingerprint(),
		Outcome:     model.OutcomeUnknown,
		ProxyUsed:   proxyRoute(identity),
		StartedAt:   started,
	}

	run := &scanRun{
		identity: identity,
		state:    StateStart,
		force:    force || s.force,
		before:   known,
		result:   result,
	}

	for _, st := range s.steps() {
		if run.state.Terminal() {
			break
		}

		// Check for cancellation before each step rather than during;
		// steps bound their own waits.
		if err := ctx.Err(); err != nil {
			s.fail(run, st, fmt.Errorf("workflow cancelled: %w", err))
			break
		}

		s.logger.Debug("executing step",
			"step", st.Name(),
			log.IdentityKey, identity.Fingerprint(),
		)

		if err := st.Do(ctx, run); err != nil {
			s.fail(run, st, err)
			break
		}
	}

	result.FinalState = run.state.String()
	result.Duration = time.Since(started)

	s.logger.Info("workflow finished",
		log.IdentityKey, identity.Fingerprint(),
		"outcome", result.Outcome.String(),
		"state", result.FinalState,
		"duration", result.Duration.String(),
	)

	return result
}

// steps returns the transition sequence in execution order.
func (s *Scanner) steps() []step {
	return []step{
		&registerTrackingStep{api: s.api},
		&checkStatusStep{api: s.api},
		&skipCheckStep{logger: s.logger},
		&primeSessionStep{api: s.api},
		&submitScanStep{api: s.api, logger: s.logger},
		&verifyStep{api: s.api, settleDelay: s.settleDelay},
	}
}

// fail records a fatal step failure. The run keeps the state it had
// reached so the result names where the transition failed.
func (s *Scanner) fail(run *scanRun, st step, err error) {
	run.result.Outcome = model.OutcomeFailed
	run.result.Error = err.Error()
	run.result.ErrorClass = failureClass(err)

	s.logger.Error("workflow step failed",
		"step", st.Name(),
		log.IdentityKey, run.identity.Fingerprint(),
		"error", err,
	)
}

// registerTrackingStep registers a tracking correlation for the
// identity. The acknowledgement token is not consumed; only the success
// of the call matters. This step is fatal on failure: without a tracking
// registration the platform will not credit the check-in.
type registerTrackingStep struct {
	api API
}

func (s *registerTrackingStep) Name() string { return "register_tracking" }

func (s *registerTrackingStep) Do(ctx context.Context, run *scanRun) error {
	if _, err := s.api.RegisterTracking(ctx, run.identity); err != nil {
		return err
	}
	run.state = StateTrackingRegistered
	return nil
}

// checkStatusStep obtains the pre-action snapshot. A caller-supplied
// snapshot from the same batch cycle is reused to avoid a redundant
// request.
type checkStatusStep struct {
	api API
}

func (s *checkStatusStep) Name() string { return "check_status" }

func (s *checkStatusStep) Do(ctx context.Context, run *scanRun) error {
	if run.before == nil {
		snapshot, err := s.api.FetchStatus(ctx, run.identity)
		if err != nil {
			return err
		}
		run.before = snapshot
	}

	run.identity.SetLastKnownScore(run.before.Points)

	points := run.before.Points
	run.result.PointsBefore = &points
	run.result.ScanStreak = run.before.ScanStreak

	run.state = StateStatusChecked
	return nil
}

// skipCheckStep terminates the run when the daily check-in is already
// credited and no re-scan was forced. Skipping is a success-adjacent
// outcome, not an error.
type skipCheckStep struct {
	logger *slog.Logger
}

func (s *skipCheckStep) Name() string { return "skip_check" }

func (s *skipCheckStep) Do(_ context.Context, run *scanRun) error {
	if !run.before.DailyScanDone || run.force {
		return nil
	}

	run.state = StateSkippedAlreadyDone
	run.result.Outcome = model.OutcomeSkipped

	s.logger.Info("daily check-in already credited, skipping",
		log.IdentityKey, run.identity.Fingerprint(),
	)
	return nil
}

// primeSessionStep establishes server-side session state ahead of the
// submission. The response payload is not consumed; the step's contract
// is "succeeds or raises".
type primeSessionStep struct {
	api API
}

func (s *primeSessionStep) Name() string { return "prime_session" }

func (s *primeSessionStep) Do(ctx context.Context, run *scanRun) error {
	if err := s.api.PrimeSession(ctx, run.identity); err != nil {
		return err
	}
	run.state = StateSessionPrimed
	return nil
}

// submitScanStep submits the check-in action. A failure here is
// recorded but deliberately not fatal: the platform is known to award
// credit even when the synchronous response errors, because the
// crediting side effect completes asynchronously. Verification decides
// the real outcome either way.
type submitScanStep struct {
	api    API
	logger *slog.Logger
}

func (s *submitScanStep) Name() string { return "submit_scan" }

func (s *submitScanStep) Do(ctx context.Context, run *scanRun) error {
	if err := s.api.SubmitScan(ctx, run.identity); err != nil {
		run.result.SuppressedError = err.Error()
		s.logger.Warn("scan submission failed, verifying anyway",
			log.IdentityKey, run.identity.Fingerprint(),
			"error", err,
		)
	}

	run.state = StateActionAttempted
	return nil
}

// verifyStep waits for server-side crediting to settle, fetches a fresh
// snapshot, and decides the outcome. Success requires either the daily
// flag to have flipped or the points to have strictly increased; each
// signal alone has observed false negatives.
type verifyStep struct {
	api         API
	settleDelay time.Duration
}

func (s *verifyStep) Name() string { return "verify" }

func (s *verifyStep) Do(ctx context.Context, run *scanRun) error {
	if err := sleepContext(ctx, s.settleDelay); err != nil {
		return fmt.Errorf("settle wait interrupted: %w", err)
	}

	snapshot, err := s.api.FetchStatus(ctx, run.identity)
	if err != nil {
		return fmt.Errorf("verification fetch failed: %w", err)
	}
	run.after = snapshot
	run.identity.SetLastKnownScore(snapshot.Points)

	points := snapshot.Points
	run.result.PointsAfter = &points
	run.result.ScanStreak = snapshot.ScanStreak

	flagSet := snapshot.DailyScanDone
	pointsUp := snapshot.PointsIncreasedFrom(run.before)

	switch {
	case flagSet && pointsUp:
		run.result.VerifiedBy = "flag+points"
	case flagSet:
		run.result.VerifiedBy = "flag"
	case pointsUp:
		run.result.VerifiedBy = "points"
	}

	if flagSet || pointsUp {
		run.state = StateVerifiedSuccess
		run.result.Outcome = model.OutcomeVerified
	} else {
		run.state = StateVerifiedFailure
		run.result.Outcome = model.OutcomeUnverified
	}
	return nil
}

// failureClass extracts the transport failure classification from an
// error chain. Empty when the error is not a classified request failure.
func failureClass(err error) string {
	var reqErr *transport.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind.String()
	}
	return ""
}

// proxyRoute describes the identity's egress in credential-free form.
func proxyRoute(identity *model.Identity) string {
	if identity.Proxy == nil {
		return "direct"
	}
	return identity.Proxy.Redacted()
}

// sleepContext waits for d or until the context is cancelled, whichever
// comes first. A non-positive duration returns immediately.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
