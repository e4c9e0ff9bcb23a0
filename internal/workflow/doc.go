// Package workflow implements the multi-step check-in state machine and
// the batch orchestrator that drives it across many identities.
//
// One scan run walks a fixed transition sequence: register a tracking
// correlation, read the pre-action status, either skip (already credited
// today) or prime the session, submit the scan, then verify the outcome
// by re-reading the status after a settle delay. Submission failures are
// deliberately suppressed: the platform sometimes awards credit even when
// the synchronous response errors, so only the before/after comparison
// decides success.
//
// The batch orchestrator assigns proxies round-robin, processes
// identities strictly sequentially with a jittered pause between them,
// and converts every per-identity failure into a reported outcome
// instead of aborting the batch.
package workflow
