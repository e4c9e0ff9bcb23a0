// Package model defines the core data structures used throughout scanherd.
//
// This package contains the following main types:
//   - Identity: A credential-holding wallet account processed in a batch
//   - ProxyDescriptor: A parsed proxy endpoint bound to an identity
//   - Snapshot: The remote platform's score/flag view of one identity
//   - IdentityResult: The terminal outcome of one identity's workflow run
//   - BatchReport: Aggregated outcomes for one batch run
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (proxy, transport, workflow, report,
// database) need to use these types, so centralizing them prevents import
// cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
