// Package database provides SQLite-based storage for scanherd's run
// history.
//
// This package implements the HistoryDB, which stores:
//   - One row per batch run with its outcome counters and the full
//     report as JSON
//   - One row per identity outcome, keyed by the identity's log-safe
//     fingerprint for cross-batch queries
//
// Design decision: We use SQLite (via modernc.org/sqlite) because:
// 1. No external dependencies - the database is a single file
// 2. CGO-free implementation allows easy cross-compilation
// 3. A daily batch writes a few hundred rows at most
// 4. WAL mode keeps history queries readable while a batch records
//
// Only fingerprints are persisted, never wallet addresses or secrets:
// the history file is safe to share when reporting problems.
package database
