// Package main provides the entry point for the scanherd CLI.
//
// Scanherd automates daily check-ins for a fleet of wallet identities
// against the scan platform API. Each identity is walked through tracking
// registration, status check, session priming, scan submission, and
// outcome verification, over its own proxy route when one is assigned.
//
// Usage:
//
//	scanherd run
//	scanherd run --loop
//	scanherd history
//
// See --help for all available options.
package main

// main is the entry point for scanherd.
func main() {
	Execute()
}
