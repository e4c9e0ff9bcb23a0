// Package main provides the entry point for the scanherd CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for scanherd.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scanherd",
		Short: "Daily check-in automation for scan platform wallets",
		Long: `Scanherd drives the daily check-in workflow for a fleet of wallet
identities against the scan platform API.

For each identity it registers tracking, checks the daily status, primes a
session, submits the scan action, and verifies that the check-in actually
took effect. Identities run strictly one at a time, each over its own
proxy route, with retry-aware transport in between.

Outcomes are recorded in a local history database and reported as text,
JSON, or Markdown.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
