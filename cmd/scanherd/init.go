package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

//go:embed templates/scanherd.yaml templates/wallets.txt templates/proxies.txt
var starterTemplates embed.FS

// starterFiles are the files the init command writes, in creation order.
var starterFiles = []string{"scanherd.yaml", "wallets.txt", "proxies.txt"}

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a scanherd working directory",
		Long: `Init creates a starter scanherd.yaml configuration file plus stub
wallets.txt and proxies.txt lists in the target directory.

The generated files include:
- Documented defaults for every configuration option
- The credential line format with examples
- The accepted proxy forms

Examples:
  # Create the starter files in the current directory
  scanherd init

  # Create them in a dedicated directory
  scanherd init -d ~/scanherd

  # Force overwrite existing files
  scanherd init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("dir", "d", ".",
		"Target directory for the starter files")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing files")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	// Refuse before writing anything so one existing file never leaves a
	// half-initialized directory behind.
	if !force {
		for _, name := range starterFiles {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists (use -f to overwrite)", path)
			}
		}
	}

	// Create the target directory if needed
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// Write the starter files with owner-only permissions. wallets.txt
	// will hold credentials and proxies.txt may hold proxy passwords.
	for _, name := range starterFiles {
		content, err := starterTemplates.ReadFile("templates/" + name)
		if err != nil {
			return fmt.Errorf("failed to read starter template: %w", err)
		}

		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, content, 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}

		fmt.Printf("Created %s\n", path)
	}

	fmt.Println("\nNext steps:")
	fmt.Println("  1. Add your credentials to wallets.txt (one address:secret per line)")
	fmt.Println("  2. Optionally add proxies to proxies.txt (or delete it to connect directly)")
	fmt.Println("  3. Run 'scanherd run' to execute a batch")

	return nil
}
