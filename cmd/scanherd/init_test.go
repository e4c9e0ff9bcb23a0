package main

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// TestNewInitCmd tests the init command creation.
func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "init" {
			t.Errorf("expected use 'init', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has dir flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("dir")
		if flag == nil {
			t.Fatal("expected dir flag")
		}
		if flag.Shorthand != "d" {
			t.Errorf("expected shorthand 'd', got %q", flag.Shorthand)
		}
		if flag.DefValue != "." {
			t.Errorf("expected default '.', got %q", flag.DefValue)
		}
	})

	t.Run("has force flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("force")
		if flag == nil {
			t.Fatal("expected force flag")
		}
		if flag.Shorthand != "f" {
			t.Errorf("expected shorthand 'f', got %q", flag.Shorthand)
		}
		if flag.DefValue != "false" {
			t.Errorf("expected default 'false', got %q", flag.DefValue)
		}
	})
}

// TestRunInitCmd tests the init command execution.
func TestRunInitCmd(t *testing.T) {
	t.Run("creates all starter files", func(t *testing.T) {
		tmpDir := t.TempDir()

		cmd := NewInitCmd()
		cmd.SetArgs([]string{"-d", tmpDir})

		err := cmd.Execute()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, name := range starterFiles {
			if _, err := os.Stat(filepath.Join(tmpDir, name)); os.IsNotExist(err) {
				t.Errorf("expected %s to be created", name)
			}
		}

		// Verify config template contents
		content, err := os.ReadFile(filepath.Join(tmpDir, "scanherd.yaml"))
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if !strings.Contains(string(content), "baseURL") {
			t.Error("expected config template to document baseURL")
		}
		if !strings.Contains(string(content), "walletsFile") {
			t.Error("expected config template to document walletsFile")
		}

		// Verify the credential stub documents the line format
		wallets, err := os.ReadFile(filepath.Join(tmpDir, "wallets.txt"))
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if !strings.Contains(string(wallets), "<wallet-address>:<api-secret>") {
			t.Error("expected wallets stub to document the credential format")
		}
	})

	t.Run("fails if a file exists without force", func(t *testing.T) {
		tmpDir := t.TempDir()

		// Create one existing file; init must refuse before writing anything
		if err := os.WriteFile(filepath.Join(tmpDir, "wallets.txt"), []byte("existing"), 0600); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		cmd := NewInitCmd()
		cmd.SetArgs([]string{"-d", tmpDir})

		err := cmd.Execute()
		if err == nil {
			t.Error("expected error when a file exists")
		}
		if !strings.Contains(err.Error(), "already exists") {
			t.Errorf("expected 'already exists' error, got %v", err)
		}

		// The other files must not have been written
		if _, err := os.Stat(filepath.Join(tmpDir, "scanherd.yaml")); !os.IsNotExist(err) {
			t.Error("expected no files to be written when one already exists")
		}
	})

	t.Run("overwrites files with force flag", func(t *testing.T) {
		tmpDir := t.TempDir()

		if err := os.WriteFile(filepath.Join(tmpDir, "wallets.txt"), []byte("existing"), 0600); err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		cmd := NewInitCmd()
		cmd.SetArgs([]string{"-d", tmpDir, "-f"})

		err := cmd.Execute()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := os.ReadFile(filepath.Join(tmpDir, "wallets.txt"))
		if err != nil {
			t.Fatalf("failed to read file: %v", err)
		}
		if string(content) == "existing" {
			t.Error("expected file to be overwritten")
		}
	})

	t.Run("creates target directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		target := filepath.Join(tmpDir, "subdir", "nested")

		cmd := NewInitCmd()
		cmd.SetArgs([]string{"-d", target})

		err := cmd.Execute()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := os.Stat(filepath.Join(target, "scanherd.yaml")); os.IsNotExist(err) {
			t.Error("expected config file to be created in nested directory")
		}
	})

	t.Run("files have correct permissions", func(t *testing.T) {
		// Skip on Windows as it doesn't support Unix-style file permissions
		if runtime.GOOS == "windows" {
			t.Skip("skipping permission test on Windows")
		}

		tmpDir := t.TempDir()

		cmd := NewInitCmd()
		cmd.SetArgs([]string{"-d", tmpDir})

		err := cmd.Execute()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		for _, name := range starterFiles {
			info, err := os.Stat(filepath.Join(tmpDir, name))
			if err != nil {
				t.Fatalf("failed to stat %s: %v", name, err)
			}

			// Credentials and proxy passwords are owner-only (0600)
			if perm := info.Mode().Perm(); perm != 0600 {
				t.Errorf("expected %s permissions 0600, got %o", name, perm)
			}
		}
	})
}

// TestStarterTemplates tests the embedded starter templates.
func TestStarterTemplates(t *testing.T) {
	t.Parallel()

	t.Run("all templates are present and non-empty", func(t *testing.T) {
		t.Parallel()
		for _, name := range starterFiles {
			content, err := starterTemplates.ReadFile("templates/" + name)
			if err != nil {
				t.Fatalf("failed to read template %s: %v", name, err)
			}
			if len(content) == 0 {
				t.Errorf("expected non-empty template %s", name)
			}
		}
	})

	t.Run("config template is commented-out YAML", func(t *testing.T) {
		t.Parallel()
		content, err := starterTemplates.ReadFile("templates/scanherd.yaml")
		if err != nil {
			t.Fatalf("failed to read template: %v", err)
		}

		// Every non-blank line is a comment so the starter file applies
		// no overrides until the operator uncomments something
		for i, line := range strings.Split(string(content), "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if !strings.HasPrefix(trimmed, "#") {
				t.Errorf("line %d is not a comment: %q", i+1, line)
			}
		}
	})

	t.Run("proxy template documents accepted forms", func(t *testing.T) {
		t.Parallel()
		content, err := starterTemplates.ReadFile("templates/proxies.txt")
		if err != nil {
			t.Fatalf("failed to read template: %v", err)
		}

		for _, scheme := range []string{"socks5://", "socks4://", "http://"} {
			if !strings.Contains(string(content), scheme) {
				t.Errorf("expected proxy template to document %s form", scheme)
			}
		}
	})
}
