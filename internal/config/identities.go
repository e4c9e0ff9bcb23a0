package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/scanherd/scanherd/internal/model"
)

// LoadIdentities reads the credential list: one address:secret pair per
// line. Blank lines and lines starting with # are skipped. The secret may
// itself contain colons; only the first colon separates the pair.
//
// The loader is strict: a non-comment line that is not a complete pair
// fails the whole load. Silently dropping a credential would skip that
// wallet's check-in for the day with nothing in the report to show for it.
//
// Design decision: Parse errors reference the line by number only and
// never echo its content. A malformed line is usually a typo inside a
// real credential, and error messages travel further than the file does
// (logs, bug reports, terminal scrollback).
func LoadIdentities(path string) ([]*model.Identity, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided credential path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read credential list: %w", err)
	}

	var identities []*model.Identity
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		address, secret, ok := strings.Cut(line, ":")
		address = strings.TrimSpace(address)
		secret = strings.TrimSpace(secret)
		if !ok || address == "" || secret == "" {
			return nil, fmt.Errorf("%w: line %d", ErrMalformedCredential, i+1)
		}

		identities = append(identities, model.NewIdentity(address, secret))
	}

	if len(identities) == 0 {
		return nil, ErrNoIdentities
	}

	return identities, nil
}

// LoadProxyStrings reads the proxy list: one proxy spec per line. Blank
// lines and lines starting with # are skipped.
//
// Entries are returned raw and unvalidated: parsing happens during batch
// proxy assignment, where an unparsable entry downgrades its identity to a
// direct connection with a warning. An empty file is valid and yields no
// proxies.
func LoadProxyStrings(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided proxy list path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to read proxy list: %w", err)
	}

	var proxies []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxies = append(proxies, line)
	}

	return proxies, nil
}
