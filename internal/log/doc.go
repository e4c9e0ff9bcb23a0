// Package log provides secure logging functionality with automatic
// sanitization of sensitive information and per-identity de-duplication,
// built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (credentials, tokens, keys)
//   - Suppression of repeated (identity, message) pairs via a bounded cache
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log
// output:
//   - HTTP headers (Authorization, Cookie, X-Wallet-Address)
//   - Secret values detected by pattern matching (bearer tokens, JWTs)
//   - Wallet addresses and hex-encoded private keys
//   - Session identifiers and authentication tokens
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// # De-duplication
//
// Batch runs emit the same per-identity events over and over (retry notices,
// proxy fallbacks, skip decisions). The DedupHandler suppresses records whose
// (identity, message) pair was seen recently, using a fixed-capacity cache
// with oldest-first eviction. Records that carry no identity attribute are
// never suppressed.
//
// # Usage
//
//	// Create a logger with sanitization and de-duplication
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("session primed",
//	    "identity", id.Fingerprint(),
//	    "secret", "tok_abc123", // Will be sanitized to ***REDACTED***
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
