package model

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// fingerprintBytes is the number of digest bytes kept in an identity
// fingerprint. Six bytes (12 hex characters) is short enough for log lines
// and long enough that collisions across a credential list are not a
// practical concern.
const fingerprintBytes = 6

// Identity represents one credential-holding wallet account processed
// during a batch run.
//
// An Identity is created once per batch from the credential list and is
// owned by the batch orchestrator for the duration of that run. It is
// passed by pointer into workflow calls and is read-mostly: only the
// proxy binding and the last known score are annotated after creation.
//
// Design decision: The Secret field holds the raw credential and must
// never appear in logs or reports. All logging uses Fingerprint(), which
// derives a short non-reversible tag from the public address, so shared
// logs cannot be joined back to wallets without the credential file.
type Identity struct {
	// Address is the identity's public wallet address. It doubles as the
	// external identifier the remote platform knows this account by.
	Address string

	// Secret is the opaque credential used to authenticate requests.
	// Treated as sensitive; see the package log sanitizer.
	Secret string

	// Proxy is the egress endpoint assigned to this identity for the
	// current batch. Nil means direct connection, which is a valid state,
	// not an error.
	Proxy *ProxyDescriptor

	// LastKnownScore is the most recent points value observed for this
	// identity. Nil until the first successful status fetch.
	LastKnownScore *float64
}

// NewIdentity creates an Identity from raw credential material.
func NewIdentity(address, secret string) *Identity {
	return &Identity{
		Address: address,
		Secret:  secret,
	}
}

// Fingerprint returns a short non-reversible tag for this identity,
// suitable for log lines and history keys.
//
// The tag is the first 12 hex characters of the SHA3-256 digest of the
// address. SHA3 is used instead of SHA-256 so the tag cannot be matched
// against the widely published SHA-256 rainbow sets for known addresses.
func (i *Identity) Fingerprint() string {
	sum := sha3.Sum256([]byte(i.Address))
	return hex.EncodeToString(sum[:fingerprintBytes])
}

// String returns a log-safe representation of the identity.
// It never includes the address or the secret.
func (i *Identity) String() string {
	return fmt.Sprintf("identity(%s)", i.Fingerprint())
}

// SetLastKnownScore annotates the identity with the most recently
// observed points value.
func (i *Identity) SetLastKnownScore(points float64) {
	i.LastKnownScore = &points
}
