// Package runid mints identifiers for a single compile-and-execute run: a
// random run ID that keys each trace-store row, and a content fingerprint of the source so repeated runs of
// the same program are recognizable without re-hashing downstream.
package runid

import (
	"encoding/hex"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// New mints a fresh run identifier.
func New() string {
	return uuid.NewString()
}

// Fingerprint returns a 16-hex-character blake2b-256 digest of source,
// used as the trace store's program key. It identifies a run, it does
// not cache one: callers still recompile from source every time.
func Fingerprint(source string) string {
	sum := blake2b.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])[:16]
}
