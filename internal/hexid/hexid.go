// Package hexid generates and abbreviates short hex identifiers.
package hexid

import (
	"crypto/rand"
	"encoding/hex"
)

// New returns an 8-character lowercase hex string (4 random bytes).
func New() string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("hexid: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b[:])
}

// Short abbreviates a long identifier (UUIDs, trace span ids) to its first
// n characters for narrow columns. Ids of n characters or fewer are returned
// unchanged.
func Short(id string, n int) string {
	if n <= 0 || len(id) <= n {
		return id
	}
	return id[:n]
}
