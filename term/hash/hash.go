// Package hash computes content hashes of terms.
//
// Terms use de Bruijn indices, so two terms hash equal exactly when they are
// alpha-equivalent.
package hash

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/chazu/redex/term"
)

// Sum computes the SHA-256 content hash of the term at r.
func Sum(s *term.Store, r term.Ref) [32]byte {
	return sha256.Sum256(Serialize(s, r))
}

// Hex returns Sum as a lowercase hex string.
func Hex(s *term.Store, r term.Ref) string {
	h := Sum(s, r)
	return hex.EncodeToString(h[:])
}
