package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashAPIKey returns the hex sha256 digest of a raw key. Only the
// digest is stored; Resolve hashes the presented key and compares.
func HashAPIKey(raw string) string {
	digest := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(digest[:])
}
