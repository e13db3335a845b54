package auth

import (
	"crypto/sha256"
	"crypto/subtle"
)

// KeyMatches compares a presented API key with the configured one in constant time.
// Both sides are hashed first so the comparison does not leak the key length.
func KeyMatches(presented, configured string) bool {
	if presented == "" || configured == "" {
		return false
	}
	a := sha256.Sum256([]byte(presented))
	b := sha256.Sum256([]byte(configured))
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}
