package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordMismatch = errors.New("password mismatch")

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// dummyHash is compared against when no account exists, so a missing phone
// costs the same bcrypt work as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("loralinka-no-such-user"), bcrypt.DefaultCost)

// HashPassword uses bcrypt
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(b), err
}

// ComparePassword checks password against a stored hash. Accounts created before
// bcrypt carry an unsalted SHA-256 hex digest; those still verify and report
// needsRehash so the caller can upgrade them.
func ComparePassword(hash, password string) (needsRehash bool, err error) {
	if isBcrypt(hash) {
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
			return false, ErrPasswordMismatch
		}
		return false, nil
	}

	if subtle.ConstantTimeCompare([]byte(legacyHash(password)), []byte(strings.ToLower(hash))) != 1 {
		return false, ErrPasswordMismatch
	}
	return true, nil
}

// BurnCompare spends one bcrypt comparison and always fails.
func BurnCompare(password string) error {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
	return ErrPasswordMismatch
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

// legacyHash produces SHA256 hex of the password, the format of pre-bcrypt rows
func legacyHash(password string) string {
	h := sha256.Sum256([]byte(password))
	return hex.EncodeToString(h[:])
}
