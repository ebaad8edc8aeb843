package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashSecret returns the SHA-256 digest of the UTF-8 bytes of the
// secret, rendered as lowercase hex.
//
// An empty secret is a distinguished failure: it returns ErrEmptySecret
// without invoking the hash function, so "no password supplied" can
// never collide with the digest of the empty string.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:]), nil
}

// SecretMatches reports whether the secret hashes to the stored digest.
// Empty secrets never match; the hash function is not invoked for them.
func SecretMatches(secret, storedHash string) bool {
	candidate, err := HashSecret(secret)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1
}
