package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashRefreshToken returns the hex SHA-256 of a refresh token. Grants store this, never the raw token.
func HashRefreshToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// RefreshTokenHashEqual compares the hash of providedToken with storedHash in constant time.
func RefreshTokenHashEqual(providedToken, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashRefreshToken(providedToken)), []byte(storedHash)) == 1
}
