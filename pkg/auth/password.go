package auth

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is used when hashing store entries
const BcryptCost = 12

// HashPassword returns a bcrypt hash suitable for the credential store
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// IsBcryptHash reports whether a stored value looks like a bcrypt hash
func IsBcryptHash(stored string) bool {
	if len(stored) != 60 {
		return false
	}
	return strings.HasPrefix(stored, "$2a$") ||
		strings.HasPrefix(stored, "$2b$") ||
		strings.HasPrefix(stored, "$2y$")
}

// ComparePassword checks a candidate against a stored value.
// Plaintext entries are compared in constant time, bcrypt entries through bcrypt.
func ComparePassword(stored, candidate string) bool {
	if IsBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(candidate)) == 1
}
