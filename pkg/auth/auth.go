package auth

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Credential alphabet. Excludes 0/O/1/I so tokens survive being read
// aloud or written on paper.
const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	accessTokenLength = 5
	passwordLength    = 8
)

func randomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	out := make([]byte, n)
	for i, b := range buf {
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out), nil
}

// GenerateAccessToken returns a short shareable participant token.
// Tokens are compared case-insensitively, so the 5 characters over a
// 32-symbol alphabet give ~33 million combinations, enough for a fleet
// of at most a few hundred participants behind a rate-limited endpoint.
func GenerateAccessToken() (string, error) {
	return randomString(accessTokenLength)
}

// GeneratePassword returns a participant password for IDE basic auth.
func GeneratePassword() (string, error) {
	return randomString(passwordLength)
}

// HashPassword returns the bcrypt hash of a password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
