package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session roles carried in the token's role claim.
const (
	RoleAdmin       = "admin"
	RoleParticipant = "participant"
)

// Session token lifetime. Long enough to cover a multi-day event
// without re-login.
const tokenTTL = 7 * 24 * time.Hour

// ErrInvalidToken is returned for tokens that are malformed, expired,
// or not signed with the current secret.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the JWT payload for both admin and participant sessions.
// Subject holds the participant id for participant tokens and "admin"
// for admin tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssueAdminToken signs a new admin session token.
func IssueAdminToken(secret []byte) (string, error) {
	return issue(secret, RoleAdmin, "admin")
}

// IssueParticipantToken signs a new session token for the participant.
func IssueParticipantToken(secret []byte, participantID string) (string, error) {
	return issue(secret, RoleParticipant, participantID)
}

func issue(secret []byte, role, subject string) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses and validates a session token, returning its claims.
func VerifyToken(secret []byte, raw string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role != RoleAdmin && claims.Role != RoleParticipant {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
