package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGenerateAccessToken verifies length and alphabet membership
func TestGenerateAccessToken(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token, err := GenerateAccessToken()
		require.NoError(t, err)
		assert.Len(t, token, 5)
		for _, r := range token {
			assert.True(t, strings.ContainsRune(alphabet, r), "unexpected character %q", r)
		}
		seen[token] = true
	}
	// 100 draws from a 33M space should not collide down to a handful.
	assert.Greater(t, len(seen), 90)
}

// TestGeneratePassword verifies length and alphabet membership
func TestGeneratePassword(t *testing.T) {
	pw, err := GeneratePassword()
	require.NoError(t, err)
	assert.Len(t, pw, 8)
	for _, r := range pw {
		assert.True(t, strings.ContainsRune(alphabet, r))
	}
}

// TestAlphabetExcludesAmbiguous verifies 0, O, 1, and I are absent
func TestAlphabetExcludesAmbiguous(t *testing.T) {
	for _, r := range "0O1I" {
		assert.False(t, strings.ContainsRune(alphabet, r), "alphabet contains ambiguous %q", r)
	}
	assert.Len(t, alphabet, 32)
}

// TestPasswordHashing covers the bcrypt round trip
func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "s3cret"))
}

// TestTokenRoundTrip verifies issue and verify for both roles
func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")

	admin, err := IssueAdminToken(secret)
	require.NoError(t, err)
	claims, err := VerifyToken(secret, admin)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.Equal(t, "admin", claims.Subject)

	part, err := IssueParticipantToken(secret, "p1")
	require.NoError(t, err)
	claims, err = VerifyToken(secret, part)
	require.NoError(t, err)
	assert.Equal(t, RoleParticipant, claims.Role)
	assert.Equal(t, "p1", claims.Subject)
}

// TestVerifyTokenRejects covers tampered, foreign, and garbage tokens
func TestVerifyTokenRejects(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	other := []byte("ffffffffffffffffffffffffffffffff")

	token, err := IssueAdminToken(secret)
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		key  []byte
	}{
		{"wrong secret", token, other},
		{"garbage", "not.a.token", secret},
		{"empty", "", secret},
		{"tampered payload", token[:len(token)-2] + "xx", secret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := VerifyToken(tt.key, tt.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
