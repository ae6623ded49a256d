package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	userID := uuid.New()

	token, err := issuer.GenerateToken(userID)
	require.NoError(t, err)

	parsed, err := issuer.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestParseTokenRejects(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	token, err := issuer.GenerateToken(uuid.New())
	require.NoError(t, err)

	_, err = NewTokenIssuer("other-secret", time.Hour).ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenIssuer("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.GenerateToken(uuid.New())
	require.NoError(t, err)
	_, err = issuer.ParseToken(old)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTokenTTL, NewTokenIssuer("secret", 0).TTL())
}

func TestPasswords(t *testing.T) {
	PasswordCost = bcrypt.MinCost

	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}

func TestAdminVerifier(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-key"), bcrypt.MinCost)
	require.NoError(t, err)

	verifier := NewAdminVerifier(string(hash))
	assert.True(t, verifier.Verify("admin-key"))
	assert.False(t, verifier.Verify("wrong"))
	assert.False(t, verifier.Verify(""))

	assert.False(t, NewAdminVerifier("").Verify("admin-key"))
}
