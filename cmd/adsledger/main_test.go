package main

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sol1corejz/adsledger/cmd/config"
	"github.com/sol1corejz/adsledger/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigningSecretKeepsConfiguredValue(t *testing.T) {
	secret, err := signingSecret("s3cr3t-from-env")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t-from-env", secret)
}

func TestSigningSecretReplacesMissingOrPlaceholder(t *testing.T) {
	for _, configured := range []string{"", config.InsecureJWTSecret} {
		secret, err := signingSecret(configured)
		require.NoError(t, err)
		assert.NotEqual(t, configured, secret)
		assert.Len(t, secret, 64)

		other, err := signingSecret(configured)
		require.NoError(t, err)
		assert.NotEqual(t, secret, other)
	}
}

func TestPlaceholderSignedTokenRejected(t *testing.T) {
	claims := auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           uuid.NewString(),
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(config.InsecureJWTSecret))
	require.NoError(t, err)

	secret, err := signingSecret(config.InsecureJWTSecret)
	require.NoError(t, err)

	_, err = auth.NewTokenIssuer(secret, time.Hour).ParseToken(forged)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
