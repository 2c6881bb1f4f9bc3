package security

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestTokenManager(t *testing.T) {
	tm := NewTokenManager(testSecret, 30*time.Minute, 24*time.Hour)
	userID := uuid.New()

	t.Run("Access token round trip", func(t *testing.T) {
		token, err := tm.GenerateAccessToken(userID, "rider@example.com", []string{"user"})
		require.NoError(t, err)

		claims, err := tm.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, claims.UserID)
		assert.Equal(t, TokenTypeAccess, claims.Type)
		assert.True(t, claims.HasRole("user"))
		assert.False(t, claims.HasRole("admin"))
	})

	t.Run("Refresh token type", func(t *testing.T) {
		token, err := tm.GenerateRefreshToken(userID, "rider@example.com", []string{"admin"})
		require.NoError(t, err)

		claims, err := tm.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, TokenTypeRefresh, claims.Type)
	})

	t.Run("Email verification token", func(t *testing.T) {
		token, err := tm.GenerateEmailVerificationToken(userID, "rider@example.com")
		require.NoError(t, err)

		claims, err := tm.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, TokenTypeEmailVerify, claims.Type)
		assert.Equal(t, "rider@example.com", claims.Email)
		assert.Empty(t, claims.Roles)
		assert.Equal(t, []string{"email-verify"}, []string(claims.Audience))
		assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
	})

	t.Run("Expired token", func(t *testing.T) {
		expired := NewTokenManager(testSecret, -time.Minute, time.Hour)
		token, err := expired.GenerateAccessToken(userID, "", nil)
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		other := NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour, time.Hour)
		token, err := other.GenerateAccessToken(userID, "", nil)
		require.NoError(t, err)

		_, err = tm.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := tm.ValidateToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
