package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT(t *testing.T) {
	SetJWTConfig("test-secret", time.Hour)

	t.Run("round trip", func(t *testing.T) {
		token, err := GenerateJWT("42", "technician")
		require.NoError(t, err)

		claims, err := ParseJWT(token)
		require.NoError(t, err)
		assert.Equal(t, "42", claims.UserID)
		assert.Equal(t, "technician", claims.Role)

		exp, err := claims.GetExpirationTime()
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), exp.Time, 5*time.Second)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateJWT("42", "user")
		require.NoError(t, err)

		SetJWTConfig("other-secret", time.Hour)
		defer SetJWTConfig("test-secret", time.Hour)

		_, err = ParseJWT(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseJWT("not-a-token")
		assert.Error(t, err)
	})
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)

	assert.True(t, CheckPassword("s3cret!", string(hash)))
	assert.False(t, CheckPassword("wrong", string(hash)))
}
