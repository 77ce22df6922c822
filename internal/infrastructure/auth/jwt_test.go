package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Navdeepkaurs/ShopifyIngestion/internal/infrastructure/config"
)

func testService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:     "test-secret-at-least-32-characters-long",
		Issuer:     "shopify-ingest",
		Expiration: time.Hour,
	})
}

func TestJWTService_RoundTrip(t *testing.T) {
	s := testService()

	token, expiresAt, err := s.GenerateToken("ops@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Operator)
	assert.Equal(t, "shopify-ingest", claims.Issuer)
}

func TestJWTService_Rejections(t *testing.T) {
	s := testService()

	t.Run("garbage token", func(t *testing.T) {
		_, err := s.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:     "another-secret-at-least-32-characters",
			Issuer:     "shopify-ingest",
			Expiration: time.Hour,
		})
		token, _, err := other.GenerateToken("ops@example.com")
		require.NoError(t, err)

		_, err = s.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:     "test-secret-at-least-32-characters-long",
			Issuer:     "someone-else",
			Expiration: time.Hour,
		})
		token, _, err := other.GenerateToken("ops@example.com")
		require.NoError(t, err)

		_, err = s.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		short := NewJWTService(config.JWTConfig{
			Secret:     "test-secret-at-least-32-characters-long",
			Issuer:     "shopify-ingest",
			Expiration: -time.Minute,
		})
		token, _, err := short.GenerateToken("ops@example.com")
		require.NoError(t, err)

		_, err = s.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}
