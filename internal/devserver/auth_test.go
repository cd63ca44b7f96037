package devserver

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenIssuer(t *testing.T) {
	auth := NewTokenIssuer("test-secret")

	t.Run("generate_and_validate", func(t *testing.T) {
		token, expiresAt, err := auth.GenerateToken("rec_1", time.Hour)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
		assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

		claims, err := auth.VerifyToken(token)
		require.NoError(t, err)
		assert.Equal(t, "rec_1", claims.RecordID)
		assert.Equal(t, AuthRecordType, claims.Type)
		assert.Equal(t, "rec_1", claims.Subject)
	})

	t.Run("bearer_prefix_accepted", func(t *testing.T) {
		token, _, err := auth.GenerateToken("rec_2", 0)
		require.NoError(t, err)

		claims, err := auth.VerifyToken("Bearer " + token)
		require.NoError(t, err)
		assert.Equal(t, "rec_2", claims.RecordID)
	})

	t.Run("zero_ttl_uses_default", func(t *testing.T) {
		_, expiresAt, err := auth.GenerateToken("rec_3", 0)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(DefaultTokenTTL), expiresAt, 5*time.Second)
	})

	t.Run("empty_record_id", func(t *testing.T) {
		_, _, err := auth.GenerateToken("", time.Hour)
		assert.Error(t, err)
	})

	t.Run("wrong_secret", func(t *testing.T) {
		token, _, err := NewTokenIssuer("other-secret").GenerateToken("rec_1", time.Hour)
		require.NoError(t, err)

		_, err = auth.VerifyToken(token)
		assert.Error(t, err)
	})

	t.Run("expired_token", func(t *testing.T) {
		claims := RecordClaims{
			RecordID: "rec_1",
			Type:     AuthRecordType,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = auth.VerifyToken(token)
		require.Error(t, err)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("missing_expiry", func(t *testing.T) {
		claims := RecordClaims{RecordID: "rec_1", Type: AuthRecordType}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = auth.VerifyToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong_type", func(t *testing.T) {
		claims := RecordClaims{
			RecordID: "rec_1",
			Type:     "admin",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = auth.VerifyToken(token)
		assert.ErrorContains(t, err, "unexpected type")
	})

	t.Run("empty_and_garbage", func(t *testing.T) {
		_, err := auth.VerifyToken("")
		assert.Error(t, err)
		_, err = auth.VerifyToken("Bearer ")
		assert.Error(t, err)
		_, err = auth.VerifyToken("not-a-token")
		assert.Error(t, err)
	})
}
