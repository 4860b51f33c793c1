package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJWTService_AccessTokenRoundTrip(t *testing.T) {
	service := NewJWTService("test-secret", time.Hour, 24*time.Hour)

	token, err := service.GenerateAccessToken(42)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.NotEmpty(t, claims.ID)

	userID, err := service.ValidateAccessToken(token)
	assert.NoError(t, err)
	assert.Equal(t, uint(42), userID)
}

func TestJWTService_RefreshTokenRoundTrip(t *testing.T) {
	service := NewJWTService("test-secret", time.Hour, 24*time.Hour)

	token, expiresAt, err := service.GenerateRefreshToken(42)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, time.Minute)

	claims, err := service.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestJWTService_RefreshTokenRejectedAsAccess(t *testing.T) {
	service := NewJWTService("test-secret", time.Hour, 24*time.Hour)

	token, _, err := service.GenerateRefreshToken(42)
	assert.NoError(t, err)

	_, err = service.ValidateAccessToken(token)
	assert.Equal(t, ErrWrongTokenType, err)
}

func TestJWTService_ExpiredToken(t *testing.T) {
	service := NewJWTService("test-secret", -time.Minute, 24*time.Hour)

	token, err := service.GenerateAccessToken(42)
	assert.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.Equal(t, ErrTokenExpired, err)
}

func TestJWTService_WrongSecret(t *testing.T) {
	service := NewJWTService("test-secret", time.Hour, 24*time.Hour)
	other := NewJWTService("other-secret", time.Hour, 24*time.Hour)

	token, err := service.GenerateAccessToken(42)
	assert.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Equal(t, ErrTokenInvalid, err)
}

func TestJWTService_Garbage(t *testing.T) {
	service := NewJWTService("test-secret", time.Hour, 24*time.Hour)

	_, err := service.ValidateToken("not.a.token")
	assert.Equal(t, ErrTokenInvalid, err)
}
