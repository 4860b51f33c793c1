package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	// TokenTypeAccess marks short-lived stateless tokens.
	TokenTypeAccess = "access"
	// TokenTypeRefresh marks long-lived persisted tokens.
	TokenTypeRefresh = "refresh"
)

var (
	// ErrTokenExpired is returned when a token's expiry has passed.
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenInvalid is returned for malformed or mis-signed tokens.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrWrongTokenType is returned when a refresh token is presented where
	// an access token is required, or vice versa.
	ErrWrongTokenType = errors.New("wrong token type")
)

// Claims represents JWT claims.
type Claims struct {
	UserID    uint   `json:"user_id"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewJWTService creates a new JWT service with the given secret and TTLs.
func NewJWTService(secret string, accessTTL, refreshTTL time.Duration) *JWTService {
	return &JWTService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// GenerateAccessToken generates a new short-lived access token for the user.
// Access tokens are stateless; nothing is persisted.
func (s *JWTService) GenerateAccessToken(userID uint) (string, error) {
	return s.generate(userID, TokenTypeAccess, s.accessTTL)
}

// GenerateRefreshToken generates a new refresh token and returns its expiry
// so the caller can persist the token row alongside it.
func (s *JWTService) GenerateRefreshToken(userID uint) (token string, expiresAt time.Time, err error) {
	expiresAt = time.Now().UTC().Add(s.refreshTTL)
	token, err = s.generate(userID, TokenTypeRefresh, s.refreshTTL)
	return token, expiresAt, err
}

func (s *JWTService) generate(userID uint, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    userID,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates a JWT token and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// ValidateAccessToken validates an access token and returns the subject user id.
func (s *JWTService) ValidateAccessToken(tokenString string) (uint, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return 0, err
	}
	if claims.TokenType != TokenTypeAccess {
		return 0, ErrWrongTokenType
	}
	return claims.UserID, nil
}
