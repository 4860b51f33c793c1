package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskforge/internal/auth"
	apperrors "taskforge/internal/errors"
	"taskforge/internal/model"
	"taskforge/internal/repository"
	"taskforge/internal/validate"
)

const bcryptCost = 10

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthService handles registration, login and the refresh token lifecycle.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, user *model.User, err error)
	Refresh(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error
	CurrentUser(ctx context.Context, userID uint) (*model.User, error)
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

type authService struct {
	userRepo  repository.UserRepository
	tokenRepo repository.RefreshTokenRepository
	jwt       *auth.JWTService
	log       *logrus.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, tokenRepo repository.RefreshTokenRepository, jwt *auth.JWTService, log *logrus.Logger) AuthService {
	return &authService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		jwt:       jwt,
		log:       log,
	}
}

// Register creates a new user with hashed password and the default role.
func (s *authService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if msg := validate.Username(username); msg != "" {
		return nil, apperrors.NewValidation(msg)
	}
	if msg := validate.Password(in.Password); msg != "" {
		return nil, apperrors.NewValidation(msg)
	}

	if _, err := s.userRepo.FindByUsername(ctx, username); err == nil {
		return nil, apperrors.ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsActive:     true,
		Role:         model.RoleUser,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// A concurrent writer can win the race between the pre-check and the
		// insert; the unique index still holds, so surface the same 409.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if _, lookupErr := s.userRepo.FindByUsername(ctx, username); lookupErr == nil {
				return nil, apperrors.ErrUsernameTaken
			}
			return nil, apperrors.ErrEmailTaken
		}
		s.log.WithError(err).Error("failed to create user")
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login authenticates a user and returns access and refresh tokens. The
// refresh token is persisted so it can be revoked later.
func (s *authService) Login(ctx context.Context, email, password string) (string, string, *model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return "", "", nil, apperrors.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", "", nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsActive {
		return "", "", nil, apperrors.ErrAccountInactive
	}

	accessToken, err := s.jwt.GenerateAccessToken(user.ID)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, expiresAt, err := s.jwt.GenerateRefreshToken(user.ID)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate refresh token: %w", err)
	}

	row := &model.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
	}
	if err := s.tokenRepo.Create(ctx, row); err != nil {
		s.log.WithError(err).Error("failed to store refresh token")
		return "", "", nil, fmt.Errorf("store refresh token: %w", err)
	}

	return accessToken, refreshToken, user, nil
}

// Refresh validates a persisted refresh token and mints a new access token.
// The refresh token itself is left unchanged; there is no rotation.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	row, err := s.tokenRepo.FindByToken(ctx, refreshToken)
	if err != nil {
		return "", apperrors.ErrInvalidRefreshToken
	}

	if !row.IsValid() {
		return "", apperrors.ErrInvalidRefreshToken
	}

	user, err := s.userRepo.FindByID(ctx, row.UserID)
	if err != nil || !user.IsActive {
		return "", apperrors.ErrInvalidRefreshToken
	}

	accessToken, err := s.jwt.GenerateAccessToken(user.ID)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}

	return accessToken, nil
}

// Logout revokes a refresh token. Revoking an unknown token is not an error.
func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.tokenRepo.Revoke(ctx, refreshToken); err != nil {
		s.log.WithError(err).Error("failed to revoke refresh token")
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// ChangePassword verifies the current password, stores the new hash and
// bulk-revokes every refresh token the user holds.
func (s *authService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrUserNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apperrors.ErrWrongPassword
	}

	if msg := validate.Password(newPassword); msg != "" {
		return apperrors.NewValidation(msg)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = string(hashed)
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.log.WithError(err).Error("failed to update password")
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.tokenRepo.RevokeAllForUser(ctx, userID); err != nil {
		s.log.WithError(err).Error("failed to revoke refresh tokens after password change")
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}

	return nil
}

// CurrentUser resolves the authenticated user, rejecting inactive accounts.
func (s *authService) CurrentUser(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.ErrUserNotFound
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountInactive
	}
	return user, nil
}

// CleanupExpiredTokens deletes refresh tokens past expiry. Runs out of band,
// never in the request path.
func (s *authService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	count, err := s.tokenRepo.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		s.log.WithError(err).Error("failed to clean up expired refresh tokens")
		return 0, err
	}
	if count > 0 {
		s.log.WithFields(logrus.Fields{"count": count}).Info("deleted expired refresh tokens")
	}
	return count, nil
}
