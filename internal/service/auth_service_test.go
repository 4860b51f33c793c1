package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskforge/internal/auth"
	apperrors "taskforge/internal/errors"
	"taskforge/internal/model"
	"taskforge/internal/query"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, p query.Pagination, sortBy, sortOrder string) ([]model.User, *query.Meta, error) {
	args := m.Called(ctx, p, sortBy, sortOrder)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).([]model.User), args.Get(1).(*query.Meta), args.Error(2)
}

// MockRefreshTokenRepository is a mock implementation of RefreshTokenRepository.
type MockRefreshTokenRepository struct {
	mock.Mock
}

func (m *MockRefreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.RefreshToken), args.Error(1)
}

func (m *MockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockRefreshTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestJWT() *auth.JWTService {
	return auth.NewJWTService("test-secret", time.Hour, 24*time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	tests := []struct {
		name          string
		input         RegisterInput
		setupMock     func(*MockUserRepository)
		expectedError error
	}{
		{
			name: "successful registration",
			input: RegisterInput{
				Username: "newuser",
				Email:    "New@Example.com",
				Password: "Password1",
			},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "newuser").Return(nil, gorm.ErrRecordNotFound)
				m.On("FindByEmail", mock.Anything, "new@example.com").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
			},
		},
		{
			name: "username already taken",
			input: RegisterInput{
				Username: "taken",
				Email:    "other@example.com",
				Password: "Password1",
			},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "taken").Return(&model.User{Username: "taken"}, nil)
			},
			expectedError: apperrors.ErrUsernameTaken,
		},
		{
			name: "email already taken",
			input: RegisterInput{
				Username: "newuser",
				Email:    "taken@example.com",
				Password: "Password1",
			},
			setupMock: func(m *MockUserRepository) {
				m.On("FindByUsername", mock.Anything, "newuser").Return(nil, gorm.ErrRecordNotFound)
				m.On("FindByEmail", mock.Anything, "taken@example.com").Return(&model.User{Email: "taken@example.com"}, nil)
			},
			expectedError: apperrors.ErrEmailTaken,
		},
		{
			name: "weak password rejected",
			input: RegisterInput{
				Username: "newuser",
				Email:    "new@example.com",
				Password: "password",
			},
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.NewValidation("password must contain at least one uppercase letter"),
		},
		{
			name: "invalid username rejected",
			input: RegisterInput{
				Username: "bad user!",
				Email:    "new@example.com",
				Password: "Password1",
			},
			setupMock:     func(m *MockUserRepository) {},
			expectedError: apperrors.NewValidation("username may only contain letters, numbers, underscores and hyphens"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockUsers := new(MockUserRepository)
			tt.setupMock(mockUsers)

			service := NewAuthService(mockUsers, new(MockRefreshTokenRepository), newTestJWT(), newTestLogger())
			user, err := service.Register(context.Background(), tt.input)

			if tt.expectedError != nil {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedError.Error(), err.Error())
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, user)
				assert.Equal(t, "new@example.com", user.Email)
				assert.Equal(t, model.RoleUser, user.Role)
				assert.True(t, user.IsActive)
				assert.NotEmpty(t, user.PasswordHash)
				assert.NotEqual(t, tt.input.Password, user.PasswordHash)
			}

			mockUsers.AssertExpectations(t)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("Password1"), 10)

	tests := []struct {
		name          string
		email         string
		password      string
		setupMock     func(*MockUserRepository, *MockRefreshTokenRepository)
		expectedError error
	}{
		{
			name:     "successful login",
			email:    "Test@Example.com",
			password: "Password1",
			setupMock: func(mUsers *MockUserRepository, mTokens *MockRefreshTokenRepository) {
				mUsers.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID:           1,
					Email:        "test@example.com",
					PasswordHash: string(hashed),
					IsActive:     true,
				}, nil)
				mTokens.On("Create", mock.Anything, mock.AnythingOfType("*model.RefreshToken")).Return(nil)
			},
		},
		{
			name:     "unknown email",
			email:    "missing@example.com",
			password: "Password1",
			setupMock: func(mUsers *MockUserRepository, mTokens *MockRefreshTokenRepository) {
				mUsers.On("FindByEmail", mock.Anything, "missing@example.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "wrong password",
			email:    "test@example.com",
			password: "Wrong1234",
			setupMock: func(mUsers *MockUserRepository, mTokens *MockRefreshTokenRepository) {
				mUsers.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID:           1,
					Email:        "test@example.com",
					PasswordHash: string(hashed),
					IsActive:     true,
				}, nil)
			},
			expectedError: apperrors.ErrInvalidCredentials,
		},
		{
			name:     "inactive account",
			email:    "test@example.com",
			password: "Password1",
			setupMock: func(mUsers *MockUserRepository, mTokens *MockRefreshTokenRepository) {
				mUsers.On("FindByEmail", mock.Anything, "test@example.com").Return(&model.User{
					ID:           1,
					Email:        "test@example.com",
					PasswordHash: string(hashed),
					IsActive:     false,
				}, nil)
			},
			expectedError: apperrors.ErrAccountInactive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockUsers := new(MockUserRepository)
			mockTokens := new(MockRefreshTokenRepository)
			tt.setupMock(mockUsers, mockTokens)

			service := NewAuthService(mockUsers, mockTokens, newTestJWT(), newTestLogger())
			accessToken, refreshToken, user, err := service.Login(context.Background(), tt.email, tt.password)

			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
				assert.Empty(t, accessToken)
				assert.Empty(t, refreshToken)
				assert.Nil(t, user)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, accessToken)
				assert.NotEmpty(t, refreshToken)
				assert.NotNil(t, user)
			}

			mockUsers.AssertExpectations(t)
			mockTokens.AssertExpectations(t)
		})
	}
}

func TestAuthService_Refresh(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name          string
		setupMock     func(*MockUserRepository, *MockRefreshTokenRepository)
		expectedError error
	}{
		{
			name: "valid token yields new access token",
			setupMock: func(mUsers *MockUserRepository, mTokens *MockRefreshTokenRepository) {
				mTokens.On("FindByToken", mock.Anything, "token").Return(&model.RefreshToken{
					Token: "token", UserID: 1, ExpiresAt: future,
				}, nil)
				mUsers.On("FindByID", mock.Anything, uint(1)).Return(&model.User{ID: 1, IsActive: true}, nil)
			},
		},
		{
			name: "unknown token",
			setupMock: func(mUsers *MockUserRepository, mTokens *MockRefreshTokenRepository) {
				mTokens.On("FindByToken", mock.Anything, "token").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedError: apperrors.ErrInvalidRefreshToken,
		},
		{
			name: "revoked token",
			setupMock: func(mUsers *MockUserRepository, mTokens *MockRefreshTokenRepository) {
				mTokens.On("FindByToken", mock.Anything, "token").Return(&model.RefreshToken{
					Token: "token", UserID: 1, ExpiresAt: future, IsRevoked: true,
				}, nil)
			},
			expectedError: apperrors.ErrInvalidRefreshToken,
		},
		{
			name: "expired token",
			setupMock: func(mUsers *MockUserRepository, mTokens *MockRefreshTokenRepository) {
				mTokens.On("FindByToken", mock.Anything, "token").Return(&model.RefreshToken{
					Token: "token", UserID: 1, ExpiresAt: past,
				}, nil)
			},
			expectedError: apperrors.ErrInvalidRefreshToken,
		},
		{
			name: "deactivated user",
			setupMock: func(mUsers *MockUserRepository, mTokens *MockRefreshTokenRepository) {
				mTokens.On("FindByToken", mock.Anything, "token").Return(&model.RefreshToken{
					Token: "token", UserID: 1, ExpiresAt: future,
				}, nil)
				mUsers.On("FindByID", mock.Anything, uint(1)).Return(&model.User{ID: 1, IsActive: false}, nil)
			},
			expectedError: apperrors.ErrInvalidRefreshToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockUsers := new(MockUserRepository)
			mockTokens := new(MockRefreshTokenRepository)
			tt.setupMock(mockUsers, mockTokens)

			service := NewAuthService(mockUsers, mockTokens, newTestJWT(), newTestLogger())
			accessToken, err := service.Refresh(context.Background(), "token")

			if tt.expectedError != nil {
				assert.Equal(t, tt.expectedError, err)
				assert.Empty(t, accessToken)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, accessToken)
			}

			mockTokens.AssertExpectations(t)
		})
	}
}

func TestAuthService_Logout_Idempotent(t *testing.T) {
	mockTokens := new(MockRefreshTokenRepository)
	mockTokens.On("Revoke", mock.Anything, "whatever").Return(nil).Twice()

	service := NewAuthService(new(MockUserRepository), mockTokens, newTestJWT(), newTestLogger())

	assert.NoError(t, service.Logout(context.Background(), "whatever"))
	assert.NoError(t, service.Logout(context.Background(), "whatever"))
	mockTokens.AssertExpectations(t)
}

func TestAuthService_ChangePassword(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("OldPass12"), 10)

	t.Run("wrong current password", func(t *testing.T) {
		mockUsers := new(MockUserRepository)
		mockUsers.On("FindByID", mock.Anything, uint(1)).Return(&model.User{ID: 1, PasswordHash: string(hashed)}, nil)

		service := NewAuthService(mockUsers, new(MockRefreshTokenRepository), newTestJWT(), newTestLogger())
		err := service.ChangePassword(context.Background(), 1, "NotTheOne1", "NewPass12")

		assert.Equal(t, apperrors.ErrWrongPassword, err)
	})

	t.Run("weak new password rejected", func(t *testing.T) {
		mockUsers := new(MockUserRepository)
		mockUsers.On("FindByID", mock.Anything, uint(1)).Return(&model.User{ID: 1, PasswordHash: string(hashed)}, nil)

		service := NewAuthService(mockUsers, new(MockRefreshTokenRepository), newTestJWT(), newTestLogger())
		err := service.ChangePassword(context.Background(), 1, "OldPass12", "short")

		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("success revokes all refresh tokens", func(t *testing.T) {
		mockUsers := new(MockUserRepository)
		mockTokens := new(MockRefreshTokenRepository)
		mockUsers.On("FindByID", mock.Anything, uint(1)).Return(&model.User{ID: 1, PasswordHash: string(hashed)}, nil)
		mockUsers.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
		mockTokens.On("RevokeAllForUser", mock.Anything, uint(1)).Return(nil)

		service := NewAuthService(mockUsers, mockTokens, newTestJWT(), newTestLogger())
		err := service.ChangePassword(context.Background(), 1, "OldPass12", "NewPass12")

		assert.NoError(t, err)
		mockUsers.AssertExpectations(t)
		mockTokens.AssertExpectations(t)
	})
}

func TestAuthService_CleanupExpiredTokens(t *testing.T) {
	mockTokens := new(MockRefreshTokenRepository)
	mockTokens.On("DeleteExpired", mock.Anything, mock.AnythingOfType("time.Time")).Return(int64(3), nil)

	service := NewAuthService(new(MockUserRepository), mockTokens, newTestJWT(), newTestLogger())
	count, err := service.CleanupExpiredTokens(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
