package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"taskforge/internal/auth"
	"taskforge/internal/middleware"
	"taskforge/internal/model"
	"taskforge/internal/query"
	"taskforge/internal/service"
	"taskforge/internal/validate"
)

// testValidator satisfies echo.Validator for handlers that bind DTOs.
type testValidator struct {
	v *validator.Validate
}

func (tv *testValidator) Validate(i interface{}) error { return tv.v.Struct(i) }

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	e := echo.New()
	v := validator.New()
	assert.NoError(t, validate.Register(v))
	e.Validator = &testValidator{v: v}
	return e
}

// MockAuthService is a mock implementation of service.AuthService.
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, in service.RegisterInput) (*model.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (string, string, *model.User, error) {
	args := m.Called(ctx, email, password)
	var user *model.User
	if args.Get(2) != nil {
		user = args.Get(2).(*model.User)
	}
	return args.String(0), args.String(1), user, args.Error(3)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	args := m.Called(ctx, userID, oldPassword, newPassword)
	return args.Error(0)
}

func (m *MockAuthService) CurrentUser(ctx context.Context, userID uint) (*model.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAuthService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// stubUsers backs the guard with a fixed active account.
type stubUsers struct {
	user *model.User
}

func (s *stubUsers) Create(ctx context.Context, user *model.User) error { return nil }
func (s *stubUsers) Update(ctx context.Context, user *model.User) error { return nil }
func (s *stubUsers) Delete(ctx context.Context, user *model.User) error { return nil }
func (s *stubUsers) FindByID(ctx context.Context, id uint) (*model.User, error) {
	return s.user, nil
}
func (s *stubUsers) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.user, nil
}
func (s *stubUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.user, nil
}
func (s *stubUsers) List(ctx context.Context, p query.Pagination, sortBy, sortOrder string) ([]model.User, *query.Meta, error) {
	return nil, nil, nil
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestAuthHandler_Refresh_BearerHeader(t *testing.T) {
	e := newTestEcho(t)
	svc := new(MockAuthService)
	h := NewAuthHandler(svc)

	svc.On("Refresh", mock.Anything, "the-refresh-token").Return("new-access", nil).Once()

	req := jsonRequest(http.MethodPost, "/api/auth/refresh", "")
	req.Header.Set(echo.HeaderAuthorization, "Bearer the-refresh-token")
	rec := httptest.NewRecorder()

	err := h.Refresh(e.NewContext(req, rec))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "new-access")
	svc.AssertExpectations(t)
}

func TestAuthHandler_Refresh_BodyFallback(t *testing.T) {
	e := newTestEcho(t)
	svc := new(MockAuthService)
	h := NewAuthHandler(svc)

	svc.On("Refresh", mock.Anything, "from-body").Return("new-access", nil).Once()

	req := jsonRequest(http.MethodPost, "/api/auth/refresh", `{"refresh_token":"from-body"}`)
	rec := httptest.NewRecorder()

	err := h.Refresh(e.NewContext(req, rec))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestAuthHandler_Refresh_HeaderWinsOverBody(t *testing.T) {
	e := newTestEcho(t)
	svc := new(MockAuthService)
	h := NewAuthHandler(svc)

	svc.On("Refresh", mock.Anything, "header-token").Return("new-access", nil).Once()

	req := jsonRequest(http.MethodPost, "/api/auth/refresh", `{"refresh_token":"body-token"}`)
	req.Header.Set(echo.HeaderAuthorization, "Bearer header-token")
	rec := httptest.NewRecorder()

	err := h.Refresh(e.NewContext(req, rec))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestAuthHandler_Refresh_MissingToken(t *testing.T) {
	e := newTestEcho(t)
	svc := new(MockAuthService)
	h := NewAuthHandler(svc)

	req := jsonRequest(http.MethodPost, "/api/auth/refresh", "")
	rec := httptest.NewRecorder()

	err := h.Refresh(e.NewContext(req, rec))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}

func TestAuthHandler_Logout_RequiresAuth(t *testing.T) {
	e := newTestEcho(t)
	svc := new(MockAuthService)
	h := NewAuthHandler(svc)

	jwtSvc := auth.NewJWTService("test-secret", time.Hour, 24*time.Hour)
	caller := &model.User{ID: 7, Username: "jane", IsActive: true, Role: model.RoleUser}
	guard := middleware.NewGuard(jwtSvc, &stubUsers{user: caller})
	protected := guard.RequireAuth()(h.Logout)

	t.Run("rejected without access token", func(t *testing.T) {
		req := jsonRequest(http.MethodPost, "/api/auth/logout", `{"refresh_token":"tok"}`)
		rec := httptest.NewRecorder()

		err := protected(e.NewContext(req, rec))
		assert.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		svc.AssertNotCalled(t, "Logout", mock.Anything, mock.Anything)
	})

	t.Run("revokes for an authenticated caller", func(t *testing.T) {
		svc.On("Logout", mock.Anything, "tok").Return(nil).Once()

		access, err := jwtSvc.GenerateAccessToken(caller.ID)
		assert.NoError(t, err)

		req := jsonRequest(http.MethodPost, "/api/auth/logout", `{"refresh_token":"tok"}`)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+access)
		rec := httptest.NewRecorder()

		err = protected(e.NewContext(req, rec))
		assert.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})
}
