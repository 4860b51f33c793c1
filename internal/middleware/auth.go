// Package middleware implements the request guard chain: authentication,
// role checks, ownership checks and rate limiting. Every check is
// re-evaluated per request; no state is carried across calls.
package middleware

import (
	"net/http"
	"strconv"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"taskforge/internal/auth"
	apperrors "taskforge/internal/errors"
	"taskforge/internal/model"
	"taskforge/internal/repository"
	"taskforge/internal/response"
)

const currentUserKey = "current_user"

// OwnerResolver fetches the owning user id of the targeted resource.
// It must return a not-found domain error when the resource does not exist.
type OwnerResolver func(c echo.Context) (uint, error)

// Guard bundles the composable authorization checks. Checks wrap handlers
// left-to-right: authentication first, then role or ownership.
type Guard struct {
	jwt   *auth.JWTService
	users repository.UserRepository
}

// NewGuard builds a Guard on top of the token service and user store.
func NewGuard(jwt *auth.JWTService, users repository.UserRepository) *Guard {
	return &Guard{jwt: jwt, users: users}
}

// RequireAuth extracts and validates the bearer token, then resolves the
// account. Missing, malformed or expired tokens yield 401. A valid token
// whose account is gone or inactive yields 404: the credential checks out
// cryptographically but the identity behind it no longer qualifies.
func (g *Guard) RequireAuth() echo.MiddlewareFunc {
	jwtMiddleware := echojwt.WithConfig(echojwt.Config{
		ParseTokenFunc: func(c echo.Context, tokenString string) (interface{}, error) {
			claims, err := g.jwt.ValidateToken(tokenString)
			if err != nil {
				return nil, err
			}
			if claims.TokenType != auth.TokenTypeAccess {
				return nil, auth.ErrWrongTokenType
			}
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return response.Error(c, http.StatusUnauthorized, "Unauthorized", "missing or invalid access token")
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return jwtMiddleware(g.resolveUser(next))
	}
}

// OptionalAuth resolves an identity when a valid token is present but lets
// the request through with no identity otherwise. Handlers must treat the
// current user as nullable.
func (g *Guard) OptionalAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, ok := BearerToken(c)
			if !ok {
				return next(c)
			}

			claims, err := g.jwt.ValidateToken(tokenString)
			if err != nil || claims.TokenType != auth.TokenTypeAccess {
				return next(c)
			}

			user, err := g.users.FindByID(c.Request().Context(), claims.UserID)
			if err != nil || !user.IsActive {
				return next(c)
			}

			c.Set(currentUserKey, user)
			return next(c)
		}
	}
}

// RequireRole rejects callers whose role is outside the allowed set with
// 403. It composes after RequireAuth.
func (g *Guard) RequireRole(allowed ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return response.Error(c, http.StatusUnauthorized, "Unauthorized", "missing or invalid access token")
			}
			for _, role := range allowed {
				if user.Role == role {
					return next(c)
				}
			}
			return response.Error(c, http.StatusForbidden, "Forbidden", "you do not have permission to access this resource")
		}
	}
}

// RequireAdmin is shorthand for RequireRole(admin).
func (g *Guard) RequireAdmin() echo.MiddlewareFunc {
	return g.RequireRole(model.RoleAdmin)
}

// RequireOwnerOrAdmin resolves the target resource's owner and admits only
// the owner or an admin. A missing resource yields 404. It composes after
// RequireAuth.
func (g *Guard) RequireOwnerOrAdmin(resolve OwnerResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return response.Error(c, http.StatusUnauthorized, "Unauthorized", "missing or invalid access token")
			}

			ownerID, err := resolve(c)
			if err != nil {
				httpErr := apperrors.MapErrorToHTTP(err)
				if httpErr.StatusCode == http.StatusNotFound {
					return response.Error(c, http.StatusNotFound, "Not Found", "resource not found")
				}
				return response.Error(c, httpErr.StatusCode, httpErr.Code, httpErr.Message)
			}

			if user.ID != ownerID && !user.IsAdmin() {
				return response.Error(c, http.StatusForbidden, "Forbidden", "you can only access your own resources")
			}

			return next(c)
		}
	}
}

// PathIDResolver builds an OwnerResolver that reads the owner id straight
// from a numeric path parameter. Used for routes where the resource IS the
// user, such as /users/:id.
func PathIDResolver(param string) OwnerResolver {
	return func(c echo.Context) (uint, error) {
		id, err := strconv.ParseUint(c.Param(param), 10, 64)
		if err != nil {
			return 0, apperrors.ErrUserNotFound
		}
		return uint(id), nil
	}
}

// resolveUser turns validated claims into a loaded, active account.
func (g *Guard) resolveUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := c.Get("user").(*auth.Claims)
		if !ok {
			return response.Error(c, http.StatusUnauthorized, "Unauthorized", "missing or invalid access token")
		}

		user, err := g.users.FindByID(c.Request().Context(), claims.UserID)
		if err != nil || !user.IsActive {
			return response.Error(c, http.StatusNotFound, "User Not Found", "user account not found or inactive")
		}

		c.Set(currentUserKey, user)
		return next(c)
	}
}

// CurrentUser returns the authenticated user set by the guard, or nil when
// the request carries no identity.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(currentUserKey).(*model.User)
	return user
}

// BearerToken extracts the raw token from the Authorization header.
func BearerToken(c echo.Context) (string, bool) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return "", false
	}
	return header[len(prefix):], true
}
