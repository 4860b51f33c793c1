package router

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"taskforge/internal/config"
	"taskforge/internal/handler"
	"taskforge/internal/middleware"
	"taskforge/internal/validate"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	guard *middleware.Guard,
	authHandler *handler.AuthHandler,
	taskHandler *handler.TaskHandler,
	tagHandler *handler.TagHandler,
	userHandler *handler.UserHandler,
	healthHandler *handler.HealthHandler,
) {
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	// Add validator with the custom rules (password, username, tagcolor)
	e.Validator = NewCustomValidator()

	if cfg.RateLimitEnabled {
		e.Use(middleware.NewRateLimiter(cfg.GeneralRPM, cfg.AuthRPM).Middleware())
	}

	e.GET("/health", healthHandler.Check)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes; refresh authenticates with the refresh token itself
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	// Secured routes
	secured := api.Group("", guard.RequireAuth())

	secured.POST("/auth/logout", authHandler.Logout)
	secured.GET("/auth/me", authHandler.Me)
	secured.POST("/auth/change-password", authHandler.ChangePassword)

	// Task routes; ownership is enforced inside the service layer so
	// admins can reach other users' tasks.
	secured.GET("/tasks", taskHandler.List)
	secured.POST("/tasks", taskHandler.Create)
	secured.GET("/tasks/statistics", taskHandler.Statistics)
	secured.GET("/tasks/export", taskHandler.Export)
	secured.GET("/tasks/:id", taskHandler.Get)
	secured.PUT("/tasks/:id", taskHandler.Update)
	secured.DELETE("/tasks/:id", taskHandler.Delete)
	secured.POST("/tasks/:id/complete", taskHandler.Complete)
	secured.POST("/tasks/:id/tags/:tag_id", taskHandler.AddTag)
	secured.DELETE("/tasks/:id/tags/:tag_id", taskHandler.RemoveTag)

	// Tag routes; every authenticated user may read and create, only
	// admins may modify or delete.
	secured.GET("/tags", tagHandler.List)
	secured.GET("/tags/:id", tagHandler.Get)
	secured.POST("/tags", tagHandler.Create)
	secured.PUT("/tags/:id", tagHandler.Update, guard.RequireAdmin())
	secured.DELETE("/tags/:id", tagHandler.Delete, guard.RequireAdmin())

	// User routes
	secured.GET("/users", userHandler.List, guard.RequireAdmin())
	secured.GET("/users/:id", userHandler.Get, guard.RequireOwnerOrAdmin(middleware.PathIDResolver("id")))
	secured.PUT("/users/:id", userHandler.Update, guard.RequireOwnerOrAdmin(middleware.PathIDResolver("id")))
	secured.DELETE("/users/:id", userHandler.Delete, guard.RequireAdmin())
	secured.POST("/users/:id/activate", userHandler.Activate, guard.RequireAdmin())
	secured.POST("/users/:id/deactivate", userHandler.Deactivate, guard.RequireAdmin())
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewCustomValidator builds a validator with the domain rules registered.
func NewCustomValidator() *CustomValidator {
	v := validator.New()
	validate.Register(v)
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
