package main

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	_ "taskforge/docs" // swagger docs

	"taskforge/internal/auth"
	"taskforge/internal/cache"
	"taskforge/internal/config"
	"taskforge/internal/db"
	"taskforge/internal/handler"
	"taskforge/internal/logger"
	"taskforge/internal/middleware"
	"taskforge/internal/model"
	"taskforge/internal/repository"
	"taskforge/internal/router"
	"taskforge/internal/service"
)

const tokenSweepInterval = time.Hour

// @title TaskForge API
// @version 1.0
// @description Task management API with JWT authentication, tags, filtering and export.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.WithError(err).Fatal("database init")
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Tag{},
		&model.Task{},
		&model.TaskTag{},
	); err != nil {
		log.WithError(err).Fatal("auto-migrate")
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	userRepo := repository.NewUserRepository(gormDB)
	tokenRepo := repository.NewRefreshTokenRepository(gormDB)
	taskRepo := repository.NewTaskRepository(gormDB)
	tagRepo := repository.NewTagRepository(gormDB)

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	authService := service.NewAuthService(userRepo, tokenRepo, jwtService, log)
	taskService := service.NewTaskService(taskRepo, tagRepo, userRepo, cacheClient, log)
	tagService := service.NewTagService(tagRepo, log)
	userService := service.NewUserService(userRepo, log)

	authHandler := handler.NewAuthHandler(authService)
	taskHandler := handler.NewTaskHandler(taskService, cfg)
	tagHandler := handler.NewTagHandler(tagService, cfg)
	userHandler := handler.NewUserHandler(userService, cfg)
	healthHandler := handler.NewHealthHandler(gormDB, cfg)

	guard := middleware.NewGuard(jwtService, userRepo)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, guard, authHandler, taskHandler, tagHandler, userHandler, healthHandler)

	go sweepExpiredTokens(authService, log)

	log.WithFields(logrus.Fields{
		"port":    cfg.ServerPort,
		"version": cfg.AppVersion,
	}).Info("starting server")

	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

// sweepExpiredTokens periodically removes refresh tokens past their expiry.
// Revoked but unexpired tokens stay until expiry so revocation remains
// observable.
func sweepExpiredTokens(authService service.AuthService, log *logrus.Logger) {
	ticker := time.NewTicker(tokenSweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := authService.CleanupExpiredTokens(ctx); err != nil {
			log.WithError(err).Warn("expired token sweep failed")
		}
		cancel()
	}
}
