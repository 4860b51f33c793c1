package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"taskforge/internal/config"
	"taskforge/internal/db"
)

// HealthHandler reports service liveness and database connectivity.
type HealthHandler struct {
	gorm *gorm.DB
	cfg  *config.Config
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(gormDB *gorm.DB, cfg *config.Config) *HealthHandler {
	return &HealthHandler{gorm: gormDB, cfg: cfg}
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	AppName   string `json:"app_name"`
	Version   string `json:"version"`
	Database  string `json:"database"`
}

// Check godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Success 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Check(c echo.Context) error {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		AppName:   h.cfg.AppName,
		Version:   h.cfg.AppVersion,
		Database:  "connected",
	}

	status := http.StatusOK
	if err := db.Ping(h.gorm); err != nil {
		resp.Status = "degraded"
		resp.Database = "disconnected"
		status = http.StatusServiceUnavailable
	}

	return c.JSON(status, resp)
}
