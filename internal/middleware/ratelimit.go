package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"taskforge/internal/response"
)

type clientLimiter struct {
	general  *rate.Limiter
	auth     *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces per-IP request quotas. Auth endpoints (register,
// login, password change) get a tighter budget than the rest of the API.
// Requests over quota are rejected with 429 before any guard runs.
type RateLimiter struct {
	generalRPM int
	authRPM    int
	mu         sync.Mutex
	clients    map[string]*clientLimiter
}

// NewRateLimiter builds a limiter with per-minute budgets.
func NewRateLimiter(generalRPM, authRPM int) *RateLimiter {
	if generalRPM <= 0 {
		generalRPM = 200
	}
	if authRPM <= 0 {
		authRPM = 20
	}
	return &RateLimiter{
		generalRPM: generalRPM,
		authRPM:    authRPM,
		clients:    map[string]*clientLimiter{},
	}
}

// Middleware returns the echo middleware applying the quotas.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limiter := rl.getLimiter(clientIP(c.Request()))

			target := limiter.general
			if strings.HasPrefix(c.Path(), "/api/auth") {
				target = limiter.auth
			}

			if !target.Allow() {
				c.Response().Header().Set("Retry-After", "60")
				return response.Error(c, http.StatusTooManyRequests, "Rate Limited", "too many requests")
			}

			return next(c)
		}
	}
}

func (rl *RateLimiter) getLimiter(ip string) *clientLimiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if limiter, exists := rl.clients[ip]; exists {
		limiter.lastSeen = time.Now()
		rl.gcLocked()
		return limiter
	}

	created := &clientLimiter{
		general:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.generalRPM)), rl.generalRPM),
		auth:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.authRPM)), rl.authRPM),
		lastSeen: time.Now(),
	}
	rl.clients[ip] = created
	rl.gcLocked()

	return created
}

func (rl *RateLimiter) gcLocked() {
	if len(rl.clients) < 1000 {
		return
	}
	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, limiter := range rl.clients {
		if limiter.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func clientIP(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		return strings.TrimSpace(parts[0])
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr)); err == nil && host != "" {
		return host
	}
	if strings.TrimSpace(r.RemoteAddr) == "" {
		return "unknown"
	}
	return r.RemoteAddr
}
