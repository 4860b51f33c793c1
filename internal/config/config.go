package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	AppName    string
	AppVersion string
	ServerPort string

	MySQLDSN string

	RedisAddr string
	RedisDB   int
	RedisPass string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	DefaultPageSize int
	MaxPageSize     int

	RateLimitEnabled bool
	GeneralRPM       int
	AuthRPM          int

	LogLevel  string
	LogFormat string

	SwaggerHost string
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is honored when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppName:    getEnv("APP_NAME", "TaskForge API"),
		AppVersion: getEnv("APP_VERSION", "1.0.0"),
		ServerPort: getEnv("SERVER_PORT", "8080"),

		MySQLDSN: getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/taskforge?charset=utf8mb4&parseTime=True&loc=Local"),

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getEnvInt("REDIS_DB", 0),
		RedisPass: os.Getenv("REDIS_PASSWORD"),

		JWTSecret:       getEnv("JWT_SECRET", "change-me"),
		AccessTokenTTL:  time.Duration(getEnvInt("JWT_ACCESS_TOKEN_EXPIRES", 3600)) * time.Second,
		RefreshTokenTTL: time.Duration(getEnvInt("JWT_REFRESH_TOKEN_EXPIRES", 2592000)) * time.Second,

		DefaultPageSize: getEnvInt("DEFAULT_PAGE_SIZE", 10),
		MaxPageSize:     getEnvInt("MAX_PAGE_SIZE", 100),

		RateLimitEnabled: getEnvBool("RATELIMIT_ENABLED", true),
		GeneralRPM:       getEnvInt("RATELIMIT_GENERAL_RPM", 200),
		AuthRPM:          getEnvInt("RATELIMIT_AUTH_RPM", 20),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		SwaggerHost: os.Getenv("SWAGGER_HOST"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}
