package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration, shared by the exam client
// and the dev stand-in server.
type Config struct {
	// Client side.
	APIBaseURL string
	WSBaseURL  string
	LogLevel   string
	LogFormat  string

	// Proctoring policy. The snapshot bounds delimit the randomized
	// identity-check schedule; the start delay gives the capture device
	// time to initialize before the first snapshot.
	SnapshotMinInterval time.Duration
	SnapshotMaxInterval time.Duration
	SnapshotStartDelay  time.Duration

	// CameraImagePath points the file-backed camera at a JPEG to serve
	// as capture output during local development. Empty means the
	// camera reports itself unavailable.
	CameraImagePath string

	// Dev server side.
	ServerPort string
	GinMode    string
	JWTSecret  string
	JWTExpiry  time.Duration
	BcryptCost int
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // Ignore error — .env is optional

	return &Config{
		APIBaseURL:          getEnv("API_BASE_URL", "http://localhost:8080/api/v1"),
		WSBaseURL:           getEnv("WS_BASE_URL", "ws://localhost:8080/ws/v1"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "pretty"),
		SnapshotMinInterval: time.Duration(getEnvInt("SNAPSHOT_MIN_INTERVAL_SECONDS", 180)) * time.Second,
		SnapshotMaxInterval: time.Duration(getEnvInt("SNAPSHOT_MAX_INTERVAL_SECONDS", 420)) * time.Second,
		SnapshotStartDelay:  time.Duration(getEnvInt("SNAPSHOT_START_DELAY_SECONDS", 2)) * time.Second,
		CameraImagePath:     getEnv("CAMERA_IMAGE_PATH", ""),
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		GinMode:             getEnv("GIN_MODE", "debug"),
		JWTSecret:           getEnv("JWT_SECRET", "change-this-to-a-secure-random-string"),
		JWTExpiry:           time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		BcryptCost:          getEnvInt("BCRYPT_COST", 6),
		AllowedOrigins:      parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
