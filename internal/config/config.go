package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	AuthJWTSecret string
	SessionTTL    time.Duration

	DiagnosisAPIBaseURL string
	DiagnosisAPIKey     string
	DiagnosisAPITimeout time.Duration

	// Simulated transport tuning. The demo has no real backend, so every
	// mutating appointment operation runs through a fake network layer.
	SimMinDelay         time.Duration
	SimMaxDelay         time.Duration
	SimFailureRate      float64
	SimAdminFailureRate float64
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		SessionTTL:    getEnvAsDuration("SESSION_TTL", 12*time.Hour),

		DiagnosisAPIBaseURL: getEnv("DIAGNOSIS_API_BASE_URL", "https://api.diagnosis.example.com"),
		DiagnosisAPIKey:     getEnv("DIAGNOSIS_API_KEY", ""),
		DiagnosisAPITimeout: getEnvAsDuration("DIAGNOSIS_API_TIMEOUT", 20*time.Second),

		SimMinDelay:         getEnvAsDuration("SIM_MIN_DELAY", 300*time.Millisecond),
		SimMaxDelay:         getEnvAsDuration("SIM_MAX_DELAY", 800*time.Millisecond),
		SimFailureRate:      getEnvAsFloat("SIM_FAILURE_RATE", 0.05),
		SimAdminFailureRate: getEnvAsFloat("SIM_ADMIN_FAILURE_RATE", 0.02),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
