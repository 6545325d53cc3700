package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config captures the service-level settings so main stays lean.
type Config struct {
	Addr          string
	DatabaseURL   string
	JWTSecret     string
	SweepInterval time.Duration
	LogLevel      string
}

// Load builds a Config from the environment. A .env file is honored when
// present but never required.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Addr:          getEnv("ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		SweepInterval: time.Hour,
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.SweepInterval = d
		}
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
