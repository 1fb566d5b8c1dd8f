package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration. Every knob is optional: the
// core runs with sane defaults, and the AMQP bridge, redis cache and JWT
// verification are simply disabled when their settings are absent.
type Config struct {
	Port          string        // HTTP port to listen on
	SweepInterval time.Duration // expiry sweeper tick interval
	CacheTTL      time.Duration // redis response-cache TTL for list endpoints
	AMQPURL       string        // RabbitMQ URL; empty disables the bid-event bridge
	JWTSecret     string        // HS256 secret; empty falls back to header identity
}

// Load reads configuration from the environment, after loading a .env
// file if one is present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:          getenv("PORT", "8080"),
		SweepInterval: time.Duration(getenvInt("SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
		CacheTTL:      time.Duration(getenvInt("CACHE_TTL_SECONDS", 15)) * time.Second,
		AMQPURL:       os.Getenv("AMQP_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
