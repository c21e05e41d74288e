// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends accepted in STORE_BACKEND.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env          string // APP_ENV, "dev" or "prod"
	Port         string // APP_PORT
	Backend      string // STORE_BACKEND
	RoomsFile    string // ROOMS_FILE, YAML room catalog
	ProfilesFile string // PROFILES_FILE, used when profiles are not in MySQL
	StorePoll    time.Duration
	DBUser       string
	DBPass       string
	DBHost       string
	DBPort       string
	DBName       string
	JWTSecret    string
	HoldTTL      time.Duration
	HoldTTLMax   time.Duration // HOLD_TTL_MAX, cap on a client-requested ttl
	RequestTTL   time.Duration
	AgeGap       int // AGE_GAP_YEARS
	AMQPURL      string
	Events       bool // EVENTS_ENABLED
	LogDir       string

	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// Load reads a .env file when one exists and then the environment.  Values
// already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Config{
		Env:          envStr("APP_ENV", "dev"),
		Port:         envStr("APP_PORT", "8080"),
		Backend:      strings.ToLower(envStr("STORE_BACKEND", BackendMemory)),
		RoomsFile:    envStr("ROOMS_FILE", "rooms.yaml"),
		ProfilesFile: envStr("PROFILES_FILE", "profiles.yaml"),
		StorePoll:    envDur("STORE_POLL_INTERVAL", 500*time.Millisecond),
		DBUser:       os.Getenv("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"),
		DBHost:       envStr("DB_HOST", "127.0.0.1"),
		DBPort:       envStr("DB_PORT", "3306"),
		DBName:       os.Getenv("DB_NAME"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		HoldTTL:      envDur("HOLD_TTL", 5*time.Minute),
		HoldTTLMax:   envDur("HOLD_TTL_MAX", 0),
		RequestTTL:   envDur("REQUEST_TTL", 0),
		AgeGap:       envInt("AGE_GAP_YEARS", 0),
		AMQPURL:      firstEnv("RABBITMQ_URL", "AMQP_URL"),
		Events:       envBool("EVENTS_ENABLED", false),
		LogDir:       envStr("EVENT_LOG_DIR", "logs"),
		RateLimit:    LoadRateLimitConfig(),
		Cache:        LoadCacheConfig(),
	}
	return cfg, cfg.Validate()
}

// Validate reports the first setting that makes the server unable to start.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("missing required env var: JWT_SECRET")
	}
	switch c.Backend {
	case BackendMemory, BackendRedis:
	case BackendMySQL:
		for k, v := range map[string]string{"DB_USER": c.DBUser, "DB_NAME": c.DBName} {
			if v == "" {
				return fmt.Errorf("missing required env var: %s", k)
			}
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Backend)
	}
	if c.HoldTTL <= 0 {
		return fmt.Errorf("HOLD_TTL must be positive, got %s", c.HoldTTL)
	}
	if c.HoldTTLMax != 0 && c.HoldTTLMax < c.HoldTTL {
		return fmt.Errorf("HOLD_TTL_MAX (%s) is shorter than HOLD_TTL (%s)", c.HoldTTLMax, c.HoldTTL)
	}
	return nil
}

// Production reports whether APP_ENV selects production behaviour.
func (c Config) Production() bool {
	switch strings.ToLower(c.Env) {
	case "prod", "production":
		return true
	}
	return false
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
