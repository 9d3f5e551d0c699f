// Package config loads service configuration from the environment, with an
// optional .env file for development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Addr is the HTTP listen address.
	Addr string

	// RedisURL locates the snapshot/log store. Required.
	RedisURL string

	// DatabaseURL locates the postgres archive. Empty disables archival.
	DatabaseURL string

	// JWTSecret signs and verifies access tokens. Required.
	JWTSecret string

	// CatalogURL is the card catalog lookup endpoint. Empty disables
	// catalog hydration (drafts then run on bare card names).
	CatalogURL string
	CatalogTTL time.Duration

	// IdleTimeout is how long a session actor sits without traffic before
	// it snapshots and hibernates.
	IdleTimeout time.Duration

	// BidTimeout force-reveals a bidding round that players sat on.
	BidTimeout time.Duration

	LogLevel string
}

// Load reads the environment. Missing required values are returned as
// errors; main treats them as fatal.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{
		Addr:        getenv("ADDR", ":8080"),
		RedisURL:    os.Getenv("REDIS_URL"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		CatalogURL:  os.Getenv("CATALOG_URL"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
	}
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	var err error
	if cfg.CatalogTTL, err = getdur("CATALOG_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.IdleTimeout, err = getdur("SESSION_IDLE_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.BidTimeout, err = getdur("BID_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getdur(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
