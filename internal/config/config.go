package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

type AppConfig struct {
	ListenAddr string

	RedisURL    string
	DatabaseURL string

	// Seconds the JS client waits between fetchState polls.
	RefreshInterval int

	// Initial clock budget per side, in seconds, for newly started games.
	InitialTimeLeft float64

	// Optional directory of yaml files overriding the embedded message catalog.
	MessagesDir string

	AllowedOrigins string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:      ":3000",
		RefreshInterval: 5,
		InitialTimeLeft: 600,
		AllowedOrigins:  "*",
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))

	if v := strings.TrimSpace(os.Getenv("REFRESH_INTERVAL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RefreshInterval = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("INITIAL_TIME_LEFT")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.InitialTimeLeft = f
		}
	}
	if v := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); v != "" {
		cfg.AllowedOrigins = v
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}

	return cfg, nil
}
