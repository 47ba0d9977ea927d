// Package config loads service settings from the environment and theme palettes from disk.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service settings
type Config struct {
	Port         string
	AppViewURL   string
	WebBaseURL   string
	RedisURL     string // empty selects the memory cache
	JetstreamURL string // empty disables the firehose
	FetchTimeout time.Duration
	ThemeConfig  string
}

// Default returns the settings used when no environment is set
func Default() Config {
	return Config{
		Port:         "8080",
		AppViewURL:   "https://public.api.bsky.app",
		WebBaseURL:   "https://bsky.app",
		FetchTimeout: 10 * time.Second,
		ThemeConfig:  "config/theme.json",
	}
}

// Load reads .env when present, then the environment
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, falling back to defaults for unset keys
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	if value := getenv("PORT"); value != "" {
		if _, err := strconv.Atoi(value); err != nil {
			return cfg, fmt.Errorf("PORT is not a valid port: %q", value)
		}
		cfg.Port = value
	}
	if value := getenv("APPVIEW_URL"); value != "" {
		cfg.AppViewURL = value
	}
	if value := getenv("WEB_BASE_URL"); value != "" {
		cfg.WebBaseURL = value
	}
	cfg.RedisURL = getenv("REDIS_URL")
	cfg.JetstreamURL = getenv("JETSTREAM_URL")
	if value := getenv("FETCH_TIMEOUT"); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil || timeout <= 0 {
			return cfg, fmt.Errorf("FETCH_TIMEOUT is not a valid duration: %q", value)
		}
		cfg.FetchTimeout = timeout
	}
	if value := getenv("THEME_CONFIG"); value != "" {
		cfg.ThemeConfig = value
	}
	return cfg, nil
}

// LogValue keeps the redis URL (and any password in it) out of logs
func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("port", c.Port),
		slog.String("appview_url", c.AppViewURL),
		slog.String("web_base_url", c.WebBaseURL),
		slog.Bool("redis", c.RedisURL != ""),
		slog.Bool("firehose", c.JetstreamURL != ""),
		slog.Duration("fetch_timeout", c.FetchTimeout),
	)
}
