// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tg_rss_bot/internal/model"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	LogFile          string
	AllowedUsers     []int64

	// UpdateInterval is the minimum time between two polls of a subscription.
	UpdateInterval time.Duration
	// CheckInterval is how often the scheduler looks for due subscriptions.
	CheckInterval    time.Duration
	FetchTimeout     time.Duration
	FetchConcurrency int
	SendRate         float64
	DefaultLocale    model.Locale
}

// Load reads configuration from environment variables. Variables from a
// .env file in the working directory are loaded first without overriding
// the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	cfg := &Config{
		TelegramBotToken: token,
		DatabasePath:     envOrDefault("DATABASE_PATH", "./data/bot.db"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFile:          os.Getenv("LOG_FILE"),
		DefaultLocale:    model.Locale(envOrDefault("DEFAULT_LOCALE", string(model.LocaleEnglish))),
	}
	if !cfg.DefaultLocale.Valid() {
		return nil, fmt.Errorf("invalid DEFAULT_LOCALE %q, use en or zh", cfg.DefaultLocale)
	}

	var err error
	if cfg.AllowedUsers, err = parseUserIDs(os.Getenv("ALLOWED_USERS")); err != nil {
		return nil, err
	}

	minutes, err := intOrDefault("UPDATE_INTERVAL", 15)
	if err != nil {
		return nil, err
	}
	if minutes < 1 || minutes > 1440 {
		return nil, fmt.Errorf("UPDATE_INTERVAL must be between 1 and 1440 minutes")
	}
	cfg.UpdateInterval = time.Duration(minutes) * time.Minute

	if cfg.CheckInterval, err = durationOrDefault("CHECK_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = durationOrDefault("FETCH_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchConcurrency, err = intOrDefault("FETCH_CONCURRENCY", 8); err != nil {
		return nil, err
	}
	if cfg.FetchConcurrency < 1 {
		return nil, fmt.Errorf("FETCH_CONCURRENCY must be positive")
	}

	rate := os.Getenv("SEND_RATE")
	cfg.SendRate = 20
	if rate != "" {
		if cfg.SendRate, err = strconv.ParseFloat(rate, 64); err != nil {
			return nil, fmt.Errorf("invalid SEND_RATE %q: %w", rate, err)
		}
	}

	return cfg, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	return len(c.AllowedUsers) == 0 || slices.Contains(c.AllowedUsers, userID)
}

func parseUserIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		uid, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
		}
		ids = append(ids, uid)
	}
	return ids, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intOrDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func durationOrDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
