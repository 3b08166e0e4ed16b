package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tg_rss_bot/internal/model"
)

var envKeys = []string{
	"TELEGRAM_BOT_TOKEN", "DATABASE_PATH", "LOG_LEVEL", "LOG_FILE", "ALLOWED_USERS",
	"UPDATE_INTERVAL", "CHECK_INTERVAL", "FETCH_TIMEOUT", "FETCH_CONCURRENCY",
	"SEND_RATE", "DEFAULT_LOCALE",
}

func defaults(token string) *Config {
	return &Config{
		TelegramBotToken: token,
		DatabasePath:     "./data/bot.db",
		LogLevel:         "info",
		UpdateInterval:   15 * time.Minute,
		CheckInterval:    time.Minute,
		FetchTimeout:     10 * time.Second,
		FetchConcurrency: 8,
		SendRate:         20,
		DefaultLocale:    model.LocaleEnglish,
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    func() *Config
		wantErr bool
	}{
		{
			name:    "missing token",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name: "token only, defaults applied",
			env:  map[string]string{"TELEGRAM_BOT_TOKEN": "test-token"},
			want: func() *Config { return defaults("test-token") },
		},
		{
			name: "all values set",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"DATABASE_PATH":      "/tmp/bot.db",
				"LOG_LEVEL":          "debug",
				"LOG_FILE":           "/var/log/bot.log",
				"ALLOWED_USERS":      "111,222,333",
				"UPDATE_INTERVAL":    "30",
				"CHECK_INTERVAL":     "30s",
				"FETCH_TIMEOUT":      "5s",
				"FETCH_CONCURRENCY":  "4",
				"SEND_RATE":          "2.5",
				"DEFAULT_LOCALE":     "zh",
			},
			want: func() *Config {
				return &Config{
					TelegramBotToken: "tok",
					DatabasePath:     "/tmp/bot.db",
					LogLevel:         "debug",
					LogFile:          "/var/log/bot.log",
					AllowedUsers:     []int64{111, 222, 333},
					UpdateInterval:   30 * time.Minute,
					CheckInterval:    30 * time.Second,
					FetchTimeout:     5 * time.Second,
					FetchConcurrency: 4,
					SendRate:         2.5,
					DefaultLocale:    model.LocaleChinese,
				}
			},
		},
		{
			name: "allowed users with spaces",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"ALLOWED_USERS":      " 10 , 20 , ",
			},
			want: func() *Config {
				c := defaults("tok")
				c.AllowedUsers = []int64{10, 20}
				return c
			},
		},
		{
			name:    "invalid user id",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok", "ALLOWED_USERS": "123,abc"},
			wantErr: true,
		},
		{
			name:    "interval out of range",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok", "UPDATE_INTERVAL": "0"},
			wantErr: true,
		},
		{
			name:    "bad duration",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok", "CHECK_INTERVAL": "soon"},
			wantErr: true,
		},
		{
			name:    "unsupported locale",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok", "DEFAULT_LOCALE": "fr"},
			wantErr: true,
		},
		{
			name:    "zero concurrency",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok", "FETCH_CONCURRENCY": "0"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			for _, key := range envKeys {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want(), got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	for _, key := range envKeys {
		t.Setenv(key, "")
		// godotenv never overrides variables that are already set, even to "".
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unsetenv: %v", err)
		}
	}

	env := "TELEGRAM_BOT_TOKEN=from-file\nUPDATE_INTERVAL=45\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := defaults("from-file")
	want.UpdateInterval = 45 * time.Minute
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestIsUserAllowed(t *testing.T) {
	tests := []struct {
		name         string
		allowedUsers []int64
		userID       int64
		want         bool
	}{
		{name: "empty list allows everyone", allowedUsers: nil, userID: 42, want: true},
		{name: "user in list", allowedUsers: []int64{10, 20, 30}, userID: 20, want: true},
		{name: "user not in list", allowedUsers: []int64{10, 20, 30}, userID: 99, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AllowedUsers: tt.allowedUsers}
			if diff := cmp.Diff(tt.want, cfg.IsUserAllowed(tt.userID)); diff != "" {
				t.Errorf("IsUserAllowed() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
