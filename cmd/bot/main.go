package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"tg_rss_bot/internal/bot"
	"tg_rss_bot/internal/config"
	"tg_rss_bot/internal/delivery"
	"tg_rss_bot/internal/fetcher"
	"tg_rss_bot/internal/scheduler"
	"tg_rss_bot/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log, closeLog := newLogger(cfg.LogLevel, cfg.LogFile)
	defer func() { _ = closeLog() }()

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	feeds := fetcher.New(http.DefaultClient)
	feeds.SetTimeout(cfg.FetchTimeout)

	locales := storage.NewCachedLocales(store, storage.DefaultLocaleTTL)

	b, err := bot.New(cfg.TelegramBotToken, store, locales, feeds, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	sched := scheduler.New(store, feeds, delivery.New(b, cfg.SendRate), cfg.UpdateInterval, log)
	sched.SetTickInterval(cfg.CheckInterval)
	sched.SetConcurrency(cfg.FetchConcurrency)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bot",
		"update_interval", cfg.UpdateInterval, "check_interval", cfg.CheckInterval,
		"concurrency", cfg.FetchConcurrency)

	go sched.Run(ctx)

	b.Run(ctx)

	log.Info("bot stopped")
}

// newLogger writes to stderr and, when file is set, to a rotated log file.
func newLogger(level, file string) (*slog.Logger, func() error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	closer := func() error { return nil }
	if file != "" {
		rotated := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stderr, rotated)
		closer = rotated.Close
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl})), closer
}
