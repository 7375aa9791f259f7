package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"nodeseek_bot/internal/bot"
	"nodeseek_bot/internal/config"
	"nodeseek_bot/internal/dispatch"
	"nodeseek_bot/internal/fetcher"
	"nodeseek_bot/internal/ingest"
	"nodeseek_bot/internal/pipeline"
	"nodeseek_bot/internal/scheduler"
	"nodeseek_bot/internal/storage"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

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

	client, err := bot.NewClient(cfg.TelegramBotToken, log)
	if err != nil {
		log.Error("create telegram client", "error", err)
		os.Exit(1)
	}

	ingestor := ingest.New(store, fetcher.New(http.DefaultClient), cfg.FeedURL, log)
	dispatcher := dispatch.New(store, client, bot.FormatNotification, cfg.SkipWhenUnbound, log)
	pipe := pipeline.New(store, ingestor, dispatcher, log)

	b := bot.New(client, store, pipe, log)
	sched := scheduler.New(pipe, cfg.CheckInterval, log)

	log.Info("starting bot", "feed", cfg.FeedURL, "interval", cfg.CheckInterval)

	go sched.Run(ctx)

	b.Run(ctx)

	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
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
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
