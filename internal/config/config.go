// Package config handles application configuration from environment variables.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string        `env:"TELEGRAM_BOT_TOKEN"`
	FeedURL          string        `env:"FEED_URL,default=https://rss.nodeseek.com"`
	DatabasePath     string        `env:"DATABASE_PATH,default=./data/bot.db"`
	LogLevel         string        `env:"LOG_LEVEL,default=info"`
	CheckInterval    time.Duration `env:"CHECK_INTERVAL,default=2m"`

	// SkipWhenUnbound controls what happens to a matched post while no
	// chat is bound: false keeps it unpushed for a later pass, true
	// marks it skipped.
	SkipWhenUnbound bool `env:"SKIP_WHEN_UNBOUND,default=false"`
}

// Load reads configuration from environment variables.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.CheckInterval < time.Minute {
		return nil, fmt.Errorf("CHECK_INTERVAL must be at least 1m, got %s", cfg.CheckInterval)
	}

	return &cfg, nil
}
