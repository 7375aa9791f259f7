// Package bot contains the Telegram delivery client and the command
// interface through which the bound chat controls the pipeline.
package bot

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nodeseek_bot/internal/matcher"
	"nodeseek_bot/internal/model"
	"nodeseek_bot/internal/pipeline"
	"nodeseek_bot/internal/storage"
)

// Pipeline is the collaborator surface the command handlers call into.
type Pipeline interface {
	Update(ctx context.Context) (pipeline.UpdateReport, error)
	TestMatch(ctx context.Context, postID int64) (*model.Post, []matcher.Result, error)
	Stats(ctx context.Context) (pipeline.Stats, error)
}

type handler func(ctx context.Context, chatID int64, args string)

// Bot handles user commands from Telegram.
type Bot struct {
	client   *Client
	store    storage.Storage
	pipe     Pipeline
	log      *slog.Logger
	commands map[string]handler
}

// New creates a Bot on top of an authenticated client.
func New(client *Client, store storage.Storage, pipe Pipeline, log *slog.Logger) *Bot {
	b := &Bot{
		client: client,
		store:  store,
		pipe:   pipe,
		log:    log,
	}
	b.commands = map[string]handler{
		"start":     b.handleStart,
		"help":      b.handleHelp,
		"stop":      b.handleStop,
		"resume":    b.handleResume,
		"onlytitle": b.handleOnlyTitle,
		"list":      b.handleList,
		"add":       b.handleAdd,
		"delete":    b.handleDelete,
		"post":      b.handlePost,
		"update":    b.handleUpdate,
		"match":     b.handleMatch,
		"stats":     b.handleStats,
	}
	return b
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.client.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.client.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	h, ok := b.commands[cmd]
	if !ok {
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
		return
	}
	h(ctx, chatID, args)
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.client.SendMessage(chatID, text); err != nil {
		b.log.Error("send reply", "chat_id", chatID, "error", err)
	}
}
