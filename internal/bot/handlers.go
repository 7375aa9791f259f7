package bot

import (
	"context"
	"errors"
	"fmt"

	"nodeseek_bot/internal/storage"
)

func (b *Bot) handleStart(ctx context.Context, chatID int64, _ string) {
	settings, err := b.store.GetSettings(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	settings.ChatID = chatID
	if err := b.store.UpdateSettings(ctx, settings); err != nil {
		b.reply(chatID, fmt.Sprintf("Failed to bind chat: %v", err))
		return
	}

	b.reply(chatID, fmt.Sprintf(`Welcome to NodeSeek Push Bot!

Chat %d is now bound and will receive matching posts.

Quick start:
1. /add <keyword> — subscribe to a keyword
2. /list — show subscriptions
3. /post — recent posts and their push status

Use /help for the full command reference.`, chatID))
}

func (b *Bot) handleHelp(_ context.Context, chatID int64, _ string) {
	b.reply(chatID, `Subscriptions:
/add <kw1> [kw2] [kw3] [creator:name] [category:name] — add a rule
    (a post must contain ALL keywords; creator/category narrow further)
/list — show all subscriptions
/delete <id> — delete a subscription

Pipeline:
/update — fetch the feed and push matches now
/post — last 10 posts with push status
/match <post_id> — show which subscriptions a post matches
/stats — post and subscription counts

Push control:
/stop — pause all pushing
/resume — resume pushing
/onlytitle on|off — match keywords in titles only`)
}

func (b *Bot) handleStop(ctx context.Context, chatID int64, _ string) {
	if err := b.setStopPush(ctx, true); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, "Push stopped. Posts will pile up unpushed until /resume.")
}

func (b *Bot) handleResume(ctx context.Context, chatID int64, _ string) {
	if err := b.setStopPush(ctx, false); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, "Push resumed.")
}

func (b *Bot) setStopPush(ctx context.Context, stop bool) error {
	settings, err := b.store.GetSettings(ctx)
	if err != nil {
		return err
	}
	settings.StopPush = stop
	return b.store.UpdateSettings(ctx, settings)
}

func (b *Bot) handleOnlyTitle(ctx context.Context, chatID int64, args string) {
	var on bool
	switch args {
	case "on":
		on = true
	case "off":
		on = false
	default:
		b.reply(chatID, "Usage: /onlytitle on|off")
		return
	}

	settings, err := b.store.GetSettings(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	settings.OnlyTitle = on
	if err := b.store.UpdateSettings(ctx, settings); err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	if on {
		b.reply(chatID, "Keywords now match against titles only.")
	} else {
		b.reply(chatID, "Keywords now match against titles and content.")
	}
}

func (b *Bot) handleList(ctx context.Context, chatID int64, _ string) {
	subs, err := b.store.ListSubscriptions(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatSubscriptionList(subs))
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, args string) {
	sub, err := ParseAddArgs(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	if err := b.store.CreateSubscription(ctx, &sub); err != nil {
		if errors.Is(err, storage.ErrEmptySubscription) {
			b.reply(chatID, "A subscription needs at least one keyword, creator or category.")
			return
		}
		b.reply(chatID, fmt.Sprintf("Failed to save subscription: %v", err))
		return
	}

	b.reply(chatID, fmt.Sprintf("Subscription #%d added: %s", sub.ID, describeSubscription(sub)))
}

func (b *Bot) handleDelete(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /delete <subscription_id>")
		return
	}

	deleted, err := b.store.DeleteSubscription(ctx, id)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	if !deleted {
		b.reply(chatID, fmt.Sprintf("Subscription #%d not found.", id))
		return
	}
	b.reply(chatID, fmt.Sprintf("Subscription #%d deleted.", id))
}

func (b *Bot) handlePost(ctx context.Context, chatID int64, _ string) {
	posts, err := b.store.ListRecentPosts(ctx, 10)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatRecentPosts(posts))
}

func (b *Bot) handleUpdate(ctx context.Context, chatID int64, _ string) {
	rep, err := b.pipe.Update(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Update finished with errors: %v\n\n%s", err, FormatUpdateReport(rep)))
		return
	}
	b.reply(chatID, FormatUpdateReport(rep))
}

func (b *Bot) handleMatch(ctx context.Context, chatID int64, args string) {
	id, err := ParseIDArg(args)
	if err != nil {
		b.reply(chatID, "Usage: /match <post_id>")
		return
	}

	post, results, err := b.pipe.TestMatch(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			b.reply(chatID, fmt.Sprintf("Post %d not found.", id))
			return
		}
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatMatchResults(*post, results))
}

func (b *Bot) handleStats(ctx context.Context, chatID int64, _ string) {
	stats, err := b.pipe.Stats(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatStats(stats))
}
