// Package dispatch delivers matched posts to the bound chat and keeps
// the per-post push status bookkeeping.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"nodeseek_bot/internal/matcher"
	"nodeseek_bot/internal/model"
	"nodeseek_bot/internal/storage"
)

// Sender is the interface for delivering one notification message.
// A failed delivery is reported as an error, never a panic; the post
// stays unpushed and is retried on the next pass.
type Sender interface {
	SendMessage(chatID int64, text string) error
}

// Formatter renders the notification text for a matched post.
type Formatter func(post model.Post, sub model.Subscription) string

// Detail statuses in a push report.
const (
	DetailPushed  = "pushed"
	DetailSkipped = "skipped"
	DetailError   = "error"
)

// Detail records what happened to a single post during a pass.
type Detail struct {
	PostID int64
	Title  string
	Status string
	Reason string
}

// Report summarizes one dispatch pass.
type Report struct {
	Processed int
	Pushed    int
	Skipped   int
	Errors    int
	Details   []Detail
}

// Dispatcher walks all unpushed posts, evaluates subscriptions and
// sends one notification for the first match of each post.
type Dispatcher struct {
	store  storage.Storage
	sender Sender
	format Formatter
	log    *slog.Logger

	// skipUnbound marks matched posts as skipped while no chat is
	// bound; by default they stay unpushed until a chat binds.
	skipUnbound bool

	// Pause after every pauseEvery successful deliveries, as courtesy
	// pacing against the messaging API's rate limits.
	pauseEvery int
	sleep      func(time.Duration)
}

// New creates a Dispatcher.
func New(store storage.Storage, sender Sender, format Formatter, skipUnbound bool, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:       store,
		sender:      sender,
		format:      format,
		log:         log,
		skipUnbound: skipUnbound,
		pauseEvery:  5,
		sleep:       time.Sleep,
	}
}

// ProcessUnpushed runs one dispatch pass over all unpushed posts,
// oldest publish time first.
//
// With the global kill-switch on, the pass does no work at all and
// every post stays unpushed. Failures local to one post are recorded
// as error details and never abort the batch; only a failing settings
// or store listing fails the whole pass.
func (d *Dispatcher) ProcessUnpushed(ctx context.Context) (Report, error) {
	settings, err := d.store.GetSettings(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("get settings: %w", err)
	}
	if settings.StopPush {
		d.log.Info("push stopped, skipping pass")
		return Report{}, nil
	}

	posts, err := d.store.ListUnpushed(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list unpushed posts: %w", err)
	}
	subs, err := d.store.ListSubscriptions(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list subscriptions: %w", err)
	}

	var rep Report
	for _, post := range posts {
		if ctx.Err() != nil {
			return rep, ctx.Err()
		}
		rep.Processed++
		d.processPost(ctx, post, subs, settings, &rep)
	}

	d.log.Info("dispatch finished",
		"processed", rep.Processed, "pushed", rep.Pushed,
		"skipped", rep.Skipped, "errors", rep.Errors)
	return rep, nil
}

func (d *Dispatcher) processPost(ctx context.Context, post model.Post, subs []model.Subscription, settings *model.Settings, rep *Report) {
	results := matcher.EvaluateAll(post, subs, settings.OnlyTitle)

	if len(results) == 0 {
		if err := d.store.UpdatePostStatus(ctx, post.PostID, model.StatusSkipped, nil, nil); err != nil {
			d.fail(rep, post, fmt.Sprintf("mark skipped: %v", err))
			return
		}
		rep.Skipped++
		rep.Details = append(rep.Details, Detail{
			PostID: post.PostID,
			Title:  post.Title,
			Status: DetailSkipped,
			Reason: "no matching subscription",
		})
		return
	}

	first := results[0].Subscription

	if settings.ChatID == 0 {
		if !d.skipUnbound {
			d.fail(rep, post, "no chat bound")
			return
		}
		if err := d.store.UpdatePostStatus(ctx, post.PostID, model.StatusSkipped, nil, nil); err != nil {
			d.fail(rep, post, fmt.Sprintf("mark skipped: %v", err))
			return
		}
		rep.Skipped++
		rep.Details = append(rep.Details, Detail{
			PostID: post.PostID,
			Title:  post.Title,
			Status: DetailSkipped,
			Reason: "no chat bound",
		})
		return
	}

	if err := d.sender.SendMessage(settings.ChatID, d.format(post, first)); err != nil {
		d.log.Error("send notification", "post_id", post.PostID, "error", err)
		d.fail(rep, post, fmt.Sprintf("send failed: %v", err))
		return
	}

	now := time.Now().UTC()
	if err := d.store.UpdatePostStatus(ctx, post.PostID, model.StatusPushed, &first.ID, &now); err != nil {
		d.fail(rep, post, fmt.Sprintf("mark pushed: %v", err))
		return
	}

	rep.Pushed++
	rep.Details = append(rep.Details, Detail{
		PostID: post.PostID,
		Title:  post.Title,
		Status: DetailPushed,
	})
	d.log.Debug("pushed post", "post_id", post.PostID, "sub_id", first.ID)

	if rep.Pushed%d.pauseEvery == 0 {
		d.sleep(time.Second)
	}
}

func (d *Dispatcher) fail(rep *Report, post model.Post, reason string) {
	rep.Errors++
	rep.Details = append(rep.Details, Detail{
		PostID: post.PostID,
		Title:  post.Title,
		Status: DetailError,
		Reason: reason,
	})
}
