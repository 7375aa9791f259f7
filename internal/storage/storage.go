// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"nodeseek_bot/internal/model"
)

// Sentinel errors surfaced to callers.
var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmptySubscription means a subscription was submitted with no
	// keywords, no creator and no category.
	ErrEmptySubscription = errors.New("subscription needs at least one keyword, creator or category")

	// ErrFinalStatus means a status update targeted a post that has
	// already left the unpushed state. Push status never reverts.
	ErrFinalStatus = errors.New("post already in a final push status")
)

// Storage is the interface for all persistence operations.
type Storage interface {
	// InsertPost stores a newly ingested post. It reports whether the
	// post was actually inserted; a post with an already-known external
	// id is left untouched and reported as false.
	InsertPost(ctx context.Context, post *model.Post) (bool, error)
	GetPost(ctx context.Context, postID int64) (*model.Post, error)
	// ListUnpushed returns all unpushed posts, oldest publish time first.
	ListUnpushed(ctx context.Context) ([]model.Post, error)
	ListRecentPosts(ctx context.Context, limit int) ([]model.Post, error)
	// UpdatePostStatus transitions a post out of the unpushed state.
	// subID and pushDate are recorded for pushed posts and nil otherwise.
	// Returns ErrFinalStatus if the post is no longer unpushed.
	UpdatePostStatus(ctx context.Context, postID int64, status model.PushStatus, subID *int64, pushDate *time.Time) error
	CountPostsByStatus(ctx context.Context) (map[model.PushStatus]int, error)

	// CreateSubscription validates and stores a filter rule,
	// populating its ID. Rejects empty rules with ErrEmptySubscription.
	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	GetSubscription(ctx context.Context, id int64) (*model.Subscription, error)
	// ListSubscriptions returns all subscriptions in creation order.
	// This order is the tie-break when several subscriptions match a post.
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	UpdateSubscription(ctx context.Context, sub *model.Subscription) error
	DeleteSubscription(ctx context.Context, id int64) (bool, error)
	CountSubscriptions(ctx context.Context) (int, error)

	GetSettings(ctx context.Context) (*model.Settings, error)
	UpdateSettings(ctx context.Context, s *model.Settings) error

	Close() error
}
