// Package model defines the domain types used across the application.
package model

import (
	"strings"
	"time"
)

// PushStatus is the tri-state delivery lifecycle flag on a post.
// The integer encoding is part of the storage format.
type PushStatus int

// Push status values.
const (
	StatusUnpushed PushStatus = 0
	StatusPushed   PushStatus = 1
	StatusSkipped  PushStatus = 2
)

// String returns a human-readable label for the status.
func (s PushStatus) String() string {
	switch s {
	case StatusUnpushed:
		return "unpushed"
	case StatusPushed:
		return "pushed"
	case StatusSkipped:
		return "skipped"
	}
	return "unknown"
}

// Post is one ingested feed entry, uniquely identified by PostID,
// the external identifier assigned by the feed source.
type Post struct {
	ID         int64
	PostID     int64
	Title      string
	Memo       string
	Category   string
	Creator    string
	PushStatus PushStatus
	SubID      *int64
	PubDate    time.Time
	PushDate   *time.Time
	CreatedAt  time.Time
}

// Subscription is a stored filter rule: up to three keywords plus
// optional creator and category constraints. A post is delivered for a
// subscription only when every non-empty keyword and constraint holds.
type Subscription struct {
	ID        int64
	Keyword1  string
	Keyword2  string
	Keyword3  string
	Creator   string
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Keywords returns the subscription's non-blank keywords, trimmed,
// in slot order.
func (s Subscription) Keywords() []string {
	var kws []string
	for _, k := range []string{s.Keyword1, s.Keyword2, s.Keyword3} {
		if k = strings.TrimSpace(k); k != "" {
			kws = append(kws, k)
		}
	}
	return kws
}

// IsEmpty reports whether the subscription carries no usable filter
// at all. Such subscriptions are rejected at creation time.
func (s Subscription) IsEmpty() bool {
	return len(s.Keywords()) == 0 &&
		strings.TrimSpace(s.Creator) == "" &&
		strings.TrimSpace(s.Category) == ""
}

// Settings is the single-row runtime state shared with the bot:
// the bound chat, the global push kill-switch, and the title-only
// matching toggle. A ChatID of zero means no chat is bound yet.
type Settings struct {
	ChatID    int64
	StopPush  bool
	OnlyTitle bool
	UpdatedAt time.Time
}
