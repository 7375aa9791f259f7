// Package ingest pulls the remote feed into the post store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"nodeseek_bot/internal/fetcher"
	"nodeseek_bot/internal/storage"
)

// Report summarizes one ingestion pass.
type Report struct {
	Fetched int
	New     int
	Errors  int
}

// Ingestor fetches the feed and inserts previously unseen posts.
type Ingestor struct {
	store   storage.Storage
	fetcher *fetcher.Fetcher
	feedURL string
	log     *slog.Logger
}

// New creates an Ingestor for the given feed URL.
func New(store storage.Storage, f *fetcher.Fetcher, feedURL string, log *slog.Logger) *Ingestor {
	return &Ingestor{
		store:   store,
		fetcher: f,
		feedURL: feedURL,
		log:     log,
	}
}

// Ingest fetches the feed once and stores every entry whose external id
// is not yet known, in the unpushed state.
//
// A fetch or parse failure of the feed document fails the whole call
// with no writes. A failure on a single entry only increments the
// error count; the rest of the batch proceeds. Re-ingesting an
// unchanged feed inserts nothing.
func (i *Ingestor) Ingest(ctx context.Context) (Report, error) {
	feed, err := i.fetcher.Fetch(ctx, i.feedURL)
	if err != nil {
		return Report{}, fmt.Errorf("fetch feed: %w", err)
	}

	var rep Report
	for _, item := range feed.Items {
		rep.Fetched++

		post, err := fetcher.ParseEntry(item)
		if err != nil {
			rep.Errors++
			i.log.Warn("skip malformed entry", "title", item.Title, "error", err)
			continue
		}

		inserted, err := i.store.InsertPost(ctx, &post)
		if err != nil {
			rep.Errors++
			i.log.Error("insert post", "post_id", post.PostID, "error", err)
			continue
		}
		if inserted {
			rep.New++
			i.log.Debug("new post", "post_id", post.PostID, "title", post.Title)
		}
	}

	i.log.Info("ingest finished", "fetched", rep.Fetched, "new", rep.New, "errors", rep.Errors)
	return rep, nil
}
