// Package fetcher handles feed downloading, parsing, and entry conversion.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"nodeseek_bot/internal/model"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads and parses RSS feeds.
type Fetcher struct {
	client HTTPClient
}

// New creates a Fetcher with the given HTTP client.
func New(client HTTPClient) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch downloads and parses an RSS feed from the given URL.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "NodeSeekPushBot/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

const memoLimit = 500

// Post URLs look like https://www.nodeseek.com/post-12345-1; the digits
// after "post-" are the stable external id.
var postIDPattern = regexp.MustCompile(`post-(\d+)`)

// ParseEntry converts a feed item into a Post in the unpushed state.
// Entries without a recognizable external id are rejected.
func ParseEntry(item *gofeed.Item) (model.Post, error) {
	id, err := entryID(item)
	if err != nil {
		return model.Post{}, err
	}

	memo := strings.TrimSpace(item.Description)
	if runes := []rune(memo); len(runes) > memoLimit {
		memo = string(runes[:memoLimit]) + "..."
	}

	pubDate := time.Now().UTC()
	if item.PublishedParsed != nil {
		pubDate = item.PublishedParsed.UTC()
	}

	return model.Post{
		PostID:     id,
		Title:      strings.TrimSpace(item.Title),
		Memo:       memo,
		Category:   entryCategory(item),
		Creator:    entryCreator(item),
		PushStatus: model.StatusUnpushed,
		PubDate:    pubDate,
	}, nil
}

func entryID(item *gofeed.Item) (int64, error) {
	for _, s := range []string{item.GUID, item.Link} {
		m := postIDPattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		return id, nil
	}
	return 0, fmt.Errorf("no post id in guid %q or link %q", item.GUID, item.Link)
}

func entryCreator(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return item.Author.Name
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		return item.DublinCoreExt.Creator[0]
	}
	return ""
}

func entryCategory(item *gofeed.Item) string {
	if len(item.Categories) > 0 {
		return item.Categories[0]
	}
	return ""
}
