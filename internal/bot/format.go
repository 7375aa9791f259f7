package bot

import (
	"fmt"
	"strings"

	"nodeseek_bot/internal/dispatch"
	"nodeseek_bot/internal/matcher"
	"nodeseek_bot/internal/model"
	"nodeseek_bot/internal/pipeline"
)

// PostURL returns the public URL of a post on the feed's site.
func PostURL(postID int64) string {
	return fmt.Sprintf("https://www.nodeseek.com/post-%d-1", postID)
}

// titleReplacer swaps characters that would break the Markdown link
// syntax for their full-width equivalents.
var titleReplacer = strings.NewReplacer(
	"[", "「",
	"]", "」",
	"(", "（",
	")", "）",
)

// FormatNotification renders the push message for a matched post:
// the matched filter terms, then the title as a link.
func FormatNotification(post model.Post, sub model.Subscription) string {
	terms := sub.Keywords()
	if c := strings.TrimSpace(sub.Creator); c != "" {
		terms = append(terms, c)
	}
	if c := strings.TrimSpace(sub.Category); c != "" {
		terms = append(terms, c)
	}

	return fmt.Sprintf("🎯 *%s*\n\n📰 [%s](%s)",
		strings.Join(terms, " "),
		titleReplacer.Replace(post.Title),
		PostURL(post.PostID))
}

// FormatSubscriptionList formats all subscriptions for display.
func FormatSubscriptionList(subs []model.Subscription) string {
	if len(subs) == 0 {
		return "No subscriptions yet. Use /add <keyword> to create one."
	}
	var b strings.Builder
	b.WriteString("Subscriptions:\n")
	for _, sub := range subs {
		fmt.Fprintf(&b, "\n#%d %s\n", sub.ID, describeSubscription(sub))
	}
	return b.String()
}

func describeSubscription(sub model.Subscription) string {
	var parts []string
	if kws := sub.Keywords(); len(kws) > 0 {
		parts = append(parts, strings.Join(kws, " + "))
	}
	if c := strings.TrimSpace(sub.Creator); c != "" {
		parts = append(parts, "creator: "+c)
	}
	if c := strings.TrimSpace(sub.Category); c != "" {
		parts = append(parts, "category: "+c)
	}
	return strings.Join(parts, ", ")
}

func statusLabel(s model.PushStatus) string {
	switch s {
	case model.StatusUnpushed:
		return "⏳ unpushed"
	case model.StatusPushed:
		return "✅ pushed"
	case model.StatusSkipped:
		return "➖ skipped"
	}
	return "unknown"
}

// FormatRecentPosts formats recent posts with their push status.
func FormatRecentPosts(posts []model.Post) string {
	if len(posts) == 0 {
		return "No posts ingested yet. Use /update to fetch the feed."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Last %d posts:\n", len(posts))
	for _, p := range posts {
		fmt.Fprintf(&b, "\n%d. %s\n", p.PostID, titleReplacer.Replace(p.Title))
		fmt.Fprintf(&b, "   %s | %s | %s\n", p.Creator, p.Category, statusLabel(p.PushStatus))
		fmt.Fprintf(&b, "   %s\n", p.PubDate.Format("2006-01-02 15:04 UTC"))
	}
	return b.String()
}

// FormatUpdateReport formats the outcome of a manual update trigger.
func FormatUpdateReport(rep pipeline.UpdateReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Feed: %d entries, %d new, %d errors\n", rep.Ingest.Fetched, rep.Ingest.New, rep.Ingest.Errors)
	fmt.Fprintf(&b, "Push: %d processed, %d pushed, %d skipped, %d errors",
		rep.Push.Processed, rep.Push.Pushed, rep.Push.Skipped, rep.Push.Errors)

	var failed []dispatch.Detail
	for _, d := range rep.Push.Details {
		if d.Status == dispatch.DetailError {
			failed = append(failed, d)
		}
	}
	if len(failed) > 0 {
		b.WriteString("\n\nFailed posts:")
		for _, d := range failed {
			fmt.Fprintf(&b, "\n%d %s — %s", d.PostID, titleReplacer.Replace(d.Title), d.Reason)
		}
	}
	return b.String()
}

// FormatMatchResults formats the diagnostic output of /match.
func FormatMatchResults(post model.Post, results []matcher.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Post %d: %s\n", post.PostID, titleReplacer.Replace(post.Title))
	fmt.Fprintf(&b, "Creator: %s | Category: %s\n", post.Creator, post.Category)

	if len(results) == 0 {
		b.WriteString("\nNo subscription matches this post.")
		return b.String()
	}

	fmt.Fprintf(&b, "\n%d matching subscription(s):\n", len(results))
	for _, r := range results {
		fmt.Fprintf(&b, "\n#%d %s\n", r.Subscription.ID, describeSubscription(r.Subscription))
		if len(r.MatchedKeywords) > 0 {
			fmt.Fprintf(&b, "   keywords %s in %s\n", strings.Join(r.MatchedKeywords, ", "), r.Type)
		}
	}
	return b.String()
}

// FormatStats formats aggregated pipeline statistics.
func FormatStats(s pipeline.Stats) string {
	return fmt.Sprintf(`Posts: %d total
⏳ unpushed: %d
✅ pushed: %d
➖ skipped: %d

Subscriptions: %d`,
		s.TotalPosts, s.Unpushed, s.Pushed, s.Skipped, s.Subscriptions)
}
