// Package matcher implements the post/subscription matching rules.
//
// All functions are pure: no I/O, no mutation, deterministic for a
// given input. The dispatcher runs them against every subscription for
// every unpushed post.
package matcher

import (
	"strings"

	"nodeseek_bot/internal/model"
)

// MatchType describes where the matched keywords were found.
type MatchType string

// Match types.
const (
	MatchTitle   MatchType = "title"
	MatchContent MatchType = "content"
	MatchBoth    MatchType = "both"
)

// Result is the outcome of evaluating one post against one subscription.
type Result struct {
	Matched         bool
	Subscription    model.Subscription
	MatchedKeywords []string
	Type            MatchType
}

// Evaluate checks a single post against a single subscription.
//
// Creator and category constraints are case-insensitive substring
// checks and short-circuit the evaluation on mismatch. Every keyword
// must then be found in the title, or in the memo when onlyTitle is
// false: all keywords are required, not any. A subscription with no
// keywords that passes its creator/category constraints matches with
// an empty keyword list.
func Evaluate(post model.Post, sub model.Subscription, onlyTitle bool) Result {
	miss := Result{Subscription: sub, Type: MatchTitle}

	if c := strings.TrimSpace(sub.Creator); c != "" {
		if !strings.Contains(strings.ToLower(post.Creator), strings.ToLower(c)) {
			return miss
		}
	}
	if c := strings.TrimSpace(sub.Category); c != "" {
		if !strings.Contains(strings.ToLower(post.Category), strings.ToLower(c)) {
			return miss
		}
	}

	keywords := sub.Keywords()
	if len(keywords) == 0 {
		return Result{Matched: true, Subscription: sub, Type: MatchTitle}
	}

	title := strings.ToLower(post.Title)
	memo := strings.ToLower(post.Memo)

	var matched []string
	titleHits := 0
	memoHits := 0
	for _, kw := range keywords {
		needle := strings.ToLower(kw)
		switch {
		case strings.Contains(title, needle):
			titleHits++
			matched = append(matched, kw)
		case !onlyTitle && strings.Contains(memo, needle):
			memoHits++
			matched = append(matched, kw)
		}
	}

	if titleHits+memoHits != len(keywords) {
		return miss
	}

	mt := MatchBoth
	switch {
	case titleHits == len(keywords):
		mt = MatchTitle
	case memoHits == len(keywords):
		mt = MatchContent
	}

	return Result{
		Matched:         true,
		Subscription:    sub,
		MatchedKeywords: matched,
		Type:            mt,
	}
}

// EvaluateAll checks a post against every subscription and returns the
// matching results only, preserving the input order. That order is the
// authoritative tie-break for "first match wins".
func EvaluateAll(post model.Post, subs []model.Subscription, onlyTitle bool) []Result {
	var results []Result
	for _, sub := range subs {
		if r := Evaluate(post, sub, onlyTitle); r.Matched {
			results = append(results, r)
		}
	}
	return results
}
