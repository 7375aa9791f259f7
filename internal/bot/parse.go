package bot

import (
	"fmt"
	"strconv"
	"strings"

	"nodeseek_bot/internal/model"
)

// ParseAddArgs parses the arguments of /add into a subscription.
// Plain tokens are keywords (at most three); tokens prefixed with
// "creator:" or "category:" set the corresponding filter.
func ParseAddArgs(args string) (model.Subscription, error) {
	var sub model.Subscription
	var keywords []string

	for _, tok := range strings.Fields(args) {
		switch {
		case strings.HasPrefix(tok, "creator:"):
			sub.Creator = strings.TrimPrefix(tok, "creator:")
		case strings.HasPrefix(tok, "category:"):
			sub.Category = strings.TrimPrefix(tok, "category:")
		default:
			keywords = append(keywords, tok)
		}
	}

	if len(keywords) > 3 {
		return model.Subscription{}, fmt.Errorf("at most 3 keywords per subscription, got %d", len(keywords))
	}
	for i, kw := range keywords {
		switch i {
		case 0:
			sub.Keyword1 = kw
		case 1:
			sub.Keyword2 = kw
		case 2:
			sub.Keyword3 = kw
		}
	}

	if sub.IsEmpty() {
		return model.Subscription{}, fmt.Errorf("usage: /add <kw1> [kw2] [kw3] [creator:name] [category:name]")
	}
	return sub, nil
}

// ParseIDArg extracts a numeric ID from a command argument string.
func ParseIDArg(args string) (int64, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return 0, fmt.Errorf("id is required")
	}
	id, err := strconv.ParseInt(strings.Fields(s)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
