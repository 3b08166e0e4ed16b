package bot

import (
	"fmt"
	"strings"

	"tg_rss_bot/internal/delivery"
	"tg_rss_bot/internal/model"
)

// FormatSubscriptionList renders a numbered MarkdownV2 list of subscriptions
// below header.
func FormatSubscriptionList(header string, subs []model.Subscription) string {
	var b strings.Builder
	b.WriteString(header)
	for i, s := range subs {
		title := s.FeedTitle
		if title == "" {
			title = s.FeedURL
		}
		fmt.Fprintf(&b, "\n%d\\. %s", i+1, delivery.FormatLink(title, s.FeedURL))
	}
	return b.String()
}
