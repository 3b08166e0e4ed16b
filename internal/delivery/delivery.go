// Package delivery formats new feed items into a single digest message and
// sends it to the subscription's destination chat.
package delivery

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"tg_rss_bot/internal/model"
)

// Sender sends a MarkdownV2 formatted message to a chat.
type Sender interface {
	SendMarkdown(chatID int64, text string) error
}

// DeliveryError reports a failed notification send.
type DeliveryError struct {
	ChatID int64
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to chat %d: %v", e.ChatID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Dispatcher sends digests through a Sender, spacing sends by a shared
// rate limiter.
type Dispatcher struct {
	sender  Sender
	limiter *rate.Limiter
}

// New creates a Dispatcher allowing perSecond sends per second.
// A non-positive perSecond disables rate limiting.
func New(sender Sender, perSecond float64) *Dispatcher {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Dispatcher{
		sender:  sender,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Deliver sends one message listing items under title. It does nothing when
// items is empty.
func (d *Dispatcher) Deliver(ctx context.Context, chatID int64, title string, items []model.FeedItem) error {
	if len(items) == 0 {
		return nil
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return &DeliveryError{ChatID: chatID, Err: err}
	}
	if err := d.sender.SendMarkdown(chatID, FormatDigest(title, items)); err != nil {
		return &DeliveryError{ChatID: chatID, Err: err}
	}
	return nil
}

// FormatDigest renders a bold title line followed by one link line per item.
func FormatDigest(title string, items []model.FeedItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*", EscapeMarkdown(title))
	for _, item := range items {
		b.WriteString("\n")
		b.WriteString(FormatItem(item))
	}
	return b.String()
}

// FormatItem renders a single item as a MarkdownV2 link.
func FormatItem(item model.FeedItem) string {
	text := item.Title
	if text == "" {
		text = item.Link
	}
	if text == "" {
		text = "Untitled"
	}
	if item.Link == "" {
		return EscapeMarkdown(text)
	}
	return FormatLink(text, item.Link)
}

// FormatLink renders an inline MarkdownV2 link.
func FormatLink(text, url string) string {
	return fmt.Sprintf("[%s](%s)", EscapeMarkdown(text), escapeURL(url))
}

// EscapeMarkdown escapes text for Telegram's MarkdownV2 parse mode.
func EscapeMarkdown(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdownV2, strings.ReplaceAll(text, `\`, `\\`))
}

var urlEscaper = strings.NewReplacer(`\`, `\\`, `)`, `\)`)

// Inside the (...) part of a link only ')' and '\' must be escaped.
func escapeURL(url string) string {
	return urlEscaper.Replace(url)
}
