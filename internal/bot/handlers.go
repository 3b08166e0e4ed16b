package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg_rss_bot/internal/authz"
	"tg_rss_bot/internal/delivery"
	"tg_rss_bot/internal/history"
	"tg_rss_bot/internal/i18n"
	"tg_rss_bot/internal/model"
	"tg_rss_bot/internal/storage"
)

// previewItems is how many items the subscribe confirmation shows.
const previewItems = 5

func (b *Bot) handleStart(req request) {
	b.reply(req.chatID, b.text(req, i18n.Help))
}

func (b *Bot) handleSubscribe(ctx context.Context, req request) {
	target, feedURL, err := ParseTargetArgs(req.args)
	if err != nil {
		b.reply(req.chatID, b.text(req, i18n.URLRequired))
		return
	}
	ownerID, ok := b.resolveOwner(ctx, req, target)
	if !ok {
		return
	}
	if err := ValidateFeedURL(feedURL); err != nil {
		b.reply(req.chatID, b.text(req, i18n.InvalidURL, "url", delivery.EscapeMarkdown(feedURL)))
		return
	}

	feed, err := b.source.Fetch(ctx, feedURL)
	if err != nil {
		b.log.Warn("fetch feed for subscription", "feed_url", feedURL, "error", err)
		b.reply(req.chatID, b.text(req, i18n.SubscribeFailed, "error", delivery.EscapeMarkdown(err.Error())))
		return
	}

	title := feed.Title
	if title == "" {
		title = feedURL
	}
	link := delivery.FormatLink(title, feedURL)

	now := time.Now()
	sub := &model.Subscription{
		OwnerID:     ownerID,
		FeedURL:     feedURL,
		FeedTitle:   title,
		LastFetchAt: &now,
		SeenItemIDs: history.Seed(feed.Items),
	}
	err = b.store.AddSubscription(ctx, sub)
	switch {
	case errors.Is(err, storage.ErrSubscriptionExists):
		b.reply(req.chatID, b.text(req, i18n.SubscribeExists, "link", link))
		return
	case err != nil:
		b.log.Error("add subscription", "owner_id", ownerID, "feed_url", feedURL, "error", err)
		b.reply(req.chatID, b.text(req, i18n.ErrorProcessing))
		return
	}
	b.log.Info("subscribed", "owner_id", ownerID, "feed_url", feedURL, "seen", len(sub.SeenItemIDs))

	if len(feed.Items) == 0 {
		b.reply(req.chatID, b.text(req, i18n.SubscribeSuccessNoArticle, "link", link))
		return
	}
	preview := feed.Items[:min(previewItems, len(feed.Items))]
	b.reply(req.chatID, b.text(req, i18n.SubscribeSuccess,
		"link", link,
		"article", delivery.FormatDigest(title, preview)))
}

func (b *Bot) handleUnsubscribe(ctx context.Context, req request) {
	if len(req.args) == 0 {
		b.chooseUnsubscribe(ctx, req)
		return
	}
	target, feedURL, err := ParseTargetArgs(req.args)
	if err != nil {
		b.reply(req.chatID, b.text(req, i18n.URLRequired))
		return
	}
	ownerID, ok := b.resolveOwner(ctx, req, target)
	if !ok {
		return
	}
	b.unsubscribe(ctx, req, ownerID, feedURL)
}

func (b *Bot) unsubscribe(ctx context.Context, req request, ownerID int64, feedURL string) {
	err := b.store.RemoveSubscription(ctx, ownerID, feedURL)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		b.reply(req.chatID, b.text(req, i18n.UnsubscribeNotFound, "url", delivery.EscapeMarkdown(feedURL)))
	case err != nil:
		b.log.Error("remove subscription", "owner_id", ownerID, "feed_url", feedURL, "error", err)
		b.reply(req.chatID, b.text(req, i18n.UnsubscribeFailed, "error", delivery.EscapeMarkdown(err.Error())))
	default:
		b.log.Info("unsubscribed", "owner_id", ownerID, "feed_url", feedURL)
		b.reply(req.chatID, b.text(req, i18n.UnsubscribeSuccess, "url", delivery.EscapeMarkdown(feedURL)))
	}
}

// chooseUnsubscribe offers the chat's own subscriptions as inline buttons.
func (b *Bot) chooseUnsubscribe(ctx context.Context, req request) {
	subs, err := b.store.ListSubscriptions(ctx, req.chatID)
	if err != nil {
		b.log.Error("list subscriptions", "owner_id", req.chatID, "error", err)
		b.reply(req.chatID, b.text(req, i18n.ErrorProcessing))
		return
	}
	if len(subs) == 0 {
		b.reply(req.chatID, b.text(req, i18n.ListEmpty))
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(subs))
	for _, s := range subs {
		label := s.FeedTitle
		if label == "" {
			label = s.FeedURL
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s:%d", actionUnsubscribe, s.ID)),
		))
	}
	msg := tgbotapi.NewMessage(req.chatID, b.text(req, i18n.UnsubscribeChoose))
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send unsubscribe keyboard", "chat_id", req.chatID, "error", err)
	}
}

func (b *Bot) handleList(ctx context.Context, req request) {
	target, err := ParseListArgs(req.args)
	if err != nil {
		b.reply(req.chatID, b.text(req, i18n.UnknownCommand))
		return
	}
	ownerID, ok := b.resolveOwner(ctx, req, target)
	if !ok {
		return
	}
	subs, err := b.store.ListSubscriptions(ctx, ownerID)
	if err != nil {
		b.log.Error("list subscriptions", "owner_id", ownerID, "error", err)
		b.reply(req.chatID, b.text(req, i18n.ErrorProcessing))
		return
	}
	if len(subs) == 0 {
		b.reply(req.chatID, b.text(req, i18n.ListEmpty))
		return
	}
	b.reply(req.chatID, FormatSubscriptionList(b.text(req, i18n.ListHeader), subs))
}

func (b *Bot) handleLanguage(ctx context.Context, req request) {
	next := req.locale.Toggle()
	if err := b.locales.SetLocale(ctx, req.userID, next); err != nil {
		b.log.Error("set locale", "user_id", req.userID, "error", err)
		b.reply(req.chatID, b.text(req, i18n.ErrorProcessing))
		return
	}
	req.locale = next
	b.reply(req.chatID, b.text(req, i18n.Help))
}

// resolveOwner returns the chat a command acts on. Commands without a target,
// or targeting the issuing chat, act on the issuing chat. Any other target
// must pass the authorization gate; on failure the caller has been answered.
func (b *Bot) resolveOwner(ctx context.Context, req request, target string) (int64, bool) {
	if isSelfTarget(target, req.chatID) {
		return req.chatID, true
	}
	ownerID, err := b.gate.Authorize(ctx, req.userID, target)
	if err == nil {
		return ownerID, true
	}

	b.log.Info("target rejected", "target", target, "user_id", req.userID, "error", err)
	switch {
	case errors.Is(err, authz.ErrChatNotFound):
		b.reply(req.chatID, b.text(req, i18n.ChatNotFound, "error", delivery.EscapeMarkdown(err.Error())))
	case errors.Is(err, authz.ErrInvalidTargetType):
		b.reply(req.chatID, b.text(req, i18n.TargetInvalid))
	case errors.Is(err, authz.ErrBotNotAdmin):
		b.reply(req.chatID, b.text(req, i18n.BotNotAdmin))
	case errors.Is(err, authz.ErrUserNotAdmin):
		b.reply(req.chatID, b.text(req, i18n.UserNotAdmin))
	default:
		b.reply(req.chatID, b.text(req, i18n.ErrorProcessing))
	}
	return 0, false
}
