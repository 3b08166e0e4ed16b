package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg_rss_bot/internal/i18n"
	"tg_rss_bot/internal/storage"
)

const actionUnsubscribe = "unsub"

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Error("send callback ack", "error", err)
	}
	if cb.Message == nil || cb.From == nil {
		return
	}

	action, id, err := ParseCallbackData(cb.Data)
	if err != nil {
		b.log.Debug("ignore callback", "data", cb.Data, "error", err)
		return
	}

	req := request{
		chatID: cb.Message.Chat.ID,
		userID: cb.From.ID,
		locale: b.userLocale(ctx, cb.From),
	}
	b.log.Info("callback", "action", action, "id", id, "chat_id", req.chatID, "user_id", req.userID)

	if !b.cfg.IsUserAllowed(req.userID) {
		b.reply(req.chatID, b.text(req, i18n.AccessDenied))
		return
	}

	switch action {
	case actionUnsubscribe:
		sub, err := b.store.GetSubscription(ctx, id)
		if errors.Is(err, storage.ErrNotFound) || (err == nil && sub.OwnerID != req.chatID) {
			b.reply(req.chatID, b.text(req, i18n.ListEmpty))
			return
		}
		if err != nil {
			b.log.Error("get subscription", "id", id, "error", err)
			b.reply(req.chatID, b.text(req, i18n.ErrorProcessing))
			return
		}
		b.unsubscribe(ctx, req, sub.OwnerID, sub.FeedURL)
	}
}
