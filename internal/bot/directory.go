package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg_rss_bot/internal/model"
)

// directory adapts the Telegram API to authz.Directory.
type directory struct {
	api telegramAPI
}

func (d directory) ResolveChat(ctx context.Context, identifier string) (model.Chat, error) {
	if err := ctx.Err(); err != nil {
		return model.Chat{}, err
	}
	chat, err := d.api.GetChat(tgbotapi.ChatInfoConfig{ChatConfig: chatConfig(identifier)})
	if err != nil {
		return model.Chat{}, fmt.Errorf("get chat %s: %w", identifier, err)
	}
	return model.Chat{ID: chat.ID, Type: model.ChatType(chat.Type), Title: chat.Title}, nil
}

func (d directory) ChatAdministrators(ctx context.Context, chatID int64) ([]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	members, err := d.api.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, fmt.Errorf("get chat administrators %d: %w", chatID, err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if m.User != nil {
			ids = append(ids, m.User.ID)
		}
	}
	return ids, nil
}

func (d directory) SelfID(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	me, err := d.api.GetMe()
	if err != nil {
		return 0, fmt.Errorf("get me: %w", err)
	}
	return me.ID, nil
}

// chatConfig addresses a chat by numeric id or by public @username.
func chatConfig(identifier string) tgbotapi.ChatConfig {
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		return tgbotapi.ChatConfig{ChatID: id}
	}
	if !strings.HasPrefix(identifier, "@") {
		identifier = "@" + identifier
	}
	return tgbotapi.ChatConfig{SuperGroupUsername: identifier}
}
