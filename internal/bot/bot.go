// Package bot implements the Telegram command surface: subscribing chats to
// feeds, listing and removing subscriptions, and switching reply language.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg_rss_bot/internal/authz"
	"tg_rss_bot/internal/config"
	"tg_rss_bot/internal/i18n"
	"tg_rss_bot/internal/model"
	"tg_rss_bot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetChat(config tgbotapi.ChatInfoConfig) (tgbotapi.Chat, error)
	GetChatAdministrators(config tgbotapi.ChatAdministratorsConfig) ([]tgbotapi.ChatMember, error)
	GetMe() (tgbotapi.User, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// FeedSource fetches and parses a feed.
type FeedSource interface {
	Fetch(ctx context.Context, url string) (*model.Feed, error)
}

// Bot is the Telegram bot that handles user commands and sends notifications.
type Bot struct {
	api     telegramAPI
	store   storage.Storage
	locales storage.Locales
	source  FeedSource
	gate    *authz.Gate
	catalog *i18n.Catalog
	cfg     *config.Config
	log     *slog.Logger
}

// New creates a Bot with the given Telegram token. Locale reads and writes
// go through locales, which usually caches store.
func New(token string, store storage.Storage, locales storage.Locales, source FeedSource, cfg *config.Config, log *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return newBot(api, store, locales, source, cfg, log), nil
}

func newBot(api telegramAPI, store storage.Storage, locales storage.Locales, source FeedSource, cfg *config.Config, log *slog.Logger) *Bot {
	return &Bot{
		api:     api,
		store:   store,
		locales: locales,
		source:  source,
		gate:    authz.New(directory{api: api}),
		catalog: i18n.Default(),
		cfg:     cfg,
		log:     log,
	}
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		b.handleCallback(ctx, update.CallbackQuery)
		return
	}
	msg := update.Message
	if msg == nil || msg.From == nil || !msg.IsCommand() {
		return
	}
	req := request{
		chatID: msg.Chat.ID,
		userID: msg.From.ID,
		locale: b.userLocale(ctx, msg.From),
		args:   strings.Fields(msg.CommandArguments()),
	}
	if !b.cfg.IsUserAllowed(req.userID) {
		b.reply(req.chatID, b.text(req, i18n.AccessDenied))
		return
	}
	b.handleCommand(ctx, msg.Command(), req)
}

// SendMarkdown sends a MarkdownV2 formatted message to the given chat.
func (b *Bot) SendMarkdown(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (b *Bot) reply(chatID int64, text string) {
	if err := b.SendMarkdown(chatID, text); err != nil {
		b.log.Error("send reply", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) userLocale(ctx context.Context, from *tgbotapi.User) model.Locale {
	def := i18n.Match(from.LanguageCode, b.cfg.DefaultLocale)
	locale, err := b.locales.GetLocale(ctx, from.ID, def)
	if err != nil {
		b.log.Error("get locale", "user_id", from.ID, "error", err)
		return def
	}
	return locale
}

func (b *Bot) text(req request, key string, args ...string) string {
	return b.catalog.Text(req.locale, key, args...)
}

// request is one parsed command invocation.
type request struct {
	chatID int64
	userID int64
	locale model.Locale
	args   []string
}

func (b *Bot) handleCommand(ctx context.Context, cmd string, req request) {
	b.log.Debug("command", "cmd", cmd, "args", req.args, "chat_id", req.chatID, "user_id", req.userID)

	switch cmd {
	case "start", "help":
		b.handleStart(req)
	case "sub":
		b.handleSubscribe(ctx, req)
	case "unsub":
		b.handleUnsubscribe(ctx, req)
	case "list":
		b.handleList(ctx, req)
	case "lang":
		b.handleLanguage(ctx, req)
	default:
		b.reply(req.chatID, b.text(req, i18n.UnknownCommand))
	}
}
