// Package model defines the domain types used across the application.
package model

import "time"

// Subscription binds one destination chat to one feed URL.
// (OwnerID, FeedURL) is unique.
type Subscription struct {
	ID          int64
	OwnerID     int64
	FeedURL     string
	FeedTitle   string
	LastFetchAt *time.Time
	SeenItemIDs []string
	CreatedAt   time.Time
}

// HistoryUpdate carries the result of one poll of a subscription.
// PrevFetchAt is the LastFetchAt value the poll started from; the store
// applies the update only while it is still current.
type HistoryUpdate struct {
	OwnerID     int64
	FeedURL     string
	Title       string
	FetchedAt   time.Time
	SeenItemIDs []string
	PrevFetchAt *time.Time
}

// Locale is the language a user receives bot replies in.
type Locale string

// Supported locales.
const (
	LocaleEnglish Locale = "en"
	LocaleChinese Locale = "zh"
)

// Valid reports whether l is a supported locale.
func (l Locale) Valid() bool {
	return l == LocaleEnglish || l == LocaleChinese
}

// Toggle returns the other supported locale.
func (l Locale) Toggle() Locale {
	if l == LocaleChinese {
		return LocaleEnglish
	}
	return LocaleChinese
}

// UserSetting holds per-user preferences.
type UserSetting struct {
	UserID int64
	Locale Locale
}

// FeedItem is a single normalized entry of a fetched feed.
type FeedItem struct {
	Title     string
	Link      string
	ID        string
	Published *time.Time
}

// Feed is the normalized result of fetching a feed URL.
type Feed struct {
	Title string
	Items []FeedItem
}

// ChatType is the kind of a Telegram chat.
type ChatType string

// Telegram chat types.
const (
	ChatPrivate    ChatType = "private"
	ChatGroup      ChatType = "group"
	ChatSupergroup ChatType = "supergroup"
	ChatChannel    ChatType = "channel"
)

// Chat is the subset of chat metadata the bot relies on.
type Chat struct {
	ID    int64
	Type  ChatType
	Title string
}
