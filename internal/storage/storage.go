// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"tg_rss_bot/internal/model"
)

// Sentinel errors returned by Storage implementations.
var (
	ErrNotFound           = errors.New("subscription not found")
	ErrSubscriptionExists = errors.New("subscription already exists")
	ErrStaleHistory       = errors.New("subscription changed since it was read")
)

// Locales persists per-user locale settings.
type Locales interface {
	// GetLocale returns the user's locale, recording def for users that
	// have none yet.
	GetLocale(ctx context.Context, userID int64, def model.Locale) (model.Locale, error)
	SetLocale(ctx context.Context, userID int64, locale model.Locale) error
}

// Storage is the interface for all persistence operations.
type Storage interface {
	Locales

	AddSubscription(ctx context.Context, sub *model.Subscription) error
	GetSubscription(ctx context.Context, id int64) (*model.Subscription, error)
	RemoveSubscription(ctx context.Context, ownerID int64, feedURL string) error
	ListSubscriptions(ctx context.Context, ownerID int64) ([]model.Subscription, error)
	ListDue(ctx context.Context, interval time.Duration) ([]model.Subscription, error)
	UpdateHistory(ctx context.Context, upd model.HistoryUpdate) error

	Close() error
}
