package storage

import (
	"context"
	"sync"
	"time"

	"tg_rss_bot/internal/model"
)

// DefaultLocaleTTL is how long a cached locale is served without a store read.
const DefaultLocaleTTL = time.Hour

type cachedLocale struct {
	locale  model.Locale
	expires time.Time
}

// CachedLocales is a read-through cache in front of a Locales store.
// Writes go to the store and drop the cached entry.
type CachedLocales struct {
	next Locales
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[int64]cachedLocale
}

// NewCachedLocales wraps next with a cache holding entries for ttl.
func NewCachedLocales(next Locales, ttl time.Duration) *CachedLocales {
	if ttl <= 0 {
		ttl = DefaultLocaleTTL
	}
	return &CachedLocales{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int64]cachedLocale),
	}
}

// GetLocale returns the cached locale of userID or loads it from the store.
func (c *CachedLocales) GetLocale(ctx context.Context, userID int64, def model.Locale) (model.Locale, error) {
	now := c.now()

	c.mu.Lock()
	e, ok := c.entries[userID]
	c.mu.Unlock()
	if ok && now.Before(e.expires) {
		return e.locale, nil
	}

	locale, err := c.next.GetLocale(ctx, userID, def)
	if err != nil {
		return locale, err
	}

	c.mu.Lock()
	c.entries[userID] = cachedLocale{locale: locale, expires: now.Add(c.ttl)}
	c.mu.Unlock()
	return locale, nil
}

// SetLocale stores locale for userID and invalidates its cache entry.
func (c *CachedLocales) SetLocale(ctx context.Context, userID int64, locale model.Locale) error {
	err := c.next.SetLocale(ctx, userID, locale)

	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
	return err
}
