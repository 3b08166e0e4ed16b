// Package scheduler polls due subscriptions and notifies their chats about
// new feed items.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"tg_rss_bot/internal/history"
	"tg_rss_bot/internal/model"
	"tg_rss_bot/internal/storage"
)

// FeedSource fetches and parses a feed.
type FeedSource interface {
	Fetch(ctx context.Context, url string) (*model.Feed, error)
}

// Notifier delivers new items of one subscription.
type Notifier interface {
	Deliver(ctx context.Context, chatID int64, title string, items []model.FeedItem) error
}

// Stats summarizes one update cycle.
type Stats struct {
	Due      int
	Fetched  int
	Failed   int
	Notified int
}

// Scheduler periodically checks due subscriptions and sends notifications.
type Scheduler struct {
	store       storage.Storage
	source      FeedSource
	notifier    Notifier
	log         *slog.Logger
	tick        time.Duration
	interval    time.Duration
	concurrency int
	now         func() time.Time
}

// New creates a Scheduler polling each subscription at most once per interval.
func New(store storage.Storage, source FeedSource, notifier Notifier, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:       store,
		source:      source,
		notifier:    notifier,
		log:         log,
		tick:        1 * time.Minute,
		interval:    interval,
		concurrency: 8,
		now:         time.Now,
	}
}

// SetTickInterval overrides the default 1-minute check interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// SetConcurrency bounds the number of subscriptions processed at once.
func (s *Scheduler) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.Cycle(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cycle(ctx)
		}
	}
}

// Cycle processes every due subscription and waits for all of them.
// A failing subscription never affects the others.
func (s *Scheduler) Cycle(ctx context.Context) Stats {
	subs, err := s.store.ListDue(ctx, s.interval)
	if err != nil {
		s.log.Error("list due subscriptions", "error", err)
		return Stats{}
	}

	var fetched, failed, notified atomic.Int64
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, sub := range subs {
		if ctx.Err() != nil {
			break
		}
		sub := sub // per-iteration copy; go directive is 1.21 (pre-1.22 loopvar semantics)
		g.Go(func() error {
			switch s.process(ctx, sub) {
			case outcomeFailed:
				failed.Add(1)
			case outcomeNotified:
				fetched.Add(1)
				notified.Add(1)
			case outcomeUnchanged:
				fetched.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats := Stats{
		Due:      len(subs),
		Fetched:  int(fetched.Load()),
		Failed:   int(failed.Load()),
		Notified: int(notified.Load()),
	}
	if stats.Due > 0 {
		s.log.Info("update cycle finished",
			"due", stats.Due, "fetched", stats.Fetched, "failed", stats.Failed, "notified", stats.Notified)
	}
	return stats
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeUnchanged
	outcomeNotified
)

func (s *Scheduler) process(ctx context.Context, sub model.Subscription) outcome {
	log := s.log.With("owner_id", sub.OwnerID, "feed_url", sub.FeedURL)
	log.Debug("checking subscription")

	feed, err := s.source.Fetch(ctx, sub.FeedURL)
	if err != nil {
		log.Error("fetch feed", "error", err)
		return outcomeFailed
	}
	fetchedAt := s.now()

	fresh, seen := history.Detect(sub.SeenItemIDs, feed.Items, sub.LastFetchAt == nil)

	title := feed.Title
	if title == "" {
		title = sub.FeedTitle
	}
	if title == "" {
		title = sub.FeedURL
	}

	result := outcomeUnchanged
	if len(fresh) > 0 {
		if err := s.notifier.Deliver(ctx, sub.OwnerID, title, fresh); err != nil {
			log.Error("deliver notification", "items", len(fresh), "error", err)
		} else {
			log.Info("sent notification", "items", len(fresh))
			result = outcomeNotified
		}
	}

	err = s.store.UpdateHistory(ctx, model.HistoryUpdate{
		OwnerID:     sub.OwnerID,
		FeedURL:     sub.FeedURL,
		Title:       feed.Title,
		FetchedAt:   fetchedAt,
		SeenItemIDs: seen,
		PrevFetchAt: sub.LastFetchAt,
	})
	switch {
	case errors.Is(err, storage.ErrStaleHistory):
		log.Warn("subscription changed during update, history not saved")
	case err != nil:
		log.Error("update history", "error", err)
		return outcomeFailed
	}
	return result
}
