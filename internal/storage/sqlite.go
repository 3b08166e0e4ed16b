package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"tg_rss_bot/internal/model"
	"tg_rss_bot/migrations"
)

const subscriptionColumns = `id, owner_id, feed_url, feed_title, last_fetch_time, seen_item_ids, created_at`

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// shared between goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetLocale returns the stored locale of a user, inserting def when the
// user has no setting yet.
func (s *SQLite) GetLocale(ctx context.Context, userID int64, def model.Locale) (model.Locale, error) {
	var locale string
	err := s.db.QueryRowContext(ctx,
		`SELECT locale FROM user_settings WHERE user_id = ?`, userID,
	).Scan(&locale)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_settings (user_id, locale) VALUES (?, ?)`, userID, string(def),
		); err != nil {
			return def, fmt.Errorf("insert user settings: %w", err)
		}
		return def, nil
	case err != nil:
		return def, fmt.Errorf("query user settings: %w", err)
	}
	if l := model.Locale(locale); l.Valid() {
		return l, nil
	}
	return def, nil
}

// SetLocale stores the locale of a user, replacing any previous value.
func (s *SQLite) SetLocale(ctx context.Context, userID int64, locale model.Locale) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, locale) VALUES (?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET locale = excluded.locale`,
		userID, string(locale),
	)
	if err != nil {
		return fmt.Errorf("upsert user settings: %w", err)
	}
	return nil
}

// AddSubscription inserts a new subscription and populates its ID and
// CreatedAt. Seeded history in sub is stored with it.
func (s *SQLite) AddSubscription(ctx context.Context, sub *model.Subscription) error {
	seen, err := encodeIDs(sub.SeenItemIDs)
	if err != nil {
		return err
	}
	now := s.now().UTC().Truncate(time.Millisecond)

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO subscriptions (owner_id, feed_url, feed_title, last_fetch_time, seen_item_ids, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (owner_id, feed_url) DO NOTHING`,
		sub.OwnerID, sub.FeedURL, sub.FeedTitle, toMillis(sub.LastFetchAt), seen, now.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrSubscriptionExists
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	sub.ID = id
	sub.CreatedAt = now
	return nil
}

// GetSubscription returns a single subscription by its ID.
func (s *SQLite) GetSubscription(ctx context.Context, id int64) (*model.Subscription, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id,
	)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sub, err
}

// RemoveSubscription deletes the subscription of ownerID to feedURL.
func (s *SQLite) RemoveSubscription(ctx context.Context, ownerID int64, feedURL string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE owner_id = ? AND feed_url = ?`, ownerID, feedURL,
	)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSubscriptions returns all subscriptions delivered to ownerID.
func (s *SQLite) ListSubscriptions(ctx context.Context, ownerID int64) ([]model.Subscription, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE owner_id = ? ORDER BY id`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSubscriptions(rows)
}

// ListDue returns subscriptions never polled or last polled more than
// interval ago.
func (s *SQLite) ListDue(ctx context.Context, interval time.Duration) ([]model.Subscription, error) {
	cutoff := s.now().Add(-interval).UnixMilli()
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE last_fetch_time IS NULL OR last_fetch_time < ?
		 ORDER BY id`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("query due subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanSubscriptions(rows)
}

// UpdateHistory records a completed poll. The write only applies while the
// stored last fetch time still equals upd.PrevFetchAt; otherwise
// ErrStaleHistory is returned and nothing changes. An empty upd.Title keeps
// the cached title.
func (s *SQLite) UpdateHistory(ctx context.Context, upd model.HistoryUpdate) error {
	seen, err := encodeIDs(upd.SeenItemIDs)
	if err != nil {
		return err
	}
	fetchedAt := upd.FetchedAt.UTC().Truncate(time.Millisecond)

	res, err := s.db.ExecContext(ctx,
		`UPDATE subscriptions
		 SET last_fetch_time = ?,
		     seen_item_ids = ?,
		     feed_title = CASE WHEN ? = '' THEN feed_title ELSE ? END
		 WHERE owner_id = ? AND feed_url = ? AND last_fetch_time IS ?`,
		fetchedAt.UnixMilli(), seen, upd.Title, upd.Title,
		upd.OwnerID, upd.FeedURL, toMillis(upd.PrevFetchAt),
	)
	if err != nil {
		return fmt.Errorf("update history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrStaleHistory
	}
	return nil
}

func toMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func encodeIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode seen item ids: %w", err)
	}
	return string(b), nil
}

// decodeIDs also accepts a bare identifier, the format of databases that
// tracked only the last seen item.
func decodeIDs(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return []string{raw}
	}
	if ids == nil {
		ids = []string{}
	}
	return ids
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSubscription(row scannable) (*model.Subscription, error) {
	var sub model.Subscription
	var lastFetch sql.NullInt64
	var seen string
	var created int64
	err := row.Scan(&sub.ID, &sub.OwnerID, &sub.FeedURL, &sub.FeedTitle, &lastFetch, &seen, &created)
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	if lastFetch.Valid {
		t := fromMillis(lastFetch.Int64)
		sub.LastFetchAt = &t
	}
	sub.SeenItemIDs = decodeIDs(seen)
	sub.CreatedAt = fromMillis(created)
	return &sub, nil
}

func scanSubscriptions(rows *sql.Rows) ([]model.Subscription, error) {
	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}
