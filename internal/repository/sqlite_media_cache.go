package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iconidentify/inthistweet/internal/domain"
)

// SQLiteMediaCache persists resolved media lists across restarts.
type SQLiteMediaCache struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteMediaCache opens (or creates) the cache database at path.
// A ttl <= 0 keeps entries forever.
func NewSQLiteMediaCache(path string, ttl time.Duration, logger *slog.Logger) (*SQLiteMediaCache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS media_cache (
			tweet_id TEXT PRIMARY KEY,
			items TEXT NOT NULL,
			stored_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_media_cache_expires ON media_cache(expires_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &SQLiteMediaCache{
		db:     db,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Close closes the underlying database.
func (c *SQLiteMediaCache) Close() error {
	return c.db.Close()
}

// Get returns the cached items for id.
func (c *SQLiteMediaCache) Get(ctx context.Context, id domain.TweetID) ([]domain.MediaItem, bool, error) {
	var (
		raw       string
		expiresAt int64
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT items, expires_at FROM media_cache WHERE tweet_id = ?", string(id),
	).Scan(&raw, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query media cache: %w", err)
	}

	if expiresAt > 0 && c.now().Unix() >= expiresAt {
		return nil, false, nil
	}

	var items []domain.MediaItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		c.logger.Warn("discarding corrupt cache entry", "tweet_id", id, "error", err)
		return nil, false, nil
	}
	return items, true, nil
}

// Set stores items for id.
func (c *SQLiteMediaCache) Set(ctx context.Context, id domain.TweetID, items []domain.MediaItem) error {
	if items == nil {
		items = []domain.MediaItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode media items: %w", err)
	}

	now := c.now()
	var expiresAt int64
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl).Unix()
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO media_cache (tweet_id, items, stored_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tweet_id) DO UPDATE SET
			items = excluded.items,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at
	`, string(id), string(data), now.Unix(), expiresAt)
	if err != nil {
		return fmt.Errorf("store media cache: %w", err)
	}
	return nil
}

// Count returns the number of stored entries, expired or not.
func (c *SQLiteMediaCache) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM media_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("count media cache: %w", err)
	}
	return n, nil
}

// CleanupExpired removes expired entries.
func (c *SQLiteMediaCache) CleanupExpired(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx,
		"DELETE FROM media_cache WHERE expires_at > 0 AND expires_at <= ?", c.now().Unix())
	if err != nil {
		return fmt.Errorf("delete expired entries: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		c.logger.Info("cleaned up expired cache entries", "deleted", deleted)
	}
	return nil
}
