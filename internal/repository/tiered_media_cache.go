package repository

import (
	"context"
	"log/slog"

	"github.com/iconidentify/inthistweet/internal/domain"
)

// Cache tier names reported by TieredMediaCache.Lookup.
const (
	TierMemory     = "memory"
	TierPersistent = "sqlite"
)

// TieredMediaCache checks a fast cache before a persistent one and
// back-fills the fast cache on a persistent hit.
type TieredMediaCache struct {
	fast       MediaCache
	persistent MediaCache
	logger     *slog.Logger
}

// NewTieredMediaCache combines two caches. persistent may be nil.
func NewTieredMediaCache(fast, persistent MediaCache, logger *slog.Logger) *TieredMediaCache {
	return &TieredMediaCache{
		fast:       fast,
		persistent: persistent,
		logger:     logger,
	}
}

// Lookup returns the cached items and the tier that served them. tier is
// empty on a miss.
func (c *TieredMediaCache) Lookup(ctx context.Context, id domain.TweetID) (items []domain.MediaItem, tier string, err error) {
	if items, found, err := c.fast.Get(ctx, id); err != nil {
		return nil, "", err
	} else if found {
		return items, TierMemory, nil
	}

	if c.persistent == nil {
		return nil, "", nil
	}

	items, found, err := c.persistent.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if !found {
		return nil, "", nil
	}

	if err := c.fast.Set(ctx, id, items); err != nil {
		c.logger.Warn("failed to back-fill memory cache", "tweet_id", id, "error", err)
	}
	return items, TierPersistent, nil
}

// Get implements MediaCache.
func (c *TieredMediaCache) Get(ctx context.Context, id domain.TweetID) ([]domain.MediaItem, bool, error) {
	items, tier, err := c.Lookup(ctx, id)
	return items, tier != "", err
}

// Set writes to both tiers. A persistent failure is returned after the
// fast tier has been updated.
func (c *TieredMediaCache) Set(ctx context.Context, id domain.TweetID, items []domain.MediaItem) error {
	if err := c.fast.Set(ctx, id, items); err != nil {
		return err
	}
	if c.persistent == nil {
		return nil
	}
	return c.persistent.Set(ctx, id, items)
}
