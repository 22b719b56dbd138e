package repository

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/iconidentify/inthistweet/internal/domain"
)

// MemoryMediaCache is a process-local media cache with per-entry expiry.
type MemoryMediaCache struct {
	items *cache.Cache
}

// NewMemoryMediaCache creates a cache whose entries live for ttl.
func NewMemoryMediaCache(ttl time.Duration) *MemoryMediaCache {
	return &MemoryMediaCache{
		items: cache.New(ttl, 2*ttl),
	}
}

// Get returns the cached items for id.
func (c *MemoryMediaCache) Get(ctx context.Context, id domain.TweetID) ([]domain.MediaItem, bool, error) {
	v, found := c.items.Get(string(id))
	if !found {
		return nil, false, nil
	}
	return cloneItems(v.([]domain.MediaItem)), true, nil
}

// Set stores a copy of items for id.
func (c *MemoryMediaCache) Set(ctx context.Context, id domain.TweetID, items []domain.MediaItem) error {
	c.items.Set(string(id), cloneItems(items), cache.DefaultExpiration)
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *MemoryMediaCache) Len() int {
	return c.items.ItemCount()
}

func cloneItems(items []domain.MediaItem) []domain.MediaItem {
	if items == nil {
		return nil
	}
	out := make([]domain.MediaItem, len(items))
	for i, item := range items {
		out[i] = domain.MediaItem{Type: item.Type, Variants: make([]domain.MediaVariant, len(item.Variants))}
		for j, v := range item.Variants {
			if v.FileSizeInBytes != nil {
				size := *v.FileSizeInBytes
				v.FileSizeInBytes = &size
			}
			out[i].Variants[j] = v
		}
	}
	return out
}
