package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iconidentify/inthistweet/internal/domain"
	"github.com/iconidentify/inthistweet/internal/metrics"
	"github.com/iconidentify/inthistweet/internal/repository"
	"github.com/iconidentify/inthistweet/pkg/twitter"
)

// TweetFetcher loads a tweet payload by id. A nil tweet with a nil error
// means the tweet does not exist.
type TweetFetcher interface {
	FetchTweet(ctx context.Context, id domain.TweetID) (*domain.Tweet, error)
}

// MediaLookup is a media cache that reports which tier served a hit.
type MediaLookup interface {
	Lookup(ctx context.Context, id domain.TweetID) ([]domain.MediaItem, string, error)
	Set(ctx context.Context, id domain.TweetID, items []domain.MediaItem) error
}

// MediaService resolves tweet URLs to their downloadable media.
type MediaService struct {
	fetcher   TweetFetcher
	extractor *twitter.Extractor
	cache     MediaLookup
	logger    *slog.Logger
}

// NewMediaService creates a media service. cache may be nil.
func NewMediaService(fetcher TweetFetcher, cache MediaLookup, logger *slog.Logger) *MediaService {
	return &MediaService{
		fetcher:   fetcher,
		extractor: twitter.NewExtractor(logger),
		cache:     cache,
		logger:    logger,
	}
}

// Resolve returns the media of the tweet at rawURL, including quoted,
// parent and card media, in display order.
func (s *MediaService) Resolve(ctx context.Context, rawURL string) ([]domain.MediaItem, error) {
	ref, err := twitter.ParseTweetURL(rawURL)
	if err != nil {
		metrics.TweetResolutions.WithLabelValues("invalid").Inc()
		return nil, err
	}

	logger := s.logger.With("tweet_id", ref.ID, "user", ref.User)

	if items, ok := s.lookup(ctx, logger, ref.ID); ok {
		metrics.TweetResolutions.WithLabelValues("cached").Inc()
		return items, nil
	}

	tweet, err := s.fetcher.FetchTweet(ctx, ref.ID)
	if err != nil {
		metrics.TweetResolutions.WithLabelValues(resolutionErrorLabel(err)).Inc()
		return nil, fmt.Errorf("fetch tweet %s: %w", ref.ID, err)
	}
	if tweet == nil {
		metrics.TweetResolutions.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: %s", domain.ErrTweetNotFound, ref.ID)
	}

	items := s.extractor.ExtractAndFormatMedia(tweet)
	if items == nil {
		items = []domain.MediaItem{}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, ref.ID, items); err != nil {
			logger.Warn("failed to cache media", "error", err)
		}
	}

	for _, item := range items {
		metrics.MediaItems.WithLabelValues(item.Type.String()).Inc()
	}
	metrics.TweetResolutions.WithLabelValues("ok").Inc()

	logger.Info("resolved tweet media", "items", len(items))
	return items, nil
}

func (s *MediaService) lookup(ctx context.Context, logger *slog.Logger, id domain.TweetID) ([]domain.MediaItem, bool) {
	if s.cache == nil {
		return nil, false
	}

	items, tier, err := s.cache.Lookup(ctx, id)
	if err != nil {
		logger.Warn("media cache lookup failed", "error", err)
		return nil, false
	}

	switch tier {
	case repository.TierMemory:
		metrics.CacheHits.WithLabelValues(repository.TierMemory).Inc()
	case repository.TierPersistent:
		metrics.CacheMisses.WithLabelValues(repository.TierMemory).Inc()
		metrics.CacheHits.WithLabelValues(repository.TierPersistent).Inc()
	default:
		metrics.CacheMisses.WithLabelValues(repository.TierMemory).Inc()
		metrics.CacheMisses.WithLabelValues(repository.TierPersistent).Inc()
		return nil, false
	}

	logger.Debug("media cache hit", "tier", tier)
	return items, true
}

func resolutionErrorLabel(err error) string {
	var apiErr *domain.RemoteAPIError
	if errors.As(err, &apiErr) {
		return "remote_error"
	}
	return "error"
}
