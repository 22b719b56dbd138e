package twitter

import (
	"github.com/iconidentify/inthistweet/internal/domain"
)

// ExtractAndFormatMedia collects every media item reachable from a tweet.
//
// Order is fixed: the tweet's own media, the quoted tweet's media, the
// parent tweet's media, then the cards of the tweet, the quoted tweet and
// the parent tweet. Items are not de-duplicated across these sources.
func (e *Extractor) ExtractAndFormatMedia(tweet *domain.Tweet) []domain.MediaItem {
	items := make([]domain.MediaItem, 0)
	if tweet == nil {
		return items
	}

	quoted := tweet.QuotedTweet
	parent := tweet.Parent

	items = appendMediaDetails(items, tweet)
	items = appendMediaDetails(items, quoted)
	items = appendMediaDetails(items, parent)

	for _, t := range []*domain.Tweet{tweet, quoted, parent} {
		if t == nil || t.Card == nil {
			continue
		}
		items = appendNonEmpty(items, e.ExtractCardMedia(t.Card)...)
	}

	return items
}

func appendMediaDetails(items []domain.MediaItem, tweet *domain.Tweet) []domain.MediaItem {
	if tweet == nil {
		return items
	}
	for _, media := range tweet.MediaDetails {
		items = appendNonEmpty(items, domain.MediaItem{
			Type:     domain.ParseMediaType(media.Type),
			Variants: ExtractVariants(media),
		})
	}
	return items
}

// appendNonEmpty drops items without variants so every emitted item is playable.
func appendNonEmpty(items []domain.MediaItem, add ...domain.MediaItem) []domain.MediaItem {
	for _, item := range add {
		if len(item.Variants) == 0 {
			continue
		}
		items = append(items, item)
	}
	return items
}
