package twitter

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/iconidentify/inthistweet/internal/domain"
)

// Extractor normalizes syndication payloads into media items.
// It holds no state besides its logger and is safe for concurrent use.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates a new media extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// ExtractCardMedia extracts media items from a card. Top-level image
// bindings collapse into one leading photo item; each media component of a
// unified card becomes its own item.
func (e *Extractor) ExtractCardMedia(card *domain.TwitterCard) []domain.MediaItem {
	if card == nil {
		return nil
	}

	var items []domain.MediaItem
	photo := domain.MediaItem{Type: domain.MediaTypePhoto}
	for _, binding := range card.BindingValues {
		img := binding.Value.ImageValue
		if img == nil {
			continue
		}
		// Cards carry a single quality per image.
		photo.Variants = append(photo.Variants, domain.MediaVariant{
			URL:         img.URL,
			Quality:     domain.QualityOriginal,
			AspectRatio: fmt.Sprintf("%d:%d", img.Width, img.Height),
			MimeType:    domain.MimeTypeJPEG,
		})
	}
	if len(photo.Variants) > 0 {
		items = append(items, photo)
	}

	if value, ok := card.BindingValues.Get(domain.UnifiedCardKey); ok && value.StringValue != nil && *value.StringValue != "" {
		unified, err := parseUnifiedCard(*value.StringValue)
		if err != nil {
			e.logger.Warn("skipping unified card", "card", card.Name, "error", err)
		} else {
			items = append(items, e.unifiedCardMedia(unified)...)
		}
	}

	for i := range items {
		items[i].Variants = SortVariants(items[i].Variants, items[i].Type)
	}
	return items
}

func (e *Extractor) unifiedCardMedia(card *domain.UnifiedCardData) []domain.MediaItem {
	var items []domain.MediaItem
	for _, component := range card.ComponentObjects {
		if component.Object.Type != "media" {
			continue
		}
		id := component.Object.MediaID()
		if id == "" {
			continue
		}
		media, ok := card.MediaEntities[id]
		if !ok {
			continue
		}
		items = append(items, domain.MediaItem{
			Type:     domain.ParseMediaType(media.Type),
			Variants: ExtractVariants(media),
		})
	}
	return items
}

func parseUnifiedCard(payload string) (*domain.UnifiedCardData, error) {
	var card domain.UnifiedCardData
	if err := json.Unmarshal([]byte(payload), &card); err != nil {
		return nil, fmt.Errorf("decode unified card: %w", err)
	}
	return &card, nil
}
