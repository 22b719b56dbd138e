package twitter

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/iconidentify/inthistweet/internal/domain"
)

// ApproximateResolution maps a video bitrate (bits per second) to a coarse
// quality label.
func ApproximateResolution(bitrate int64) domain.Quality {
	switch {
	case bitrate > 5_000_000:
		return domain.Quality1080p
	case bitrate > 2_000_000:
		return domain.Quality720p
	case bitrate > 1_000_000:
		return domain.Quality480p
	case bitrate > 500_000:
		return domain.Quality360p
	default:
		return domain.Quality240p
	}
}

// AspectRatioToFloat parses "W:H" into W/H. Malformed input yields NaN.
func AspectRatioToFloat(aspectRatio string) float64 {
	parts := strings.Split(aspectRatio, ":")
	if len(parts) < 2 {
		return math.NaN()
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return math.NaN()
	}
	h, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return math.NaN()
	}
	return w / h
}

// SortVariants orders variants in place and returns them. Photos are sorted
// by aspect ratio (widest first, unparseable ratios last); videos and GIFs by
// quality rank, highest first. Ties keep their input order.
func SortVariants(variants []domain.MediaVariant, mediaType domain.MediaType) []domain.MediaVariant {
	switch mediaType {
	case domain.MediaTypePhoto:
		sort.SliceStable(variants, func(i, j int) bool {
			a := AspectRatioToFloat(variants[i].AspectRatio)
			b := AspectRatioToFloat(variants[j].AspectRatio)
			if math.IsNaN(a) {
				return false
			}
			if math.IsNaN(b) {
				return true
			}
			return a > b
		})
	case domain.MediaTypeVideo, domain.MediaTypeAnimatedGIF:
		sort.SliceStable(variants, func(i, j int) bool {
			return variants[i].Quality.Rank() > variants[j].Quality.Rank()
		})
	}
	return variants
}

// ExtractVariants turns one raw media object into its ordered variants.
// Unknown media types have no variants.
func ExtractVariants(media domain.MediaDetails) []domain.MediaVariant {
	mediaType := domain.ParseMediaType(media.Type)

	var variants []domain.MediaVariant
	switch mediaType {
	case domain.MediaTypePhoto:
		variants = append(variants, domain.MediaVariant{
			URL:         media.MediaURLHTTPS,
			Quality:     domain.QualityOriginal,
			AspectRatio: fmt.Sprintf("%d:%d", media.OriginalInfo.Width, media.OriginalInfo.Height),
			MimeType:    domain.MimeTypeJPEG,
			AltText:     media.ExtAltText,
		})
	case domain.MediaTypeVideo, domain.MediaTypeAnimatedGIF:
		if media.VideoInfo == nil {
			return nil
		}
		playable := make([]domain.VideoVariant, 0, len(media.VideoInfo.Variants))
		for _, v := range media.VideoInfo.Variants {
			if v.ContentType == domain.MimeTypeMP4 {
				playable = append(playable, v)
			}
		}
		sort.SliceStable(playable, func(i, j int) bool {
			return bitrateOf(playable[i]) > bitrateOf(playable[j])
		})

		aspect := media.VideoInfo.AspectRatioString()
		for _, v := range playable {
			variants = append(variants, domain.MediaVariant{
				URL:         v.URL,
				Quality:     ApproximateResolution(bitrateOf(v)),
				AspectRatio: aspect,
				MimeType:    v.ContentType,
			})
		}
	}

	return SortVariants(variants, mediaType)
}

func bitrateOf(v domain.VideoVariant) int64 {
	if v.Bitrate == nil {
		return 0
	}
	return *v.Bitrate
}
