package domain

// MediaType represents the kind of a media attachment.
type MediaType string

const (
	MediaTypePhoto       MediaType = "photo"
	MediaTypeVideo       MediaType = "video"
	MediaTypeAnimatedGIF MediaType = "animated_gif"
	// MediaTypeUnknown covers any type tag the syndication API adds later.
	MediaTypeUnknown MediaType = "unknown"
)

// ParseMediaType maps a raw type tag onto the closed set of media types.
func ParseMediaType(s string) MediaType {
	switch MediaType(s) {
	case MediaTypePhoto, MediaTypeVideo, MediaTypeAnimatedGIF:
		return MediaType(s)
	default:
		return MediaTypeUnknown
	}
}

// String returns the string representation of the MediaType.
func (t MediaType) String() string {
	return string(t)
}

// IsMotion reports whether the media type is rendered as a video.
func (t MediaType) IsMotion() bool {
	return t == MediaTypeVideo || t == MediaTypeAnimatedGIF
}

// Quality is a coarse quality label for a media variant.
type Quality string

const (
	QualityOriginal Quality = "original"
	Quality1080p    Quality = "1080p"
	Quality720p     Quality = "720p"
	Quality480p     Quality = "480p"
	Quality360p     Quality = "360p"
	Quality240p     Quality = "240p"
)

var qualityRanks = map[Quality]int{
	Quality1080p: 1080,
	Quality720p:  720,
	Quality480p:  480,
	Quality360p:  360,
	Quality240p:  240,
}

// Rank returns the numeric rank used for ordering variants.
// Unrecognized labels (including "original") rank as 0.
func (q Quality) Rank() int {
	return qualityRanks[q]
}

// MIME types produced by the extractor.
const (
	MimeTypeJPEG = "image/jpeg"
	MimeTypeMP4  = "video/mp4"
)

// MediaVariant is one playable rendition of a media item.
type MediaVariant struct {
	URL             string  `json:"url"`
	Quality         Quality `json:"quality"`
	AspectRatio     string  `json:"aspectRatio"`
	MimeType        string  `json:"mimeType"`
	FileSizeInBytes *int64  `json:"fileSizeInBytes,omitempty"`
	AltText         string  `json:"altText,omitempty"`
}

// MediaItem is one logical media attachment with its ordered variants.
type MediaItem struct {
	Type     MediaType      `json:"type"`
	Variants []MediaVariant `json:"variants"`
}

// Best returns the highest ranked variant, if any.
func (m MediaItem) Best() (MediaVariant, bool) {
	if len(m.Variants) == 0 {
		return MediaVariant{}, false
	}
	return m.Variants[0], true
}
