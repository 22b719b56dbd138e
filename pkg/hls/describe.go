package hls

import (
	"bytes"
	"fmt"

	"github.com/grafov/m3u8"

	"github.com/iconidentify/inthistweet/internal/domain"
)

// Playlist kinds reported by Describe.
const (
	KindMaster = "master"
	KindMedia  = "media"
)

// Summary is a human oriented overview of a manifest.
type Summary struct {
	Kind string `json:"kind"`

	// Master playlists.
	Variants     []VariantSummary   `json:"variants,omitempty"`
	Alternatives []RenditionSummary `json:"alternatives,omitempty"`

	// Media playlists.
	TargetDuration float64 `json:"target_duration,omitempty"`
	Segments       int     `json:"segments,omitempty"`
	Duration       float64 `json:"duration,omitempty"`
	Ended          bool    `json:"ended,omitempty"`
	Encrypted      bool    `json:"encrypted,omitempty"`
}

// VariantSummary describes one EXT-X-STREAM-INF entry.
type VariantSummary struct {
	URI        string  `json:"uri"`
	Bandwidth  uint32  `json:"bandwidth"`
	Resolution string  `json:"resolution,omitempty"`
	Codecs     string  `json:"codecs,omitempty"`
	FrameRate  float64 `json:"frame_rate,omitempty"`
}

// RenditionSummary describes one EXT-X-MEDIA entry.
type RenditionSummary struct {
	Type     string `json:"type"`
	GroupID  string `json:"group_id"`
	Name     string `json:"name,omitempty"`
	Language string `json:"language,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// Describe summarizes a manifest's variants or segments.
func Describe(data []byte) (*Summary, error) {
	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(data), false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrManifestFormat, err)
	}

	switch listType {
	case m3u8.MASTER:
		master := playlist.(*m3u8.MasterPlaylist)
		return describeMaster(master), nil
	case m3u8.MEDIA:
		media := playlist.(*m3u8.MediaPlaylist)
		return describeMedia(media), nil
	}
	return nil, fmt.Errorf("%w: unknown playlist type", domain.ErrManifestFormat)
}

func describeMaster(master *m3u8.MasterPlaylist) *Summary {
	s := &Summary{Kind: KindMaster}
	seen := make(map[string]bool)
	for _, v := range master.Variants {
		if v == nil {
			continue
		}
		s.Variants = append(s.Variants, VariantSummary{
			URI:        v.URI,
			Bandwidth:  v.Bandwidth,
			Resolution: v.Resolution,
			Codecs:     v.Codecs,
			FrameRate:  v.FrameRate,
		})
		// Alternatives are repeated on every variant of a group.
		for _, alt := range v.Alternatives {
			if alt == nil {
				continue
			}
			id := alt.Type + "|" + alt.GroupId + "|" + alt.Name + "|" + alt.URI
			if seen[id] {
				continue
			}
			seen[id] = true
			s.Alternatives = append(s.Alternatives, RenditionSummary{
				Type:     alt.Type,
				GroupID:  alt.GroupId,
				Name:     alt.Name,
				Language: alt.Language,
				URI:      alt.URI,
			})
		}
	}
	return s
}

func describeMedia(media *m3u8.MediaPlaylist) *Summary {
	s := &Summary{
		Kind:           KindMedia,
		TargetDuration: media.TargetDuration,
		Ended:          media.Closed,
		Encrypted:      media.Key != nil && media.Key.Method != "" && media.Key.Method != "NONE",
	}
	for _, seg := range media.Segments {
		if seg == nil {
			continue
		}
		s.Segments++
		s.Duration += seg.Duration
		if seg.Key != nil && seg.Key.Method != "" && seg.Key.Method != "NONE" {
			s.Encrypted = true
		}
	}
	return s
}

// MaxBandwidth returns the highest bandwidth variant of a master summary.
func (s *Summary) MaxBandwidth() (VariantSummary, bool) {
	var best VariantSummary
	found := false
	for _, v := range s.Variants {
		if !found || v.Bandwidth > best.Bandwidth {
			best, found = v, true
		}
	}
	return best, found
}
