// Package hls parses, rewrites and mirrors HLS (M3U8) manifests.
package hls

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/iconidentify/inthistweet/internal/domain"
)

const headerTag = "#EXTM3U"

// uriAttrRegex finds URI="..." attributes inside tag lines such as
// EXT-X-KEY, EXT-X-MAP, EXT-X-MEDIA and EXT-X-I-FRAME-STREAM-INF.
var uriAttrRegex = regexp.MustCompile(`(?:^|[:,])\s*URI="([^"]*)"`)

// Entry is one location referenced by a manifest: either a URI line
// (segment or variant playlist) or the URI attribute of a tag.
type Entry struct {
	// Location is the URI as written. Assigning it rewrites the reference
	// when the playlist is encoded.
	Location string

	// Tag is the tag that owns the reference without its leading '#':
	// the tag itself for URI attributes, or the most recent EXTINF /
	// EXT-X-STREAM-INF for URI lines. Empty when a URI line has no tag.
	Tag string

	// Attributes holds the owning tag's attribute list.
	Attributes map[string]string

	// Duration is the EXTINF duration in seconds for segment URIs.
	Duration float64

	line       int
	start, end int
}

// Playlist is a parsed manifest that keeps every source line so that
// unknown tags, comments and blank lines survive re-encoding.
type Playlist struct {
	Entries []*Entry

	lines []string
}

// Parse decodes a manifest. The first non-empty line must be the #EXTM3U
// header.
func Parse(data []byte) (*Playlist, error) {
	lines := strings.Split(string(data), "\n")

	p := &Playlist{lines: lines}

	headerSeen := false
	var pendingTag string
	var pendingAttrs map[string]string
	var pendingDuration float64

	for i, raw := range lines {
		line := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		if line == "" {
			continue
		}

		if !headerSeen {
			if !strings.HasPrefix(line, headerTag) {
				return nil, fmt.Errorf("%w: first line is %q", domain.ErrManifestFormat, truncate(line, 40))
			}
			headerSeen = true
			continue
		}

		if strings.HasPrefix(line, "#") {
			if !strings.HasPrefix(line, "#EXT") {
				continue
			}
			name, value := splitTag(line)

			switch name {
			case "EXTINF":
				pendingTag = name
				pendingDuration = parseDuration(value)
			case "EXT-X-STREAM-INF":
				pendingTag = name
				pendingAttrs = ParseAttributes(value)
			}

			for _, m := range uriAttrRegex.FindAllStringSubmatchIndex(raw, -1) {
				p.Entries = append(p.Entries, &Entry{
					Location:   raw[m[2]:m[3]],
					Tag:        name,
					Attributes: ParseAttributes(value),
					line:       i,
					start:      m[2],
					end:        m[3],
				})
			}
			continue
		}

		start := strings.Index(raw, line)
		p.Entries = append(p.Entries, &Entry{
			Location:   line,
			Tag:        pendingTag,
			Attributes: pendingAttrs,
			Duration:   pendingDuration,
			line:       i,
			start:      start,
			end:        start + len(line),
		})
		pendingTag, pendingAttrs, pendingDuration = "", nil, 0
	}

	if !headerSeen {
		return nil, fmt.Errorf("%w: empty manifest", domain.ErrManifestFormat)
	}
	return p, nil
}

// Encode serializes the playlist. Lines without entries are emitted
// verbatim; entry spans are replaced with the current Location.
func (p *Playlist) Encode() []byte {
	byLine := make(map[int][]*Entry)
	for _, e := range p.Entries {
		byLine[e.line] = append(byLine[e.line], e)
	}

	var b strings.Builder
	for i, raw := range p.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		entries := byLine[i]
		if len(entries) == 0 {
			b.WriteString(raw)
			continue
		}
		// Entries on one line are appended in source order.
		pos := 0
		for _, e := range entries {
			b.WriteString(raw[pos:e.start])
			b.WriteString(e.Location)
			pos = e.end
		}
		b.WriteString(raw[pos:])
	}
	return []byte(b.String())
}

// ParseAttributes parses an HLS attribute list such as
// BANDWIDTH=1280000,CODECS="avc1.4d401f,mp4a.40.2". Quoted values keep
// their commas and lose their quotes.
func ParseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	for len(s) > 0 {
		eq := strings.IndexByte(s, '=')
		if eq < 0 {
			break
		}
		key := strings.TrimSpace(s[:eq])
		s = s[eq+1:]

		var value string
		if strings.HasPrefix(s, `"`) {
			end := strings.IndexByte(s[1:], '"')
			if end < 0 {
				value, s = s[1:], ""
			} else {
				value, s = s[1:end+1], s[end+2:]
			}
			if comma := strings.IndexByte(s, ','); comma >= 0 {
				s = s[comma+1:]
			} else {
				s = ""
			}
		} else if comma := strings.IndexByte(s, ','); comma >= 0 {
			value, s = s[:comma], s[comma+1:]
		} else {
			value, s = s, ""
		}

		if key != "" {
			attrs[key] = strings.TrimSpace(value)
		}
	}
	return attrs
}

func splitTag(line string) (name, value string) {
	line = strings.TrimPrefix(line, "#")
	if i := strings.IndexByte(line, ':'); i >= 0 {
		return line[:i], line[i+1:]
	}
	return line, ""
}

func parseDuration(value string) float64 {
	if i := strings.IndexByte(value, ','); i >= 0 {
		value = value[:i]
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return d
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
