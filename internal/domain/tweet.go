package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// TweetID is a unique identifier for a tweet.
type TweetID string

// String returns the string representation of the TweetID.
func (id TweetID) String() string {
	return string(id)
}

// TweetRef identifies a tweet by its author handle and status id.
// URL is the input URL with its host normalized to twitter.com.
type TweetRef struct {
	User string  `json:"user"`
	ID   TweetID `json:"id"`
	URL  string  `json:"url"`
}

// Tweet is the syndication payload for a tweet. Quoted and parent tweets
// share the same shape and nest recursively.
type Tweet struct {
	ID           string         `json:"id_str,omitempty"`
	Text         string         `json:"text,omitempty"`
	CreatedAt    string         `json:"created_at,omitempty"`
	User         *TweetUser     `json:"user,omitempty"`
	MediaDetails []MediaDetails `json:"mediaDetails,omitempty"`
	QuotedTweet  *Tweet         `json:"quoted_tweet,omitempty"`
	Parent       *Tweet         `json:"parent,omitempty"`
	Card         *TwitterCard   `json:"card,omitempty"`
}

// TweetUser is the subset of author fields kept from the payload.
type TweetUser struct {
	ID         string `json:"id_str,omitempty"`
	Name       string `json:"name,omitempty"`
	ScreenName string `json:"screen_name,omitempty"`
}

// MediaDetails is one raw media attachment as returned by the syndication API.
type MediaDetails struct {
	Type          string       `json:"type"`
	MediaURLHTTPS string       `json:"media_url_https"`
	ExtAltText    string       `json:"ext_alt_text,omitempty"`
	OriginalInfo  OriginalInfo `json:"original_info"`
	VideoInfo     *VideoInfo   `json:"video_info,omitempty"`
}

// OriginalInfo holds the declared dimensions of a photo.
type OriginalInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// VideoInfo describes the renditions of a video or animated GIF.
type VideoInfo struct {
	AspectRatio    []int          `json:"aspect_ratio"`
	DurationMillis int            `json:"duration_millis,omitempty"`
	Variants       []VideoVariant `json:"variants"`
}

// VideoVariant is one raw rendition. Bitrate is absent for HLS manifests.
type VideoVariant struct {
	Bitrate     *int64 `json:"bitrate,omitempty"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

// AspectRatioString joins the declared aspect ratio as "W:H".
func (v *VideoInfo) AspectRatioString() string {
	if v == nil {
		return ""
	}
	parts := make([]string, len(v.AspectRatio))
	for i, n := range v.AspectRatio {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ":")
}

// TwitterCard is a card attached to a tweet.
type TwitterCard struct {
	Name          string        `json:"name,omitempty"`
	URL           string        `json:"url,omitempty"`
	BindingValues BindingValues `json:"binding_values"`
}

// UnifiedCardKey is the binding that carries a JSON encoded unified card.
const UnifiedCardKey = "unified_card"

// BindingValue is a tagged union; exactly one of the value fields is
// expected to be set.
type BindingValue struct {
	Type            string          `json:"type,omitempty"`
	StringValue     *string         `json:"string_value,omitempty"`
	ImageValue      *ImageValue     `json:"image_value,omitempty"`
	ImageColorValue json.RawMessage `json:"image_color_value,omitempty"`
	UserValue       *UserValue      `json:"user_value,omitempty"`
	ScribeKey       string          `json:"scribe_key,omitempty"`
}

// ImageValue is an image binding.
type ImageValue struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// UserValue references a user from a card binding.
type UserValue struct {
	IDStr string `json:"id_str"`
}

// BindingEntry is one key/value pair of a card's binding values.
type BindingEntry struct {
	Key   string
	Value BindingValue
}

// BindingValues keeps card bindings in document order.
type BindingValues []BindingEntry

// Get returns the binding stored under key.
func (b BindingValues) Get(key string) (BindingValue, bool) {
	for _, e := range b {
		if e.Key == key {
			return e.Value, true
		}
	}
	return BindingValue{}, false
}

// UnmarshalJSON decodes bindings in document order. Values that do not
// match the binding shape are dropped rather than failing the tweet.
func (b *BindingValues) UnmarshalJSON(data []byte) error {
	var out BindingValues
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		var v BindingValue
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil
		}
		out = append(out, BindingEntry{Key: key, Value: v})
		return nil
	})
	if err != nil {
		*b = nil
		return nil
	}
	*b = out
	return nil
}

// MarshalJSON encodes bindings back into an object, preserving order.
func (b BindingValues) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnifiedCardData is the decoded payload of a unified_card binding.
type UnifiedCardData struct {
	Type             string                  `json:"type,omitempty"`
	ComponentObjects ComponentObjects        `json:"component_objects,omitempty"`
	MediaEntities    map[string]MediaDetails `json:"-"`
}

// UnmarshalJSON decodes a unified card, skipping media entities that do not
// have the media shape.
func (u *UnifiedCardData) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type             string                     `json:"type"`
		ComponentObjects ComponentObjects           `json:"component_objects"`
		MediaEntities    map[string]json.RawMessage `json:"media_entities"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	u.Type = raw.Type
	u.ComponentObjects = raw.ComponentObjects
	u.MediaEntities = make(map[string]MediaDetails, len(raw.MediaEntities))
	for id, msg := range raw.MediaEntities {
		var m MediaDetails
		if err := json.Unmarshal(msg, &m); err != nil {
			continue
		}
		u.MediaEntities[id] = m
	}
	return nil
}

// ComponentObject is one component of a unified card.
type ComponentObject struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MediaID returns data.id for media components, or "" when absent.
func (c ComponentObject) MediaID() string {
	if len(c.Data) == 0 {
		return ""
	}
	var data struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(c.Data, &data); err != nil || len(data.ID) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data.ID, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(data.ID, &n); err == nil {
		return n.String()
	}
	return ""
}

// ComponentEntry is one keyed component of a unified card.
type ComponentEntry struct {
	Key    string
	Object ComponentObject
}

// ComponentObjects keeps unified card components in document order.
type ComponentObjects []ComponentEntry

// UnmarshalJSON decodes components in document order, dropping malformed ones.
func (c *ComponentObjects) UnmarshalJSON(data []byte) error {
	var out ComponentObjects
	err := decodeObject(data, func(key string, raw json.RawMessage) error {
		var obj ComponentObject
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil
		}
		out = append(out, ComponentEntry{Key: key, Object: obj})
		return nil
	})
	if err != nil {
		*c = nil
		return nil
	}
	*c = out
	return nil
}

// decodeObject walks the members of a JSON object in document order.
// A JSON null is treated as an empty object.
func decodeObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}
	_, err = dec.Token()
	return err
}
