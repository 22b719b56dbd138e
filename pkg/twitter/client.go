package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/iconidentify/inthistweet/internal/config"
	"github.com/iconidentify/inthistweet/internal/domain"
)

// DefaultSyndicationURL is the public embed API used by tweet embeds.
const DefaultSyndicationURL = "https://cdn.syndication.twimg.com"

const maxResponseSize = 10 << 20

var (
	// Hosts are matched as substrings of the URL hostname.
	twitterHostRegex = regexp.MustCompile(`(ads-twitter\.com|periscope\.tv|pscp\.tv|t\.co|tweetdeck\.com|twimg\.com|twitpic\.com|twitter\.co|twitter\.com|twitterinc\.com|twitteroauth\.com|twitterstat\.us|twttr\.com|x\.com|fixupx\.com|fxtwitter\.com)`)

	statusPathRegex = regexp.MustCompile(`^/([^/]+)/status/([^/]+)(?:/.*)?$`)

	embedFeatures = strings.Join([]string{
		"tfw_timeline_list:",
		"tfw_follower_count_sunset:true",
		"tfw_tweet_edit_backend:on",
		"tfw_refsrc_session:on",
		"tfw_show_business_verified_badge:on",
		"tfw_duplicate_scribes_to_settings:on",
		"tfw_show_blue_verified_badge:on",
		"tfw_legacy_timeline_sunset:true",
		"tfw_show_gov_verified_badge:on",
		"tfw_show_business_affiliate_badge:on",
		"tfw_tweet_edit_frontend:on",
	}, ";")
)

// Client fetches tweet payloads from the syndication API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	lang       string
	token      string
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates a new syndication client.
func NewClient(cfg config.TwitterConfig, logger *slog.Logger) *Client {
	if cfg.SyndicationURL == "" {
		cfg.SyndicationURL = DefaultSyndicationURL
	}
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	if cfg.Token == "" {
		cfg.Token = "5"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   strings.TrimRight(cfg.SyndicationURL, "/"),
		lang:      cfg.Lang,
		token:     cfg.Token,
		userAgent: cfg.UserAgent,
		logger:    logger,
	}
}

// ParseTweetURL validates a tweet URL and extracts the author handle and
// status id. Any Twitter/X family host is accepted.
func ParseTweetURL(rawURL string) (domain.TweetRef, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return domain.TweetRef{}, fmt.Errorf("%w: %q is not a URL", domain.ErrInvalidInput, rawURL)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return domain.TweetRef{}, fmt.Errorf("%w: %q is not an absolute http(s) URL", domain.ErrInvalidInput, rawURL)
	}
	if !twitterHostRegex.MatchString(u.Hostname()) {
		return domain.TweetRef{}, fmt.Errorf("%w: %q is not a twitter url", domain.ErrInvalidInput, rawURL)
	}

	// All supported hosts share twitter.com's path layout.
	u.Host = "twitter.com"

	m := statusPathRegex.FindStringSubmatch(u.Path)
	if m == nil {
		return domain.TweetRef{}, fmt.Errorf("%w: %q is not a tweet status url", domain.ErrInvalidInput, rawURL)
	}

	return domain.TweetRef{User: m[1], ID: domain.TweetID(m[2]), URL: u.String()}, nil
}

// FetchEmbeddedTweet retrieves the syndication payload for a tweet URL.
// It returns nil without error when the tweet does not exist or the API
// answers with something other than JSON.
func (c *Client) FetchEmbeddedTweet(ctx context.Context, tweetURL string) (*domain.Tweet, error) {
	ref, err := ParseTweetURL(tweetURL)
	if err != nil {
		return nil, err
	}
	return c.FetchTweet(ctx, ref.ID)
}

// FetchTweet retrieves the syndication payload for a tweet id.
func (c *Client) FetchTweet(ctx context.Context, id domain.TweetID) (*domain.Tweet, error) {
	endpoint := c.endpoint(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	isJSON := strings.Contains(resp.Header.Get("Content-Type"), "application/json")
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300

	switch {
	case ok && isJSON:
		var tweet domain.Tweet
		if err := json.NewDecoder(bytes.NewReader(body)).Decode(&tweet); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
		return &tweet, nil
	case ok:
		c.logger.Debug("syndication response is not JSON",
			"tweet_id", id,
			"content_type", resp.Header.Get("Content-Type"),
		)
		return nil, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	}

	return nil, &domain.RemoteAPIError{
		Status:  resp.StatusCode,
		Message: apiErrorMessage(body, isJSON),
		Body:    body,
	}
}

func (c *Client) endpoint(id domain.TweetID) string {
	q := url.Values{}
	q.Set("id", id.String())
	q.Set("lang", c.lang)
	q.Set("token", c.token)
	q.Set("features", embedFeatures)
	return c.baseURL + "/tweet-result?" + q.Encode()
}

func apiErrorMessage(body []byte, isJSON bool) string {
	if isJSON {
		var data struct {
			Error any `json:"error"`
		}
		if err := json.Unmarshal(body, &data); err == nil {
			if s, ok := data.Error.(string); ok {
				return s
			}
		}
	}
	return "Bad request."
}
