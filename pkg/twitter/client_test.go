package twitter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iconidentify/inthistweet/internal/config"
	"github.com/iconidentify/inthistweet/internal/domain"
)

func newTestClient(baseURL string) *Client {
	return NewClient(config.TwitterConfig{
		SyndicationURL: baseURL,
		Timeout:        5 * time.Second,
		UserAgent:      "inthistweet-test",
	}, testLogger())
}

func TestParseTweetURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantUser string
		wantID   domain.TweetID
		wantURL  string
		wantErr  bool
	}{
		{
			name:     "twitter.com",
			url:      "https://twitter.com/jack/status/20",
			wantUser: "jack",
			wantID:   "20",
			wantURL:  "https://twitter.com/jack/status/20",
		},
		{
			name:     "x.com normalized",
			url:      "https://x.com/NASA/status/1790000000000000000",
			wantUser: "NASA",
			wantID:   "1790000000000000000",
			wantURL:  "https://twitter.com/NASA/status/1790000000000000000",
		},
		{
			name:     "mobile subdomain with trailing segments",
			url:      "https://mobile.twitter.com/user/status/123/photo/1?s=20",
			wantUser: "user",
			wantID:   "123",
			wantURL:  "https://twitter.com/user/status/123/photo/1?s=20",
		},
		{
			name:     "fxtwitter",
			url:      "http://fxtwitter.com/a/status/9",
			wantUser: "a",
			wantID:   "9",
			wantURL:  "http://twitter.com/a/status/9",
		},
		{name: "not a url", url: "::nope", wantErr: true},
		{name: "relative", url: "/jack/status/20", wantErr: true},
		{name: "ftp scheme", url: "ftp://twitter.com/jack/status/20", wantErr: true},
		{name: "other host", url: "https://example.com/jack/status/20", wantErr: true},
		{name: "profile url", url: "https://twitter.com/jack", wantErr: true},
		{name: "missing id", url: "https://twitter.com/jack/status/", wantErr: true},
		{name: "case sensitive host", url: "https://TWITTER.COM/jack/status/20", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseTweetURL(tt.url)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidInput) {
					t.Errorf("ParseTweetURL(%q) error = %v, want ErrInvalidInput", tt.url, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseTweetURL(%q) unexpected error: %v", tt.url, err)
			}
			if ref.User != tt.wantUser || ref.ID != tt.wantID || ref.URL != tt.wantURL {
				t.Errorf("ParseTweetURL(%q) = %+v", tt.url, ref)
			}
		})
	}
}

func TestFetchEmbeddedTweet_Success(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tweet-result" {
			t.Errorf("path = %q, want /tweet-result", r.URL.Path)
		}
		q := r.URL.Query()
		gotQuery = map[string]string{
			"id":       q.Get("id"),
			"lang":     q.Get("lang"),
			"token":    q.Get("token"),
			"features": q.Get("features"),
		}
		if ua := r.Header.Get("User-Agent"); ua != "inthistweet-test" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(`{"id_str":"20","text":"just setting up my twttr","mediaDetails":[{"type":"photo","media_url_https":"https://pbs.twimg.com/a.jpg"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	tweet, err := client.FetchEmbeddedTweet(context.Background(), "https://x.com/jack/status/20")
	if err != nil {
		t.Fatalf("FetchEmbeddedTweet failed: %v", err)
	}
	if tweet == nil || tweet.ID != "20" || len(tweet.MediaDetails) != 1 {
		t.Fatalf("unexpected tweet %+v", tweet)
	}

	if gotQuery["id"] != "20" || gotQuery["lang"] != "en" || gotQuery["token"] != "5" {
		t.Errorf("unexpected query %+v", gotQuery)
	}
	if !strings.Contains(gotQuery["features"], "tfw_tweet_edit_backend:on") {
		t.Errorf("features flag missing: %q", gotQuery["features"])
	}
}

func TestFetchEmbeddedTweet_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	tweet, err := newTestClient(server.URL).FetchEmbeddedTweet(context.Background(), "https://twitter.com/a/status/1")
	if err != nil {
		t.Fatalf("404 should not be an error, got %v", err)
	}
	if tweet != nil {
		t.Errorf("expected nil tweet, got %+v", tweet)
	}
}

func TestFetchEmbeddedTweet_NonJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html></html>`))
	}))
	defer server.Close()

	tweet, err := newTestClient(server.URL).FetchEmbeddedTweet(context.Background(), "https://twitter.com/a/status/1")
	if err != nil || tweet != nil {
		t.Errorf("expected nil, nil; got %+v, %v", tweet, err)
	}
}

func TestFetchEmbeddedTweet_RemoteError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantMsg     string
	}{
		{
			name:        "json error message",
			status:      http.StatusTooManyRequests,
			contentType: "application/json",
			body:        `{"error":"Rate limit exceeded"}`,
			wantMsg:     "Rate limit exceeded",
		},
		{
			name:        "json without message",
			status:      http.StatusBadRequest,
			contentType: "application/json",
			body:        `{"errors":[]}`,
			wantMsg:     "Bad request.",
		},
		{
			name:        "plain text",
			status:      http.StatusInternalServerError,
			contentType: "text/plain",
			body:        "oops",
			wantMsg:     "Bad request.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).FetchEmbeddedTweet(context.Background(), "https://twitter.com/a/status/1")

			var apiErr *domain.RemoteAPIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected RemoteAPIError, got %v", err)
			}
			if apiErr.Status != tt.status {
				t.Errorf("Status = %d, want %d", apiErr.Status, tt.status)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
			if string(apiErr.Body) != tt.body {
				t.Errorf("Body = %q, want %q", apiErr.Body, tt.body)
			}
		})
	}
}

func TestFetchEmbeddedTweet_InvalidURLMakesNoRequest(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchEmbeddedTweet(context.Background(), "https://example.com/a/status/1")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if called {
		t.Error("no request should be made for an invalid URL")
	}
}

func TestFetchTweet_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTestClient(server.URL).FetchTweet(ctx, "1"); err == nil {
		t.Error("expected error for canceled context")
	}
}
