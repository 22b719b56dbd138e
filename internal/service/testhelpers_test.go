package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/iconidentify/inthistweet/internal/domain"
	"github.com/iconidentify/inthistweet/internal/downloader"
	"github.com/iconidentify/inthistweet/pkg/ffmpeg"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockTweetFetcher serves tweets from a map and counts calls.
type mockTweetFetcher struct {
	mu     sync.Mutex
	tweets map[domain.TweetID]*domain.Tweet
	err    error
	calls  int
}

func (m *mockTweetFetcher) FetchTweet(ctx context.Context, id domain.TweetID) (*domain.Tweet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.tweets[id], nil
}

// mapFetcher serves FetchBytes from a map of URL to body.
type mapFetcher map[string]string

func (m mapFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	body, ok := m[url]
	if !ok {
		return nil, &downloader.StatusError{URL: url, StatusCode: 404}
	}
	return []byte(body), nil
}

// mockDownloader implements downloader.Downloader on top of mapFetcher.
type mockDownloader struct {
	mapFetcher
}

func (m mockDownloader) Download(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	body, err := m.FetchBytes(ctx, url)
	if err != nil {
		return nil, 0, err
	}
	return io.NopCloser(strings.NewReader(string(body))), int64(len(body)), nil
}

// mockTranscoder records requests, writes the files and produces a fixed
// output instead of running ffmpeg.
type mockTranscoder struct {
	mu       sync.Mutex
	requests []ffmpeg.Request
	err      error
	info     *ffmpeg.MediaInfo
}

func (m *mockTranscoder) Describe(ctx context.Context, path string) (*ffmpeg.MediaInfo, error) {
	if m.info == nil {
		return nil, errors.New("ffprobe not available")
	}
	return m.info, nil
}

func (m *mockTranscoder) Transcode(ctx context.Context, req ffmpeg.Request) (*ffmpeg.Output, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if err := ffmpeg.WriteFiles(req.WorkDir, req.Files); err != nil {
		return nil, err
	}
	out, err := ffmpeg.SafeJoin(req.WorkDir, req.Output)
	if err != nil {
		return nil, err
	}
	data := fmt.Sprintf("converted %s", req.Input)
	if err := os.WriteFile(out, []byte(data), 0644); err != nil {
		return nil, err
	}
	return &ffmpeg.Output{Path: out, Size: int64(len(data))}, nil
}

func photoTweet(id, url string) *domain.Tweet {
	return &domain.Tweet{
		ID: id,
		MediaDetails: []domain.MediaDetails{{
			Type:          "photo",
			MediaURLHTTPS: url,
			OriginalInfo:  domain.OriginalInfo{Width: 1200, Height: 800},
		}},
	}
}
