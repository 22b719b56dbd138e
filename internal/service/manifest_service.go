package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/inthistweet/internal/config"
	"github.com/iconidentify/inthistweet/internal/domain"
	"github.com/iconidentify/inthistweet/internal/metrics"
	"github.com/iconidentify/inthistweet/pkg/hls"
)

// ManifestService mirrors and inspects remote HLS manifests.
type ManifestService struct {
	fetcher hls.Fetcher
	opts    hls.Options
	logger  *slog.Logger
}

// NewManifestService creates a manifest service.
func NewManifestService(fetcher hls.Fetcher, cfg config.TraversalConfig, logger *slog.Logger) *ManifestService {
	return &ManifestService{
		fetcher: fetcher,
		opts: hls.Options{
			BatchSize: cfg.BatchSize,
			Timeout:   cfg.Timeout,
		},
		logger: logger,
	}
}

// MirrorResult is a mirrored manifest graph.
type MirrorResult struct {
	URL      string
	RootKey  string
	Summary  *hls.Summary
	Files    hls.FileMap
	Keys     []string
	Failed   []string
	TimedOut bool
	Elapsed  time.Duration
}

// FileEntry is one mirrored file and its size.
type FileEntry struct {
	Key  string `json:"key"`
	Size int    `json:"size"`
}

// Entries lists the mirrored files in insertion order, root last.
func (r *MirrorResult) Entries() []FileEntry {
	entries := make([]FileEntry, 0, len(r.Keys))
	for _, k := range r.Keys {
		entries = append(entries, FileEntry{Key: k, Size: len(r.Files[k])})
	}
	return entries
}

// Mirror fetches the manifest at rawURL and everything it references.
// A traversal that times out still returns the files fetched so far.
func (s *ManifestService) Mirror(ctx context.Context, rawURL string) (*MirrorResult, error) {
	if err := validateRemoteURL(rawURL); err != nil {
		return nil, err
	}

	logger := s.logger.With("url", rawURL)
	start := time.Now()

	root, err := s.fetcher.FetchBytes(ctx, rawURL)
	if err != nil {
		metrics.ManifestFiles.WithLabelValues("failed").Inc()
		metrics.Traversals.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}

	res, err := hls.NewTraverser(s.fetcher, s.opts, logger).Traverse(ctx, root, rawURL)
	if err != nil {
		metrics.Traversals.WithLabelValues("invalid").Inc()
		return nil, err
	}

	summary, err := hls.Describe(root)
	if err != nil {
		logger.Warn("failed to describe manifest", "error", err)
	}

	elapsed := time.Since(start)
	metrics.TraversalDuration.Observe(elapsed.Seconds())
	metrics.ManifestFiles.WithLabelValues("stored").Add(float64(len(res.Files)))
	metrics.ManifestFiles.WithLabelValues("failed").Add(float64(len(res.Failed)))
	metrics.Traversals.WithLabelValues(traversalOutcome(res)).Inc()

	logger.Info("mirrored manifest",
		"files", len(res.Files),
		"failed", len(res.Failed),
		"size", humanize.IBytes(uint64(res.Files.Size())),
		"timed_out", res.TimedOut,
		"elapsed", elapsed.Round(time.Millisecond),
	)

	return &MirrorResult{
		URL:      rawURL,
		RootKey:  res.RootKey,
		Summary:  summary,
		Files:    res.Files,
		Keys:     res.Keys,
		Failed:   res.Failed,
		TimedOut: res.TimedOut,
		Elapsed:  elapsed,
	}, nil
}

// Inspect fetches the manifest at rawURL and summarizes it without
// following its references.
func (s *ManifestService) Inspect(ctx context.Context, rawURL string) (*hls.Summary, error) {
	if err := validateRemoteURL(rawURL); err != nil {
		return nil, err
	}
	data, err := s.fetcher.FetchBytes(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	return hls.Describe(data)
}

func traversalOutcome(res *hls.Result) string {
	switch {
	case res.TimedOut:
		return "timeout"
	case len(res.Failed) > 0:
		return "partial"
	default:
		return "complete"
	}
}

func validateRemoteURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q is not an absolute http(s) URL", domain.ErrInvalidInput, rawURL)
	}
	return nil
}
