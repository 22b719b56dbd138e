package hls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/iconidentify/inthistweet/internal/domain"
)

// Traversal defaults.
const (
	DefaultBatchSize = 10
	DefaultTimeout   = 2 * time.Minute
)

// Fetcher retrieves the bytes behind a URL. Implementations must honor
// context cancellation.
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// FileMap holds mirrored files keyed by URLToFilePath.
type FileMap map[string][]byte

// Size returns the total number of bytes held by the map.
func (m FileMap) Size() int64 {
	var n int64
	for _, b := range m {
		n += int64(len(b))
	}
	return n
}

// Options configures a traversal.
type Options struct {
	// BatchSize bounds how many URIs are fetched concurrently. Values <= 0
	// use DefaultBatchSize.
	BatchSize int

	// Timeout bounds the whole traversal. Zero or less expires at once and
	// only the rewritten root is returned.
	Timeout time.Duration
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{BatchSize: DefaultBatchSize, Timeout: DefaultTimeout}
}

// Result is the outcome of a traversal. It is always usable, even when
// the traversal timed out or individual fetches failed.
type Result struct {
	Files    FileMap
	RootKey  string
	Keys     []string // insertion order, root last
	Failed   []string // URLs whose fetch or parse failed
	TimedOut bool
}

// Traverser mirrors a manifest graph into a FileMap.
type Traverser struct {
	fetcher Fetcher
	opts    Options
	logger  *slog.Logger
}

// NewTraverser creates a new traverser.
func NewTraverser(fetcher Fetcher, opts Options, logger *slog.Logger) *Traverser {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Traverser{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger,
	}
}

type fetchResult struct {
	data []byte
	err  error
}

// traversal is the state owned by a single Traverse call.
type traversal struct {
	*Traverser
	result *Result
	seen   map[string]struct{}
	queue  []string
}

// Traverse parses root (fetched from baseURL), fetches every referenced
// file breadth first and rewrites each manifest to reference FileMap keys.
//
// Every URI is fetched at most once, so cyclic graphs terminate. A root
// that is not a manifest fails with ErrManifestFormat; failures below the
// root are logged and that branch is not expanded. The rewritten root is
// stored last at the key of baseURL.
func (t *Traverser) Traverse(ctx context.Context, root []byte, baseURL string) (*Result, error) {
	base, err := url.Parse(baseURL)
	if err != nil || !base.IsAbs() {
		return nil, fmt.Errorf("%w: base URL %q is not absolute", domain.ErrInvalidInput, baseURL)
	}
	rootKey, err := URLToFilePath(base.String())
	if err != nil {
		return nil, err
	}

	playlist, err := Parse(root)
	if err != nil {
		return nil, fmt.Errorf("parse root manifest: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.opts.Timeout)
	defer cancel()

	tr := &traversal{
		Traverser: t,
		result:    &Result{Files: make(FileMap), RootKey: rootKey},
		seen:      map[string]struct{}{base.String(): {}},
	}
	tr.rewrite(playlist, base)

	for len(tr.queue) > 0 && ctx.Err() == nil {
		n := min(t.opts.BatchSize, len(tr.queue))
		batch := tr.queue[:n]
		tr.queue = tr.queue[n:]

		results := tr.fetchBatch(ctx, batch)

		// Post-processing is sequential so discovery order follows the
		// worklist order.
		for i, u := range batch {
			tr.process(u, results[i])
		}
	}

	if ctx.Err() != nil {
		tr.result.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
		t.logger.Warn("manifest traversal stopped early",
			"base_url", baseURL,
			"pending", len(tr.queue),
			"files", len(tr.result.Files),
			"error", ctx.Err(),
		)
	}

	tr.store(rootKey, playlist.Encode())
	return tr.result, nil
}

// rewrite points every entry of p at its FileMap key and enqueues the
// absolute URLs that have not been seen yet. Relative locations resolve
// against ref, the URL the manifest was fetched from.
func (tr *traversal) rewrite(p *Playlist, ref *url.URL) {
	for _, e := range p.Entries {
		abs, err := resolve(ref, e.Location)
		if err != nil {
			tr.logger.Debug("skipping unresolvable location", "location", e.Location, "error", err)
			continue
		}
		key, err := URLToFilePath(abs)
		if err != nil {
			tr.logger.Debug("skipping unmappable location", "location", abs, "error", err)
			continue
		}
		e.Location = key

		if _, ok := tr.seen[abs]; ok {
			continue
		}
		tr.seen[abs] = struct{}{}
		tr.queue = append(tr.queue, abs)
	}
}

func (tr *traversal) fetchBatch(ctx context.Context, batch []string) []fetchResult {
	results := make([]fetchResult, len(batch))
	var wg sync.WaitGroup
	for i, u := range batch {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			data, err := tr.fetcher.FetchBytes(ctx, u)
			results[i] = fetchResult{data: data, err: err}
		}(i, u)
	}
	wg.Wait()
	return results
}

func (tr *traversal) process(rawURL string, res fetchResult) {
	if res.err != nil {
		tr.logger.Warn("failed to fetch manifest entry", "url", rawURL, "error", res.err)
		tr.result.Failed = append(tr.result.Failed, rawURL)
		return
	}

	key, err := URLToFilePath(rawURL)
	if err != nil {
		tr.result.Failed = append(tr.result.Failed, rawURL)
		return
	}
	tr.store(key, res.data)

	u, err := url.Parse(rawURL)
	if err != nil || !IsManifestPath(u.Path) {
		return
	}

	sub, err := Parse(res.data)
	if err != nil {
		tr.logger.Warn("failed to parse sub-manifest", "url", rawURL, "error", err)
		tr.result.Failed = append(tr.result.Failed, rawURL)
		return
	}
	tr.rewrite(sub, u)
	tr.store(key, sub.Encode())
}

// store writes data under key, moving the key to the end of Keys.
func (tr *traversal) store(key string, data []byte) {
	if _, ok := tr.result.Files[key]; ok {
		for i, k := range tr.result.Keys {
			if k == key {
				tr.result.Keys = append(tr.result.Keys[:i], tr.result.Keys[i+1:]...)
				break
			}
		}
	}
	tr.result.Files[key] = data
	tr.result.Keys = append(tr.result.Keys, key)
}

// IsManifestPath reports whether a URL path names an M3U/M3U8 playlist.
func IsManifestPath(path string) bool {
	return strings.HasSuffix(path, ".m3u8") || strings.HasSuffix(path, ".m3u")
}

func resolve(ref *url.URL, location string) (string, error) {
	loc, err := url.Parse(strings.TrimSpace(location))
	if err != nil {
		return "", err
	}
	return ref.ResolveReference(loc).String(), nil
}
