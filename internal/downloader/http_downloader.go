package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/inthistweet/internal/config"
)

var (
	// ErrBodyTooLarge is returned when a response exceeds the configured limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")

	// ErrStalled is returned by Download readers when no data arrives for
	// the configured stall timeout.
	ErrStalled = errors.New("download stalled")
)

// HTTPDownloader implements Downloader using HTTP requests. Requests are
// never retried.
type HTTPDownloader struct {
	// client is used for short requests (FetchBytes) with overall timeout
	client *http.Client
	// streamClient is used for streaming downloads without overall timeout
	streamClient *http.Client
	userAgent    string
	cfg          config.DownloadConfig
	logger       *slog.Logger
}

// NewHTTPDownloader creates a new HTTP downloader.
func NewHTTPDownloader(cfg config.DownloadConfig, logger *slog.Logger) *HTTPDownloader {
	if logger == nil {
		logger = slog.Default()
	}

	streamTransport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	return &HTTPDownloader{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		streamClient: &http.Client{
			Transport: streamTransport,
		},
		userAgent: cfg.UserAgent,
		cfg:       cfg,
		logger:    logger,
	}
}

// FetchBytes reads the whole body of url. Bodies larger than the configured
// maximum fail with ErrBodyTooLarge.
func (d *HTTPDownloader) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := d.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	limit := d.cfg.MaxBodySize
	if limit <= 0 {
		return io.ReadAll(resp.Body)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s > %s", ErrBodyTooLarge, url, humanize.IBytes(uint64(limit)))
	}
	return data, nil
}

// Download streams url. The returned reader fails with ErrStalled if no
// data arrives for the configured stall timeout.
func (d *HTTPDownloader) Download(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := d.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		cancel()
		return nil, 0, err
	}

	// Use streamClient for downloads (no overall timeout)
	resp, err := d.streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, 0, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		return nil, 0, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	size := resp.ContentLength
	if size < 0 {
		if cl := resp.Header.Get("Content-Length"); cl != "" {
			if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
				size = n
			}
		}
	}

	return newProgressReader(resp.Body, size, d.cfg.StallTimeout, cancel, d.logger, url), size, nil
}

func (d *HTTPDownloader) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	req.Header.Set("Accept", "*/*")
	return req, nil
}

// progressReader wraps an io.ReadCloser to track download progress and
// detect stalls. A timer cancels the request context when no data arrives
// for readTimeout, which unblocks a Read waiting on the network.
type progressReader struct {
	reader      io.ReadCloser
	total       int64
	downloaded  int64
	readTimeout time.Duration
	stall       *time.Timer
	stalled     atomic.Bool
	cancel      context.CancelFunc
	lastLog     time.Time
	logger      *slog.Logger
	url         string
	mu          sync.Mutex
	closed      bool
}

func newProgressReader(r io.ReadCloser, total int64, readTimeout time.Duration, cancel context.CancelFunc, logger *slog.Logger, url string) *progressReader {
	p := &progressReader{
		reader:      r,
		total:       total,
		readTimeout: readTimeout,
		cancel:      cancel,
		lastLog:     time.Now(),
		logger:      logger,
		url:         url,
	}
	if readTimeout > 0 {
		p.stall = time.AfterFunc(readTimeout, func() {
			p.stalled.Store(true)
			p.cancel()
		})
	}
	return p
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.reader.Read(buf)

	p.mu.Lock()
	defer p.mu.Unlock()

	if n > 0 {
		p.downloaded += int64(n)
		if p.stall != nil && !p.stalled.Load() {
			p.stall.Reset(p.readTimeout)
		}

		if time.Since(p.lastLog) > 30*time.Second {
			p.logProgress()
			p.lastLog = time.Now()
		}
	}

	if err != nil && err != io.EOF && p.stalled.Load() {
		return n, fmt.Errorf("%w: no data received for %v", ErrStalled, p.readTimeout)
	}
	return n, err
}

func (p *progressReader) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.stall != nil {
		p.stall.Stop()
	}

	if p.downloaded > 0 {
		p.logProgress()
	}
	p.mu.Unlock()

	err := p.reader.Close()
	p.cancel()
	return err
}

func (p *progressReader) logProgress() {
	if p.total > 0 {
		pct := float64(p.downloaded) / float64(p.total) * 100
		p.logger.Debug("download progress",
			"url", p.url,
			"downloaded", humanize.IBytes(uint64(p.downloaded)),
			"total", humanize.IBytes(uint64(p.total)),
			"percent", fmt.Sprintf("%.1f%%", pct),
		)
	} else {
		p.logger.Debug("download progress",
			"url", p.url,
			"downloaded", humanize.IBytes(uint64(p.downloaded)),
		)
	}
}
