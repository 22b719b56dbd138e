package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// Downloader fetches remote manifests, segments and conversion inputs.
type Downloader interface {
	// FetchBytes reads the whole body of url into memory.
	FetchBytes(ctx context.Context, url string) ([]byte, error)

	// Download streams url, returning the body reader and its size (-1 when
	// unknown). Caller is responsible for closing the reader.
	Download(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}
