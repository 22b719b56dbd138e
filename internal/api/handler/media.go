package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/iconidentify/inthistweet/internal/domain"
)

// mediaCacheControl lets browsers and CDNs keep answers for a week.
const mediaCacheControl = "public, max-age=604800"

// MediaResolver turns a tweet URL into its media items.
type MediaResolver interface {
	Resolve(ctx context.Context, rawURL string) ([]domain.MediaItem, error)
}

// MediaHandler serves tweet media lookups.
type MediaHandler struct {
	resolver MediaResolver
	logger   *slog.Logger
}

// NewMediaHandler creates a new media handler.
func NewMediaHandler(resolver MediaResolver, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{
		resolver: resolver,
		logger:   logger,
	}
}

// Resolve handles GET /api/twitter and GET /api/v1/media.
// The tweet URL is read from url, falling back to q.
func (h *MediaHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawURL := q.Get("url")
	if rawURL == "" {
		rawURL = q.Get("q")
	}
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	items, err := h.resolver.Resolve(r.Context(), rawURL)
	if err != nil {
		var apiErr *domain.RemoteAPIError
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrTweetNotFound):
			writeError(w, http.StatusNotFound, "tweet not found")
		case errors.As(err, &apiErr):
			writeError(w, http.StatusBadRequest, apiErr.Error())
		default:
			h.logger.Error("media lookup failed", "url", rawURL, "error", err)
			writeError(w, http.StatusBadGateway, "failed to fetch tweet")
		}
		return
	}

	w.Header().Set("Cache-Control", mediaCacheControl)
	writeJSON(w, http.StatusOK, items)
}
