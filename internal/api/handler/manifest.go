package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/inthistweet/internal/domain"
	"github.com/iconidentify/inthistweet/internal/downloader"
	"github.com/iconidentify/inthistweet/internal/service"
	"github.com/iconidentify/inthistweet/pkg/hls"
)

// ManifestMirrorer mirrors and inspects remote HLS manifests.
type ManifestMirrorer interface {
	Mirror(ctx context.Context, rawURL string) (*service.MirrorResult, error)
	Inspect(ctx context.Context, rawURL string) (*hls.Summary, error)
}

// ManifestHandler handles manifest mirroring requests.
type ManifestHandler struct {
	manifests ManifestMirrorer
	logger    *slog.Logger
}

// NewManifestHandler creates a new manifest handler.
func NewManifestHandler(manifests ManifestMirrorer, logger *slog.Logger) *ManifestHandler {
	return &ManifestHandler{
		manifests: manifests,
		logger:    logger,
	}
}

// MirrorRequest is the JSON request body for a mirror.
type MirrorRequest struct {
	URL string `json:"url"`
}

// MirrorResponse describes the mirrored file tree. File contents are not
// returned; use the convert endpoints to work with them.
type MirrorResponse struct {
	URL        string              `json:"url"`
	RootKey    string              `json:"root_key"`
	Summary    *hls.Summary        `json:"summary,omitempty"`
	Files      []service.FileEntry `json:"files"`
	TotalBytes int                 `json:"total_bytes"`
	TotalHuman string              `json:"total_human"`
	Failed     []string            `json:"failed,omitempty"`
	TimedOut   bool                `json:"timed_out"`
	ElapsedMS  int64               `json:"elapsed_ms"`
}

// Mirror handles POST /api/v1/manifests/mirror
func (h *ManifestHandler) Mirror(w http.ResponseWriter, r *http.Request) {
	var req MirrorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	res, err := h.manifests.Mirror(r.Context(), req.URL)
	if err != nil {
		h.writeManifestError(w, req.URL, err)
		return
	}

	entries := res.Entries()
	total := 0
	for _, e := range entries {
		total += e.Size
	}

	writeJSON(w, http.StatusOK, MirrorResponse{
		URL:        res.URL,
		RootKey:    res.RootKey,
		Summary:    res.Summary,
		Files:      entries,
		TotalBytes: total,
		TotalHuman: humanize.Bytes(uint64(total)),
		Failed:     res.Failed,
		TimedOut:   res.TimedOut,
		ElapsedMS:  res.Elapsed.Milliseconds(),
	})
}

// Inspect handles GET /api/v1/manifests/inspect?url=
func (h *ManifestHandler) Inspect(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	summary, err := h.manifests.Inspect(r.Context(), rawURL)
	if err != nil {
		h.writeManifestError(w, rawURL, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *ManifestHandler) writeManifestError(w http.ResponseWriter, rawURL string, err error) {
	var statusErr *downloader.StatusError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrManifestFormat):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &statusErr):
		writeError(w, http.StatusBadGateway, statusErr.Error())
	default:
		h.logger.Error("manifest request failed", "url", rawURL, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch manifest")
	}
}
