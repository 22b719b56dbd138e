package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iconidentify/inthistweet/internal/api/handler"
	"github.com/iconidentify/inthistweet/internal/domain"
	"github.com/iconidentify/inthistweet/internal/service"
	"github.com/iconidentify/inthistweet/pkg/hls"
)

type stubResolver struct{}

func (stubResolver) Resolve(ctx context.Context, rawURL string) ([]domain.MediaItem, error) {
	return []domain.MediaItem{}, nil
}

type stubManifests struct{}

func (stubManifests) Mirror(ctx context.Context, rawURL string) (*service.MirrorResult, error) {
	return &service.MirrorResult{}, nil
}

func (stubManifests) Inspect(ctx context.Context, rawURL string) (*hls.Summary, error) {
	return &hls.Summary{Kind: "media"}, nil
}

type stubStats struct{}

func (stubStats) Collect(ctx context.Context) *service.SystemStats {
	return &service.SystemStats{}
}

func newTestRouter(apiKey string) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(Handlers{
		Media:    handler.NewMediaHandler(stubResolver{}, logger),
		Manifest: handler.NewManifestHandler(stubManifests{}, logger),
		Health:   handler.NewHealthHandler(nil, stubStats{}),
		UI:       handler.NewUIHandler(),
	}, apiKey, time.Minute, logger)
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter("secret")

	tests := []struct {
		name       string
		method     string
		target     string
		key        string
		wantStatus int
	}{
		{"ui", http.MethodGet, "/", "", http.StatusOK},
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"double slash cleaned", http.MethodGet, "//ready", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
		{"public twitter endpoint", http.MethodGet, "/api/twitter?url=https://x.com/a/status/1", "", http.StatusOK},
		{"v1 requires key", http.MethodGet, "/api/v1/media?url=https://x.com/a/status/1", "", http.StatusUnauthorized},
		{"v1 with key", http.MethodGet, "/api/v1/media?url=https://x.com/a/status/1", "secret", http.StatusOK},
		{"stats", http.MethodGet, "/api/v1/stats", "secret", http.StatusOK},
		{"inspect", http.MethodGet, "/api/v1/manifests/inspect?url=https://a/m.m3u8", "secret", http.StatusOK},
		{"convert disabled", http.MethodPost, "/api/v1/convert", "secret", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader("{}"))
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("%s %s status = %d, want %d", tt.method, tt.target, w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRouter_NoAPIKey(t *testing.T) {
	router := newTestRouter("")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d with auth disabled", w.Code, http.StatusOK)
	}
}
