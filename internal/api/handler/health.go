package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iconidentify/inthistweet/internal/repository"
	"github.com/iconidentify/inthistweet/internal/service"
)

// StatsCollector produces a snapshot of process statistics.
type StatsCollector interface {
	Collect(ctx context.Context) *service.SystemStats
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	jobRepo repository.JobRepository
	stats   StatsCollector
}

// NewHealthHandler creates a new health handler. jobRepo may be nil when
// conversion is disabled.
func NewHealthHandler(jobRepo repository.JobRepository, stats StatsCollector) *HealthHandler {
	return &HealthHandler{
		jobRepo: jobRepo,
		stats:   stats,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Queue     *repository.QueueStats `json:"queue,omitempty"`
}

func newHealthResponse(status string) HealthResponse {
	return HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newHealthResponse("ok"))
}

// Ready handles GET /ready - readiness probe.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := newHealthResponse("ok")
	if h.jobRepo != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		stats, err := h.jobRepo.Stats(ctx)
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, newHealthResponse("error"))
			return
		}
		resp.Queue = stats
	}
	writeJSON(w, http.StatusOK, resp)
}

// Stats handles GET /api/v1/stats - system statistics.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Collect(r.Context()))
}
