package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/inthistweet/internal/domain"
	"github.com/iconidentify/inthistweet/pkg/ffmpeg"
)

// ConvertJobs submits and tracks ffmpeg conversion jobs.
type ConvertJobs interface {
	Submit(ctx context.Context, req domain.ConvertRequest) (*domain.Job, error)
	Get(ctx context.Context, id domain.JobID) (*domain.Job, error)
	List(ctx context.Context) ([]*domain.Job, error)
	Output(ctx context.Context, id domain.JobID) (*domain.Job, error)
}

// ConvertHandler handles conversion job requests.
type ConvertHandler struct {
	jobs   ConvertJobs
	logger *slog.Logger
}

// NewConvertHandler creates a new convert handler.
func NewConvertHandler(jobs ConvertJobs, logger *slog.Logger) *ConvertHandler {
	return &ConvertHandler{
		jobs:   jobs,
		logger: logger,
	}
}

// JobResponse represents a job in submit/get/list responses.
type JobResponse struct {
	JobID       string    `json:"job_id"`
	Status      string    `json:"status"`
	URL         string    `json:"url"`
	Output      string    `json:"output"`
	OutputSize  int64     `json:"output_size,omitempty"`
	OutputHuman string    `json:"output_human,omitempty"`
	OutputURL   string    `json:"output_url,omitempty"`
	OutputKind  string    `json:"output_kind,omitempty"`
	MediaType   string    `json:"media_type,omitempty"`
	FileCount   int       `json:"file_count,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	*domain.OutputInfo
}

// JobListResponse contains all known jobs, newest first.
type JobListResponse struct {
	Jobs  []JobResponse `json:"jobs"`
	Total int           `json:"total"`
}

func toJobResponse(job *domain.Job) JobResponse {
	resp := JobResponse{
		JobID:     job.ID.String(),
		Status:    string(job.Status),
		URL:       job.Request.InputURL,
		Output:    job.Request.Output,
		MediaType: job.Request.MediaType,
		FileCount: job.FileCount,
		Error:     job.LastError,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if job.Status == domain.JobStatusCompleted {
		resp.OutputSize = job.OutputSize
		resp.OutputHuman = humanize.Bytes(uint64(job.OutputSize))
		resp.OutputURL = fmt.Sprintf("/api/v1/convert/%s/output", job.ID)
		resp.OutputKind = ffmpeg.OutputKind(job.Request.MediaType)
		resp.OutputInfo = job.OutputInfo
	}
	return resp
}

// Submit handles POST /api/v1/convert
func (h *ConvertHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req domain.ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.InputURL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	job, err := h.jobs.Submit(r.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrEmptyArgs) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("submit failed", "url", req.InputURL, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to submit job")
		return
	}

	writeJSON(w, http.StatusAccepted, toJobResponse(job))
}

// List handles GET /api/v1/convert
func (h *ConvertHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.List(r.Context())
	if err != nil {
		h.logger.Error("list jobs failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	resp := JobListResponse{Jobs: make([]JobResponse, 0, len(jobs)), Total: len(jobs)}
	for _, job := range jobs {
		resp.Jobs = append(resp.Jobs, toJobResponse(job))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/convert/{jobID}
func (h *ConvertHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := domain.JobID(chi.URLParam(r, "jobID"))

	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		h.writeJobError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, toJobResponse(job))
}

// Output handles GET /api/v1/convert/{jobID}/output
func (h *ConvertHandler) Output(w http.ResponseWriter, r *http.Request) {
	id := domain.JobID(chi.URLParam(r, "jobID"))

	job, err := h.jobs.Output(r.Context(), id)
	if err != nil {
		h.writeJobError(w, id, err)
		return
	}

	if job.Request.MediaType != "" {
		w.Header().Set("Content-Type", job.Request.MediaType)
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(job.OutputPath)))
	http.ServeFile(w, r, job.OutputPath)
}

func (h *ConvertHandler) writeJobError(w http.ResponseWriter, id domain.JobID, err error) {
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, domain.ErrJobNotReady):
		writeError(w, http.StatusConflict, "job output not ready")
	default:
		h.logger.Error("job lookup failed", "job_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get job")
	}
}
