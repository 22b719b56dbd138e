package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/iconidentify/inthistweet/internal/domain"
	"github.com/iconidentify/inthistweet/internal/repository"
	"github.com/iconidentify/inthistweet/internal/service"
	"github.com/iconidentify/inthistweet/pkg/hls"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// withURLParam attaches a chi route parameter to the request.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

// mockJobRepository is a test implementation of repository.JobRepository.
type mockJobRepository struct {
	stats    *repository.QueueStats
	statsErr error
	jobs     map[domain.JobID]*domain.Job
}

func newMockJobRepository() *mockJobRepository {
	return &mockJobRepository{
		stats: &repository.QueueStats{},
		jobs:  make(map[domain.JobID]*domain.Job),
	}
}

func (m *mockJobRepository) Enqueue(ctx context.Context, job *domain.Job) error {
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobRepository) Dequeue(ctx context.Context) (*domain.Job, error) {
	return nil, domain.ErrNoJobs
}

func (m *mockJobRepository) Update(ctx context.Context, job *domain.Job) error {
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobRepository) Get(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	if job, ok := m.jobs[id]; ok {
		return job, nil
	}
	return nil, domain.ErrJobNotFound
}

func (m *mockJobRepository) List(ctx context.Context) ([]*domain.Job, error) {
	jobs := make([]*domain.Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	return jobs, nil
}

func (m *mockJobRepository) Stats(ctx context.Context) (*repository.QueueStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return m.stats, nil
}

// mockResolver returns canned media or an error.
type mockResolver struct {
	items []domain.MediaItem
	err   error
	got   string
}

func (m *mockResolver) Resolve(ctx context.Context, rawURL string) ([]domain.MediaItem, error) {
	m.got = rawURL
	return m.items, m.err
}

// mockManifests returns a canned mirror result or summary.
type mockManifests struct {
	result  *service.MirrorResult
	summary *hls.Summary
	err     error
}

func (m *mockManifests) Mirror(ctx context.Context, rawURL string) (*service.MirrorResult, error) {
	return m.result, m.err
}

func (m *mockManifests) Inspect(ctx context.Context, rawURL string) (*hls.Summary, error) {
	return m.summary, m.err
}

// mockConvertJobs implements ConvertJobs over a mockJobRepository.
type mockConvertJobs struct {
	repo      *mockJobRepository
	submitErr error
}

func newMockConvertJobs() *mockConvertJobs {
	return &mockConvertJobs{repo: newMockJobRepository()}
}

func (m *mockConvertJobs) Submit(ctx context.Context, req domain.ConvertRequest) (*domain.Job, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	if req.Output == "" {
		req.Output = "output.mp4"
	}
	job := domain.NewJob(domain.JobID("job-1"), req)
	m.repo.Enqueue(ctx, job)
	return job, nil
}

func (m *mockConvertJobs) Get(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	return m.repo.Get(ctx, id)
}

func (m *mockConvertJobs) List(ctx context.Context) ([]*domain.Job, error) {
	return m.repo.List(ctx)
}

func (m *mockConvertJobs) Output(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	job, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, domain.ErrJobNotReady
	}
	return job, nil
}

// mockStats returns a fixed snapshot.
type mockStats struct {
	stats *service.SystemStats
}

func (m mockStats) Collect(ctx context.Context) *service.SystemStats {
	return m.stats
}
