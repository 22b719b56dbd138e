package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/iconidentify/inthistweet/internal/domain"
)

// InMemoryJobRepository implements JobRepository using in-memory storage.
// Jobs are copied on the way in and out, so callers never share state with
// the repository until they call Update.
type InMemoryJobRepository struct {
	mu    sync.RWMutex
	jobs  map[domain.JobID]*domain.Job
	queue []domain.JobID // FIFO queue of queued job IDs
}

// NewInMemoryJobRepository creates a new in-memory job repository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobs:  make(map[domain.JobID]*domain.Job),
		queue: make([]domain.JobID, 0),
	}
}

// Enqueue adds a job to the queue.
func (r *InMemoryJobRepository) Enqueue(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[job.ID] = cloneJob(job)
	r.queue = append(r.queue, job.ID)

	return nil
}

// Dequeue retrieves the next queued job (FIFO).
func (r *InMemoryJobRepository) Dequeue(ctx context.Context) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.queue) > 0 {
		jobID := r.queue[0]
		r.queue = r.queue[1:]

		job, ok := r.jobs[jobID]
		if ok && job.Status == domain.JobStatusQueued {
			return cloneJob(job), nil
		}
	}

	return nil, domain.ErrNoJobs
}

// Update modifies job state.
func (r *InMemoryJobRepository) Update(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}

	r.jobs[job.ID] = cloneJob(job)
	return nil
}

// Get retrieves a job by ID.
func (r *InMemoryJobRepository) Get(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}

	return cloneJob(job), nil
}

// List returns all jobs, newest first.
func (r *InMemoryJobRepository) List(ctx context.Context) ([]*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.Job, 0, len(r.jobs))
	for _, job := range r.jobs {
		result = append(result, cloneJob(job))
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// Stats returns queue statistics.
func (r *InMemoryJobRepository) Stats(ctx context.Context) (*QueueStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &QueueStats{}
	for _, job := range r.jobs {
		switch job.Status {
		case domain.JobStatusQueued:
			stats.Queued++
		case domain.JobStatusProcessing:
			stats.Processing++
		case domain.JobStatusCompleted:
			stats.Completed++
		case domain.JobStatusFailed:
			stats.Failed++
		}
	}

	return stats, nil
}

// Clear removes all jobs (useful for testing).
func (r *InMemoryJobRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs = make(map[domain.JobID]*domain.Job)
	r.queue = make([]domain.JobID, 0)
}

func cloneJob(job *domain.Job) *domain.Job {
	c := *job
	c.Request.Args = append([]string(nil), job.Request.Args...)
	c.Request.ForceArgs = append([]string(nil), job.Request.ForceArgs...)
	if job.OutputInfo != nil {
		info := *job.OutputInfo
		c.OutputInfo = &info
	}
	return &c
}
