package repository

import (
	"context"

	"github.com/iconidentify/inthistweet/internal/domain"
)

// MediaCache stores resolved media lists by tweet ID.
type MediaCache interface {
	// Get returns the cached items. found is false on a miss or expiry.
	Get(ctx context.Context, id domain.TweetID) (items []domain.MediaItem, found bool, err error)

	// Set stores items for id, replacing any previous entry.
	Set(ctx context.Context, id domain.TweetID, items []domain.MediaItem) error
}

// JobRepository manages the conversion job queue.
type JobRepository interface {
	// Enqueue adds a job to the queue.
	Enqueue(ctx context.Context, job *domain.Job) error

	// Dequeue retrieves the next queued job (FIFO).
	Dequeue(ctx context.Context) (*domain.Job, error)

	// Update modifies job state.
	Update(ctx context.Context, job *domain.Job) error

	// Get retrieves a job by ID.
	Get(ctx context.Context, id domain.JobID) (*domain.Job, error)

	// List returns all jobs, newest first.
	List(ctx context.Context) ([]*domain.Job, error)

	// Stats returns queue statistics.
	Stats(ctx context.Context) (*QueueStats, error)
}

// QueueStats contains job queue statistics.
type QueueStats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}
