package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/iconidentify/inthistweet/internal/domain"
)

func newTestJob(id string) *domain.Job {
	return domain.NewJob(domain.JobID(id), domain.ConvertRequest{
		InputURL: "https://video.twimg.com/" + id + ".m3u8",
		Args:     []string{"-c", "copy"},
	})
}

func TestNewInMemoryJobRepository(t *testing.T) {
	repo := NewInMemoryJobRepository()

	if repo == nil {
		t.Fatal("repo should not be nil")
	}
	if repo.jobs == nil {
		t.Error("jobs map should be initialized")
	}
	if repo.queue == nil {
		t.Error("queue should be initialized")
	}
}

func TestInMemoryJobRepository_Enqueue(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	if err := repo.Enqueue(ctx, newTestJob("job-1")); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	retrieved, err := repo.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if retrieved.ID != "job-1" {
		t.Errorf("ID = %q, want %q", retrieved.ID, "job-1")
	}
	if retrieved.Status != domain.JobStatusQueued {
		t.Errorf("Status = %q, want queued", retrieved.Status)
	}
}

func TestInMemoryJobRepository_Dequeue(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	// Empty queue
	if _, err := repo.Dequeue(ctx); err != domain.ErrNoJobs {
		t.Errorf("expected ErrNoJobs, got %v", err)
	}

	repo.Enqueue(ctx, newTestJob("job-1"))
	repo.Enqueue(ctx, newTestJob("job-2"))

	for _, want := range []domain.JobID{"job-1", "job-2"} {
		dequeued, err := repo.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if dequeued.ID != want {
			t.Errorf("expected %s, got %s", want, dequeued.ID)
		}
	}

	if _, err := repo.Dequeue(ctx); err != domain.ErrNoJobs {
		t.Errorf("expected ErrNoJobs after draining, got %v", err)
	}
}

func TestInMemoryJobRepository_Dequeue_SkipsNonQueued(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	job1 := newTestJob("job-1")
	job2 := newTestJob("job-2")
	repo.Enqueue(ctx, job1)
	repo.Enqueue(ctx, job2)

	job1.MarkFailed("canceled")
	repo.Update(ctx, job1)

	dequeued, err := repo.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if dequeued.ID != "job-2" {
		t.Errorf("expected job-2, got %s", dequeued.ID)
	}
}

func TestInMemoryJobRepository_Update_DoesNotRequeue(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	job := newTestJob("job-1")
	repo.Enqueue(ctx, job)
	repo.Dequeue(ctx)

	job.MarkFailed("ffmpeg exited 1")
	if err := repo.Update(ctx, job); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if _, err := repo.Dequeue(ctx); err != domain.ErrNoJobs {
		t.Errorf("failed jobs must not be requeued, got %v", err)
	}

	got, _ := repo.Get(ctx, "job-1")
	if got.Status != domain.JobStatusFailed || got.LastError != "ffmpeg exited 1" {
		t.Errorf("unexpected job state %+v", got)
	}
}

func TestInMemoryJobRepository_ReturnsCopies(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	job := newTestJob("job-1")
	repo.Enqueue(ctx, job)
	job.MarkFailed("mutated after enqueue")

	got, _ := repo.Get(ctx, "job-1")
	if got.Status != domain.JobStatusQueued {
		t.Errorf("stored job changed without Update: %s", got.Status)
	}

	got.MarkProcessing()
	again, _ := repo.Get(ctx, "job-1")
	if again.Status != domain.JobStatusQueued {
		t.Errorf("returned job aliases stored state: %s", again.Status)
	}
}

func TestInMemoryJobRepository_Update_NotFound(t *testing.T) {
	repo := NewInMemoryJobRepository()

	err := repo.Update(context.Background(), newTestJob("missing"))
	if err != domain.ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestInMemoryJobRepository_Get_NotFound(t *testing.T) {
	repo := NewInMemoryJobRepository()

	if _, err := repo.Get(context.Background(), "nonexistent"); err != domain.ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestInMemoryJobRepository_List(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		job := newTestJob(id)
		job.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		repo.Enqueue(ctx, job)
	}

	jobs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	for i, want := range []domain.JobID{"new", "mid", "old"} {
		if jobs[i].ID != want {
			t.Errorf("jobs[%d] = %s, want %s", i, jobs[i].ID, want)
		}
	}
}

func TestInMemoryJobRepository_Stats(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	statuses := []domain.JobStatus{
		domain.JobStatusQueued,
		domain.JobStatusQueued,
		domain.JobStatusProcessing,
		domain.JobStatusCompleted,
		domain.JobStatusFailed,
	}
	for i, s := range statuses {
		job := newTestJob(fmt.Sprintf("job-%d", i))
		job.Status = s
		repo.Enqueue(ctx, job)
	}

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	want := QueueStats{Queued: 2, Processing: 1, Completed: 1, Failed: 1}
	if *stats != want {
		t.Errorf("Stats = %+v, want %+v", *stats, want)
	}
}

func TestInMemoryJobRepository_Clear(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	repo.Enqueue(ctx, newTestJob("job-1"))
	repo.Clear()

	if _, err := repo.Get(ctx, "job-1"); err != domain.ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound after Clear, got %v", err)
	}
	if _, err := repo.Dequeue(ctx); err != domain.ErrNoJobs {
		t.Errorf("expected ErrNoJobs after Clear, got %v", err)
	}
}

func TestInMemoryJobRepository_Concurrency(t *testing.T) {
	repo := NewInMemoryJobRepository()
	ctx := context.Background()

	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func(id int) {
			repo.Enqueue(ctx, newTestJob(fmt.Sprintf("job-%d", id)))
			repo.Stats(ctx)
			repo.List(ctx)
			repo.Dequeue(ctx)
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	stats, _ := repo.Stats(ctx)
	if stats.Queued != 10 {
		t.Errorf("Queued = %d, want 10 (Dequeue does not change status)", stats.Queued)
	}
}
