package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iconidentify/inthistweet/internal/domain"
	"github.com/iconidentify/inthistweet/internal/repository"
)

type fixedCounter struct {
	n   int
	err error
}

func (c fixedCounter) Count(ctx context.Context) (int, error) {
	return c.n, c.err
}

func TestStatsService_Collect(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewInMemoryJobRepository()
	repo.Enqueue(ctx, domain.NewJob("a", domain.ConvertRequest{InputURL: "https://a/x.mp4"}))
	repo.Enqueue(ctx, domain.NewJob("b", domain.ConvertRequest{InputURL: "https://a/y.mp4"}))

	mem := repository.NewMemoryMediaCache(time.Minute)
	mem.Set(ctx, "20", []domain.MediaItem{})

	svc := NewStatsService(repo, t.TempDir(), mem, fixedCounter{n: 12}, testLogger())
	stats := svc.Collect(ctx)

	if stats.Queue == nil || stats.Queue.Queued != 2 {
		t.Errorf("Queue = %+v, want 2 queued", stats.Queue)
	}
	if stats.MemoryCacheEntries != 1 || stats.PersistentCacheEntries != 12 {
		t.Errorf("cache entries = %d / %d", stats.MemoryCacheEntries, stats.PersistentCacheEntries)
	}
	if stats.Disk == nil || stats.Disk.Path == "" {
		t.Fatalf("Disk = %+v", stats.Disk)
	}
	if stats.NumCPU == 0 || stats.MemAlloc == "" {
		t.Errorf("runtime stats missing: %+v", stats)
	}
}

func TestStatsService_Collect_Optional(t *testing.T) {
	svc := NewStatsService(nil, "", nil, fixedCounter{err: errors.New("db closed")}, testLogger())
	stats := svc.Collect(context.Background())

	if stats.Queue != nil || stats.Disk != nil {
		t.Errorf("expected queue and disk to be omitted, got %+v", stats)
	}
	if stats.PersistentCacheEntries != 0 {
		t.Errorf("PersistentCacheEntries = %d, want 0 on error", stats.PersistentCacheEntries)
	}
}

func TestNewDiskUsage(t *testing.T) {
	d := newDiskUsage("/data", 1000, 250)
	if d.UsedBytes != 750 || d.UsedPct != 75 {
		t.Errorf("unexpected usage %+v", d)
	}
	if d.FreeHuman != "250 B" {
		t.Errorf("FreeHuman = %q", d.FreeHuman)
	}

	if empty := newDiskUsage("/x", 0, 0); empty.UsedPct != 0 {
		t.Errorf("UsedPct = %v for empty filesystem", empty.UsedPct)
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "0m"},
		{5 * time.Minute, "5m"},
		{2*time.Hour + 3*time.Minute, "2h 3m"},
		{49*time.Hour + 10*time.Minute, "2d 1h 10m"},
	}
	for _, tt := range tests {
		if got := formatUptime(tt.d); got != tt.want {
			t.Errorf("formatUptime(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
