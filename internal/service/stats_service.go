package service

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/inthistweet/internal/repository"
)

// DiskUsage describes the filesystem holding a directory.
type DiskUsage struct {
	Path       string  `json:"path"`
	TotalBytes int64   `json:"total_bytes"`
	FreeBytes  int64   `json:"free_bytes"`
	UsedBytes  int64   `json:"used_bytes"`
	UsedPct    float64 `json:"used_pct"`
	FreeHuman  string  `json:"free_human,omitempty"`
}

func newDiskUsage(path string, total, free int64) DiskUsage {
	d := DiskUsage{
		Path:       path,
		TotalBytes: total,
		FreeBytes:  free,
		UsedBytes:  total - free,
		FreeHuman:  humanize.IBytes(uint64(free)),
	}
	if total > 0 {
		d.UsedPct = float64(d.UsedBytes) / float64(total) * 100
	}
	return d
}

// SystemStats is a point-in-time view of the process.
type SystemStats struct {
	UptimeSeconds int64  `json:"uptime_seconds"`
	UptimeHuman   string `json:"uptime_human"`
	MemAlloc      string `json:"mem_alloc"`
	MemSys        string `json:"mem_sys"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`

	Queue *repository.QueueStats `json:"queue,omitempty"`
	Disk  *DiskUsage             `json:"work_dir,omitempty"`

	MemoryCacheEntries     int `json:"memory_cache_entries"`
	PersistentCacheEntries int `json:"persistent_cache_entries"`
}

// EntryCounter reports how many entries a cache holds.
type EntryCounter interface {
	Count(ctx context.Context) (int, error)
}

// StatsService gathers runtime, queue, disk and cache statistics.
type StatsService struct {
	jobRepo    repository.JobRepository
	workDir    string
	memCache   *repository.MemoryMediaCache
	persistent EntryCounter
	started    time.Time
	logger     *slog.Logger
}

// NewStatsService creates a stats service. Any collaborator may be nil or
// empty and is then left out of the result.
func NewStatsService(
	jobRepo repository.JobRepository,
	workDir string,
	memCache *repository.MemoryMediaCache,
	persistent EntryCounter,
	logger *slog.Logger,
) *StatsService {
	return &StatsService{
		jobRepo:    jobRepo,
		workDir:    workDir,
		memCache:   memCache,
		persistent: persistent,
		started:    time.Now(),
		logger:     logger,
	}
}

// Collect returns current statistics. Failures of individual sources are
// logged and leave their fields empty.
func (s *StatsService) Collect(ctx context.Context) *SystemStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(s.started)
	stats := &SystemStats{
		UptimeSeconds: int64(uptime.Seconds()),
		UptimeHuman:   formatUptime(uptime),
		MemAlloc:      humanize.IBytes(m.Alloc),
		MemSys:        humanize.IBytes(m.Sys),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
	}

	if s.jobRepo != nil {
		if q, err := s.jobRepo.Stats(ctx); err != nil {
			s.logger.Warn("failed to read queue stats", "error", err)
		} else {
			stats.Queue = q
		}
	}

	if s.workDir != "" {
		d := getDiskUsage(s.workDir)
		stats.Disk = &d
	}

	if s.memCache != nil {
		stats.MemoryCacheEntries = s.memCache.Len()
	}
	if s.persistent != nil {
		if n, err := s.persistent.Count(ctx); err != nil {
			s.logger.Warn("failed to count cache entries", "error", err)
		} else {
			stats.PersistentCacheEntries = n
		}
	}

	return stats
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
