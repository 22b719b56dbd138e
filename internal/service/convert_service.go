package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/iconidentify/inthistweet/internal/config"
	"github.com/iconidentify/inthistweet/internal/domain"
	"github.com/iconidentify/inthistweet/internal/downloader"
	"github.com/iconidentify/inthistweet/internal/metrics"
	"github.com/iconidentify/inthistweet/internal/repository"
	"github.com/iconidentify/inthistweet/pkg/ffmpeg"
	"github.com/iconidentify/inthistweet/pkg/hls"
)

// Transcoder runs one ffmpeg invocation.
type Transcoder interface {
	Transcode(ctx context.Context, req ffmpeg.Request) (*ffmpeg.Output, error)
}

// MediaDescriber reads metadata from a finished output. Transcoders that
// implement it get their outputs described on completion.
type MediaDescriber interface {
	Describe(ctx context.Context, path string) (*ffmpeg.MediaInfo, error)
}

// Mirrorer mirrors a manifest graph.
type Mirrorer interface {
	Mirror(ctx context.Context, rawURL string) (*MirrorResult, error)
}

var mediaTypeRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.+-]*(/[A-Za-z0-9][A-Za-z0-9.+-]*)?$`)

// ConvertService queues and runs ffmpeg conversions of remote media.
type ConvertService struct {
	jobRepo    repository.JobRepository
	manifests  Mirrorer
	downloader downloader.Downloader
	transcoder Transcoder
	cfg        config.ConvertConfig
	logger     *slog.Logger
}

// NewConvertService creates a new convert service.
func NewConvertService(
	jobRepo repository.JobRepository,
	manifests Mirrorer,
	dl downloader.Downloader,
	transcoder Transcoder,
	cfg config.ConvertConfig,
	logger *slog.Logger,
) *ConvertService {
	return &ConvertService{
		jobRepo:    jobRepo,
		manifests:  manifests,
		downloader: dl,
		transcoder: transcoder,
		cfg:        cfg,
		logger:     logger,
	}
}

// Submit validates req and queues a conversion job.
func (s *ConvertService) Submit(ctx context.Context, req domain.ConvertRequest) (*domain.Job, error) {
	if err := validateRemoteURL(req.InputURL); err != nil {
		return nil, err
	}
	if req.ForceArgs != nil && len(req.ForceArgs) == 0 {
		return nil, domain.ErrEmptyArgs
	}
	if req.Output == "" {
		req.Output = ffmpeg.DefaultOutput
		if len(req.ForceArgs) > 0 {
			req.Output = req.ForceArgs[len(req.ForceArgs)-1]
		}
	}
	if filepath.Base(req.Output) != req.Output || req.Output == "." || req.Output == ".." {
		return nil, fmt.Errorf("%w: output %q must be a plain file name", domain.ErrInvalidInput, req.Output)
	}
	if len(req.ForceArgs) > 0 && req.ForceArgs[len(req.ForceArgs)-1] != req.Output {
		return nil, fmt.Errorf("%w: force_args must end with the output %q", domain.ErrInvalidInput, req.Output)
	}
	for _, args := range [][]string{req.Args, req.ForceArgs} {
		if err := ffmpeg.CheckArgs(args); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}
	if req.MediaType != "" && !mediaTypeRegex.MatchString(req.MediaType) {
		return nil, fmt.Errorf("%w: media_type %q", domain.ErrInvalidInput, req.MediaType)
	}

	job := domain.NewJob(domain.JobID(uuid.New().String()), req)
	if err := s.jobRepo.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}
	metrics.ConvertJobs.WithLabelValues(string(domain.JobStatusQueued)).Inc()

	s.logger.Info("conversion queued", "job_id", job.ID, "url", req.InputURL, "output", req.Output)
	return job, nil
}

// Get returns the job with the given id.
func (s *ConvertService) Get(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	return s.jobRepo.Get(ctx, id)
}

// List returns all jobs, newest first.
func (s *ConvertService) List(ctx context.Context) ([]*domain.Job, error) {
	return s.jobRepo.List(ctx)
}

// Output returns a completed job and the path of its output file.
func (s *ConvertService) Output(ctx context.Context, id domain.JobID) (*domain.Job, error) {
	job, err := s.jobRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, domain.ErrJobNotReady
	}
	return job, nil
}

// WorkDir returns the directory a job runs in.
func (s *ConvertService) WorkDir(id domain.JobID) string {
	return filepath.Join(s.cfg.WorkDir, string(id))
}

// Process runs a queued job to completion. Jobs are not retried: any
// failure marks the job failed and is returned.
func (s *ConvertService) Process(ctx context.Context, id domain.JobID) error {
	job, err := s.jobRepo.Get(ctx, id)
	if err != nil {
		return err
	}

	logger := s.logger.With("job_id", job.ID, "url", job.Request.InputURL)

	job.MarkProcessing()
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return domain.NewJobError(job.ID, "update", err)
	}
	metrics.ConvertJobs.WithLabelValues(string(domain.JobStatusProcessing)).Inc()

	if s.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.JobTimeout)
		defer cancel()
	}

	out, err := s.run(ctx, logger, job)
	if err != nil {
		job.MarkFailed(err.Error())
		metrics.ConvertJobs.WithLabelValues(string(domain.JobStatusFailed)).Inc()
		if updateErr := s.jobRepo.Update(context.WithoutCancel(ctx), job); updateErr != nil {
			logger.Error("failed to update job after failure", "error", updateErr)
		}
		logger.Error("conversion failed", "error", err)
		return domain.NewJobError(job.ID, "process", err)
	}

	job.MarkCompleted(out.Path, out.Size)
	if describer, ok := s.transcoder.(MediaDescriber); ok {
		if info, err := describer.Describe(ctx, out.Path); err != nil {
			logger.Warn("could not read output metadata", "error", err)
		} else {
			job.OutputInfo = &domain.OutputInfo{
				Duration:   info.Duration,
				Width:      info.Width,
				Height:     info.Height,
				VideoCodec: info.VideoCodec,
				AudioCodec: info.AudioCodec,
			}
		}
	}
	if err := s.jobRepo.Update(ctx, job); err != nil {
		return domain.NewJobError(job.ID, "update", err)
	}
	metrics.ConvertJobs.WithLabelValues(string(domain.JobStatusCompleted)).Inc()

	logger.Info("conversion completed",
		"output", out.Path,
		"size", humanize.IBytes(uint64(out.Size)),
		"files", job.FileCount,
	)
	return nil
}

func (s *ConvertService) run(ctx context.Context, logger *slog.Logger, job *domain.Job) (*ffmpeg.Output, error) {
	workDir := s.WorkDir(job.ID)
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}

	req := ffmpeg.Request{
		WorkDir:   workDir,
		Args:      job.Request.Args,
		ForceArgs: job.Request.ForceArgs,
		Output:    job.Request.Output,
	}

	u, err := url.Parse(job.Request.InputURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	mirrored := false
	if hls.IsManifestPath(u.Path) {
		res, err := s.manifests.Mirror(ctx, job.Request.InputURL)
		switch {
		case err == nil:
			req.Files = hls.Localize(res.Files)
			req.Input = res.RootKey
			job.FileCount = len(res.Files)
			mirrored = true
		case errors.Is(err, domain.ErrManifestFormat):
			logger.Warn("input is not a valid manifest, converting it as a plain file", "error", err)
		default:
			return nil, fmt.Errorf("mirror input: %w", err)
		}
	}

	if !mirrored {
		name := "input" + path.Ext(u.Path)
		if err := s.fetchInput(ctx, job.Request.InputURL, filepath.Join(workDir, name)); err != nil {
			return nil, err
		}
		req.Input = name
		job.FileCount = 1
	}

	return s.transcoder.Transcode(ctx, req)
}

func (s *ConvertService) fetchInput(ctx context.Context, rawURL, dest string) error {
	body, _, err := s.downloader.Download(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("download input: %w", err)
	}
	defer body.Close()

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create input file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return fmt.Errorf("write input file: %w", err)
	}
	return f.Close()
}
