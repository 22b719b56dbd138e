package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iconidentify/inthistweet/internal/api"
	"github.com/iconidentify/inthistweet/internal/api/handler"
	"github.com/iconidentify/inthistweet/internal/config"
	"github.com/iconidentify/inthistweet/internal/downloader"
	"github.com/iconidentify/inthistweet/internal/repository"
	"github.com/iconidentify/inthistweet/internal/service"
	"github.com/iconidentify/inthistweet/internal/worker"
	"github.com/iconidentify/inthistweet/pkg/ffmpeg"
	"github.com/iconidentify/inthistweet/pkg/twitter"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

const cacheCleanupInterval = time.Hour

func main() {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("inthistweet %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting inthistweet",
		"version", Version,
		"build_time", BuildTime,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	bgCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	// Tweet media resolution
	twitterClient := twitter.NewClient(cfg.Twitter, logger)
	var (
		memCache   *repository.MemoryMediaCache
		sqliteDB   *repository.SQLiteMediaCache
		mediaCache service.MediaLookup
		persistent service.EntryCounter
	)
	if cfg.Cache.Enabled {
		memCache = repository.NewMemoryMediaCache(cfg.Cache.MemoryTTL)
		sqliteDB, err = repository.NewSQLiteMediaCache(cfg.Cache.SQLitePath, cfg.Cache.PersistentTTL, logger)
		if err != nil {
			logger.Error("failed to open media cache", "path", cfg.Cache.SQLitePath, "error", err)
			os.Exit(1)
		}
		defer sqliteDB.Close()
		persistent = sqliteDB
		mediaCache = repository.NewTieredMediaCache(memCache, sqliteDB, logger)
		go cleanupCache(bgCtx, sqliteDB, logger)
	}
	mediaSvc := service.NewMediaService(twitterClient, mediaCache, logger)

	// Manifests and conversion
	dl := downloader.NewHTTPDownloader(cfg.Download, logger)
	manifestSvc := service.NewManifestService(dl, cfg.Traversal, logger)

	jobRepo := repository.NewInMemoryJobRepository()
	handlers := api.Handlers{
		Media:    handler.NewMediaHandler(mediaSvc, logger),
		Manifest: handler.NewManifestHandler(manifestSvc, logger),
		UI:       handler.NewUIHandler(),
	}

	var pool *worker.Pool
	workDir := ""
	if cfg.Convert.Enabled {
		transcoder, err := ffmpeg.NewTranscoder(cfg.Convert.FFmpegPath)
		if err != nil {
			logger.Error("ffmpeg not available", "path", cfg.Convert.FFmpegPath, "error", err)
			os.Exit(1)
		}
		if version, err := transcoder.Version(bgCtx); err == nil {
			logger.Info("using ffmpeg", "version", version)
		}
		if err := os.MkdirAll(cfg.Convert.WorkDir, 0755); err != nil {
			logger.Error("failed to create work directory", "error", err)
			os.Exit(1)
		}
		workDir = cfg.Convert.WorkDir

		convertSvc := service.NewConvertService(jobRepo, manifestSvc, dl, transcoder, cfg.Convert, logger)
		handlers.Convert = handler.NewConvertHandler(convertSvc, logger)

		pool = worker.NewPool(
			worker.Config{
				Workers:      cfg.Convert.Workers,
				PollInterval: cfg.Convert.PollInterval,
			},
			jobRepo,
			convertSvc,
			logger,
		)
		pool.Start()
	}

	statsSvc := service.NewStatsService(jobRepo, workDir, memCache, persistent, logger)
	handlers.Health = handler.NewHealthHandler(jobRepo, statsSvc)

	router := api.NewRouter(handlers, cfg.Server.APIKey, cfg.Server.RequestTimeout, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancelBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Allow in-flight conversions to complete
	if pool != nil {
		if err := pool.Stop(25 * time.Second); err != nil {
			logger.Error("worker pool shutdown error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// cleanupCache drops expired rows from the persistent cache until ctx ends.
func cleanupCache(ctx context.Context, c *repository.SQLiteMediaCache, logger *slog.Logger) {
	ticker := time.NewTicker(cacheCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.CleanupExpired(ctx); err != nil {
				logger.Warn("cache cleanup failed", "error", err)
			}
		}
	}
}
