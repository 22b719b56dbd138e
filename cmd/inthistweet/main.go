// Command inthistweet resolves tweet media and mirrors HLS manifests from
// the command line.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/google/uuid"
	"golang.org/x/term"

	"github.com/iconidentify/inthistweet/internal/config"
	"github.com/iconidentify/inthistweet/internal/downloader"
	"github.com/iconidentify/inthistweet/internal/repository"
	"github.com/iconidentify/inthistweet/internal/service"
	"github.com/iconidentify/inthistweet/pkg/twitter"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

type mediaCmd struct {
	URL  string `arg:"positional,required" help:"tweet URL (x.com or twitter.com)"`
	JSON bool   `arg:"--json" help:"print the media list as JSON"`
	Best bool   `arg:"--best" help:"print only the best variant of each item"`
}

type mirrorCmd struct {
	URL string `arg:"positional,required" help:"HLS manifest URL"`
	Out string `arg:"-o,--out" default:"." help:"directory to write the mirrored files to"`
	Raw bool   `arg:"--raw" help:"keep manifest entries as mirror keys instead of relative paths"`
}

type inspectCmd struct {
	URL  string `arg:"positional,required" help:"HLS manifest URL"`
	JSON bool   `arg:"--json" help:"print the summary as JSON"`
}

type cliArgs struct {
	Config  string      `arg:"-c,--config" help:"path to config file"`
	Verbose bool        `arg:"-v,--verbose" help:"enable debug logging"`
	Media   *mediaCmd   `arg:"subcommand:media" help:"list the media attached to a tweet"`
	Mirror  *mirrorCmd  `arg:"subcommand:mirror" help:"download a manifest and everything it references"`
	Inspect *inspectCmd `arg:"subcommand:inspect" help:"summarize a manifest"`
}

func (cliArgs) Version() string {
	return fmt.Sprintf("inthistweet %s (built %s)", Version, BuildTime)
}

func (cliArgs) Description() string {
	return "Find the photos, videos and GIFs in a tweet, and mirror HLS streams."
}

func main() {
	var args cliArgs
	p := arg.MustParse(&args)
	if p.Subcommand() == nil {
		p.Fail("missing subcommand")
	}

	logger := newLogger(args.Verbose).With("run_id", uuid.NewString())

	cfg, err := config.Load(args.Config)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, args, cfg, logger); err != nil {
		logger.Error("command failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args cliArgs, cfg *config.Config, logger *slog.Logger) error {
	dl := downloader.NewHTTPDownloader(cfg.Download, logger)
	manifests := service.NewManifestService(dl, cfg.Traversal, logger)

	switch {
	case args.Media != nil:
		var cache service.MediaLookup
		if cfg.Cache.Enabled {
			persistent, err := repository.NewSQLiteMediaCache(cfg.Cache.SQLitePath, cfg.Cache.PersistentTTL, logger)
			if err != nil {
				logger.Warn("media cache unavailable, resolving without it", "path", cfg.Cache.SQLitePath, "error", err)
			} else {
				defer persistent.Close()
				cache = repository.NewTieredMediaCache(repository.NewMemoryMediaCache(cfg.Cache.MemoryTTL), persistent, logger)
			}
		}
		media := service.NewMediaService(twitter.NewClient(cfg.Twitter, logger), cache, logger)
		return runMedia(ctx, os.Stdout, media, args.Media)
	case args.Mirror != nil:
		return runMirror(ctx, os.Stdout, manifests, args.Mirror)
	case args.Inspect != nil:
		return runInspect(ctx, os.Stdout, manifests, args.Inspect)
	}
	return nil
}

// newLogger logs human-readable text to a terminal and JSON otherwise.
func newLogger(verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelWarn}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
