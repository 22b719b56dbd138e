package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/inthistweet/internal/domain"
	"github.com/iconidentify/inthistweet/internal/service"
	"github.com/iconidentify/inthistweet/pkg/ffmpeg"
	"github.com/iconidentify/inthistweet/pkg/hls"
)

type mediaResolver interface {
	Resolve(ctx context.Context, rawURL string) ([]domain.MediaItem, error)
}

type manifestClient interface {
	Mirror(ctx context.Context, rawURL string) (*service.MirrorResult, error)
	Inspect(ctx context.Context, rawURL string) (*hls.Summary, error)
}

func runMedia(ctx context.Context, w io.Writer, media mediaResolver, cmd *mediaCmd) error {
	items, err := media.Resolve(ctx, cmd.URL)
	if err != nil {
		return err
	}
	if cmd.Best {
		return printBest(w, items, cmd.JSON)
	}
	if cmd.JSON {
		return writeJSON(w, items)
	}
	printMedia(w, items)
	return nil
}

type bestVariant struct {
	Kind string `json:"kind"`
	domain.MediaVariant
}

// printBest prints the top ranked variant of each item, labelled video or
// image by how it plays.
func printBest(w io.Writer, items []domain.MediaItem, asJSON bool) error {
	best := make([]bestVariant, 0, len(items))
	for _, item := range items {
		v, ok := item.Best()
		if !ok {
			continue
		}
		kind := "image"
		if item.Type.IsMotion() {
			kind = "video"
		}
		best = append(best, bestVariant{Kind: kind, MediaVariant: v})
	}
	if asJSON {
		return writeJSON(w, best)
	}
	if len(best) == 0 {
		fmt.Fprintln(w, "no media found")
		return nil
	}
	for _, b := range best {
		fmt.Fprintf(w, "%s\t%s\n", b.Kind, b.URL)
	}
	return nil
}

func printMedia(w io.Writer, items []domain.MediaItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "no media found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, item := range items {
		fmt.Fprintf(tw, "#%d %s\n", i+1, item.Type)
		for _, v := range item.Variants {
			size := "-"
			if v.FileSizeInBytes != nil {
				size = humanize.Bytes(uint64(*v.FileSizeInBytes))
			}
			fmt.Fprintf(tw, "\t%s\t%s\t%s\t%s\n", v.Quality, v.AspectRatio, size, v.URL)
		}
	}
	tw.Flush()
}

func runMirror(ctx context.Context, w io.Writer, manifests manifestClient, cmd *mirrorCmd) error {
	res, err := manifests.Mirror(ctx, cmd.URL)
	if err != nil {
		return err
	}

	written, err := writeMirror(cmd.Out, res, cmd.Raw)
	if err != nil {
		return err
	}

	printMirror(w, res)
	fmt.Fprintf(w, "wrote %d files (%s) to %s\n", len(res.Files), humanize.Bytes(uint64(written)), cmd.Out)
	fmt.Fprintf(w, "open %s\n", filepath.Join(cmd.Out, filepath.FromSlash(res.RootKey)))
	return nil
}

// writeMirror stores every mirrored file under dir and returns the number of
// bytes written.
func writeMirror(dir string, res *service.MirrorResult, raw bool) (int64, error) {
	files := res.Files
	if !raw {
		files = hls.Localize(files)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}
	if err := ffmpeg.WriteFiles(dir, files); err != nil {
		return 0, err
	}

	var total int64
	for _, data := range files {
		total += int64(len(data))
	}
	return total, nil
}

func printMirror(w io.Writer, res *service.MirrorResult) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range res.Entries() {
		fmt.Fprintf(tw, "%s\t%s\n", humanize.Bytes(uint64(e.Size)), e.Key)
	}
	tw.Flush()

	for _, u := range res.Failed {
		fmt.Fprintf(w, "failed: %s\n", u)
	}
	if res.TimedOut {
		fmt.Fprintln(w, "traversal timed out; the mirror is partial")
	}
}

func runInspect(ctx context.Context, w io.Writer, manifests manifestClient, cmd *inspectCmd) error {
	summary, err := manifests.Inspect(ctx, cmd.URL)
	if err != nil {
		return err
	}
	if cmd.JSON {
		return writeJSON(w, summary)
	}
	printSummary(w, summary)
	return nil
}

func printSummary(w io.Writer, s *hls.Summary) {
	fmt.Fprintf(w, "%s playlist\n", s.Kind)
	switch s.Kind {
	case hls.KindMaster:
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, v := range s.Variants {
			fmt.Fprintf(tw, "  %s/s\t%s\t%s\t%s\n", humanize.Bytes(uint64(v.Bandwidth/8)), v.Resolution, v.Codecs, v.URI)
		}
		for _, a := range s.Alternatives {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", a.Type, a.GroupID, a.Name, a.URI)
		}
		tw.Flush()
	case hls.KindMedia:
		fmt.Fprintf(w, "  segments: %d\n  duration: %.3fs\n  ended: %t\n", s.Segments, s.Duration, s.Ended)
		if s.Encrypted {
			fmt.Fprintln(w, "  encrypted: true")
		}
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
