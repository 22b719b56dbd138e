// Package ffmpeg runs the ffmpeg binary over mirrored media files.
package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// DefaultOutput is used when a request names no output file.
const DefaultOutput = "output.mp4"

var (
	// ErrUnsafePath is returned when a file name would escape the work dir.
	ErrUnsafePath = errors.New("path escapes work directory")

	// ErrUnsafeArg is returned for arguments that name files or protocols
	// outside the work dir.
	ErrUnsafeArg = errors.New("argument not allowed")
)

// localProtocols restricts ffmpeg inputs to the files written into the
// work dir, including the AES keys of mirrored playlists.
const localProtocols = "file,crypto"

var schemeRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)

// Transcoder runs ffmpeg commands inside a work directory.
type Transcoder struct {
	ffmpegPath  string
	ffprobePath string
}

// NewTranscoder resolves the ffmpeg binary. ffprobe is optional and only
// used by Describe.
func NewTranscoder(ffmpegPath string) (*Transcoder, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	resolved, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	t := &Transcoder{ffmpegPath: resolved}
	if probe, err := exec.LookPath(filepath.Join(filepath.Dir(resolved), "ffprobe")); err == nil {
		t.ffprobePath = probe
	} else if probe, err := exec.LookPath("ffprobe"); err == nil {
		t.ffprobePath = probe
	}
	return t, nil
}

// Request describes one ffmpeg run.
type Request struct {
	// WorkDir is where Files are written and ffmpeg runs.
	WorkDir string

	// Files are written below WorkDir before ffmpeg starts, keyed by
	// relative path.
	Files map[string][]byte

	// Input is passed to -i as a path relative to WorkDir.
	Input string

	// Args go between the input and the output.
	Args []string

	// ForceArgs, when set, replace the whole command line after the
	// binary. The caller is responsible for naming Output in them. Every
	// -i in them is still limited to local protocols.
	ForceArgs []string

	// Output is the output file name relative to WorkDir.
	Output string
}

// Output describes a finished transcode.
type Output struct {
	Path string
	Size int64
	Log  string
}

// Command returns the ffmpeg arguments for req.
func Command(req Request) []string {
	if len(req.ForceArgs) > 0 {
		args := make([]string, 0, len(req.ForceArgs)+2)
		for _, a := range req.ForceArgs {
			if a == "-i" {
				args = append(args, "-protocol_whitelist", localProtocols)
			}
			args = append(args, a)
		}
		return args
	}
	out := req.Output
	if out == "" {
		out = DefaultOutput
	}
	args := []string{"-hide_banner", "-nostdin", "-y", "-protocol_whitelist", localProtocols, "-i", req.Input}
	args = append(args, req.Args...)
	return append(args, out)
}

// CheckArgs rejects arguments that reference absolute paths, parent
// directories or protocol URLs. Anything else ffmpeg reads or writes is
// relative to the work dir.
func CheckArgs(args []string) error {
	for _, a := range args {
		if filepath.IsAbs(a) || strings.HasPrefix(a, "/") || strings.HasPrefix(a, `\`) || strings.HasPrefix(a, "~") ||
			strings.Contains(a, "..") || strings.Contains(a, "=/") || strings.Contains(a, "'/") || strings.Contains(a, `"/`) ||
			schemeRegex.MatchString(a) {
			return fmt.Errorf("%w: %q", ErrUnsafeArg, a)
		}
	}
	return nil
}

// Transcode writes the request files, runs ffmpeg and returns the output.
func (t *Transcoder) Transcode(ctx context.Context, req Request) (*Output, error) {
	if req.WorkDir == "" {
		return nil, errors.New("work dir is required")
	}
	if req.Output == "" {
		req.Output = DefaultOutput
	}
	outputPath, err := SafeJoin(req.WorkDir, req.Output)
	if err != nil {
		return nil, err
	}
	for _, args := range [][]string{{req.Input}, req.Args, req.ForceArgs} {
		if err := CheckArgs(args); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(req.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	if err := WriteFiles(req.WorkDir, req.Files); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, t.ffmpegPath, Command(req)...)
	cmd.Dir = req.WorkDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg: %w", ctx.Err())
		}
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, tail(stderr.String(), 20))
	}

	stat, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("stat output: %w", err)
	}

	return &Output{
		Path: outputPath,
		Size: stat.Size(),
		Log:  tail(stderr.String(), 20),
	}, nil
}

// WriteFiles writes files below dir, creating parent directories.
func WriteFiles(dir string, files map[string][]byte) error {
	for name, data := range files {
		path, err := SafeJoin(dir, name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create dir for %s: %w", name, err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// SafeJoin joins name below dir and rejects names that leave dir.
func SafeJoin(dir, name string) (string, error) {
	path := filepath.Join(dir, filepath.FromSlash(name))
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return path, nil
}

// OutputKind maps an output MIME type to the kind of result it is shown
// as: "video" for audio, video and HLS types, "image" for the rest.
func OutputKind(mediaType string) string {
	if strings.HasPrefix(mediaType, "video") || strings.HasPrefix(mediaType, "audio") || mediaType == "vnd.apple.mpegURL" {
		return "video"
	}
	return "image"
}

// MediaInfo contains metadata about a media file.
type MediaInfo struct {
	Duration   float64 // Duration in seconds
	Width      int
	Height     int
	HasAudio   bool
	AudioCodec string
	VideoCodec string
	Bitrate    int64
	FrameRate  float64
}

// Describe reads the duration, dimensions and codecs of a media file with
// ffprobe.
func (t *Transcoder) Describe(ctx context.Context, path string) (*MediaInfo, error) {
	if t.ffprobePath == "" {
		return nil, errors.New("ffprobe not available")
	}

	cmd := exec.CommandContext(ctx, t.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w", err)
	}
	return parseMediaInfo(output)
}

func parseMediaInfo(output []byte) (*MediaInfo, error) {
	var parsed struct {
		Format struct {
			Duration string `json:"duration"`
			BitRate  string `json:"bit_rate"`
		} `json:"format"`
		Streams []struct {
			CodecType    string `json:"codec_type"`
			CodecName    string `json:"codec_name"`
			Width        int    `json:"width"`
			Height       int    `json:"height"`
			AvgFrameRate string `json:"avg_frame_rate"`
		} `json:"streams"`
	}
	if err := json.Unmarshal(output, &parsed); err != nil {
		return nil, fmt.Errorf("decode ffprobe output: %w", err)
	}

	info := &MediaInfo{}
	if dur, err := strconv.ParseFloat(parsed.Format.Duration, 64); err == nil {
		info.Duration = dur
	}
	if br, err := strconv.ParseInt(parsed.Format.BitRate, 10, 64); err == nil {
		info.Bitrate = br
	}

	for _, s := range parsed.Streams {
		switch s.CodecType {
		case "audio":
			info.HasAudio = true
			if info.AudioCodec == "" {
				info.AudioCodec = s.CodecName
			}
		case "video":
			if info.VideoCodec == "" {
				info.VideoCodec = s.CodecName
			}
			if info.Width == 0 && s.Width > 0 {
				info.Width = s.Width
			}
			if info.Height == 0 && s.Height > 0 {
				info.Height = s.Height
			}
			if info.FrameRate == 0 {
				info.FrameRate = parseRate(s.AvgFrameRate)
			}
		}
	}
	return info, nil
}

func parseRate(s string) float64 {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}

var versionRegex = regexp.MustCompile(`ffmpeg version (\S+)`)

// Version returns the ffmpeg version string.
func (t *Transcoder) Version(ctx context.Context) (string, error) {
	output, err := exec.CommandContext(ctx, t.ffmpegPath, "-version").Output()
	if err != nil {
		return "", err
	}
	if m := versionRegex.FindSubmatch(output); m != nil {
		return string(m[1]), nil
	}
	return "unknown", nil
}

func tail(s string, lines int) string {
	parts := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(parts) > lines {
		parts = parts[len(parts)-lines:]
	}
	return strings.Join(parts, "\n")
}
