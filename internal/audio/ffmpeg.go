package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// FFmpegExtractor implements Extractor using the ffmpeg CLI.
type FFmpegExtractor struct {
	ffmpegPath string
}

// NewFFmpegExtractor creates a new FFmpegExtractor.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found in PATH).
func NewFFmpegExtractor(ffmpegPath string) *FFmpegExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegExtractor{ffmpegPath: ffmpegPath}
}

func (o ExtractOpts) withDefaults() ExtractOpts {
	d := DefaultExtractOpts()
	if o.SampleRate <= 0 {
		o.SampleRate = d.SampleRate
	}
	if o.Channels <= 0 {
		o.Channels = d.Channels
	}
	if o.Bitrate == "" {
		o.Bitrate = d.Bitrate
	}
	return o
}

// Extract implements Extractor.Extract.
func (e *FFmpegExtractor) Extract(ctx context.Context, videoPath, outputPath string, opts ExtractOpts) (float64, error) {
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return 0, fmt.Errorf("input file does not exist: %s", videoPath)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return 0, fmt.Errorf("create output directory: %w", err)
	}

	opts = opts.withDefaults()
	args := []string{
		"-y",
		"-hide_banner",
		"-i", videoPath,
		"-vn",
		"-ac", strconv.Itoa(opts.Channels),
		"-ar", strconv.Itoa(opts.SampleRate),
		"-c:a", "libmp3lame",
		"-b:a", opts.Bitrate,
		outputPath,
	}

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if hasNoAudioStream(stderr.String()) {
			return 0, ErrNoAudio
		}
		return 0, fmt.Errorf("ffmpeg error: %w, stderr: %s", err, stderr.String())
	}

	return e.Duration(ctx, outputPath)
}

// Duration returns the duration of a media file in seconds.
func (e *FFmpegExtractor) Duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, e.ffmpegPath,
		"-i", path,
		"-hide_banner",
		"-f", "null", "-",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	// ffmpeg reports the input duration on stderr even when the null muxer
	// exits non-zero.
	_ = cmd.Run()
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	return parseDuration(stderr.String())
}

var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)

// parseDuration reads "Duration: HH:MM:SS.frac" from ffmpeg's banner.
func parseDuration(output string) (float64, error) {
	m := durationRe.FindStringSubmatch(output)
	if len(m) < 5 {
		return 0, fmt.Errorf("could not parse duration from ffmpeg output: %q", firstLines(output, 5))
	}

	hours, _ := strconv.ParseFloat(m[1], 64)
	minutes, _ := strconv.ParseFloat(m[2], 64)
	seconds, _ := strconv.ParseFloat(m[3], 64)
	frac, _ := strconv.ParseFloat(m[4], 64)

	divisor := 1.0
	for range len(m[4]) {
		divisor *= 10
	}

	return hours*3600 + minutes*60 + seconds + frac/divisor, nil
}

func hasNoAudioStream(stderr string) bool {
	return strings.Contains(stderr, "does not contain any stream") ||
		strings.Contains(stderr, "Output file #0 does not contain any stream") ||
		strings.Contains(stderr, "matches no streams")
}

func firstLines(s string, n int) string {
	lines := strings.SplitN(s, "\n", n+1)
	if len(lines) > n {
		lines = lines[:n]
	}
	return strings.Join(lines, "\n")
}

// Verify interface implementation at compile time.
var _ Extractor = (*FFmpegExtractor)(nil)
