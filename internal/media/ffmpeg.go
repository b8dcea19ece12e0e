package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/NicolasFive/VideoTingYi/internal/subtitle"
)

// Static errors for media operations.
var (
	// ErrInvalidDimensions is returned when ffprobe reports a non-positive size.
	ErrInvalidDimensions = errors.New("media: invalid dimensions: width and height must be positive")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("media: ffprobe execution failed")
	// ErrNoVideoStream is returned when the probed file has no video stream.
	ErrNoVideoStream = errors.New("media: no video stream found")
	// ErrEmptyPath is returned when a required input path is empty.
	ErrEmptyPath = errors.New("media: path must not be empty")
)

// FFmpegProcessor implements Processor using the ffmpeg and ffprobe CLIs.
type FFmpegProcessor struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// Option configures an FFmpegProcessor.
type Option func(*FFmpegProcessor)

// WithFFprobePath sets the ffprobe binary.
func WithFFprobePath(path string) Option {
	return func(p *FFmpegProcessor) {
		if path != "" {
			p.ffprobePath = path
		}
	}
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegProcessor(ffmpegPath string, opts ...Option) *FFmpegProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	p := &FFmpegProcessor{ffmpegPath: ffmpegPath, ffprobePath: "ffprobe"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ProbeDimensions returns the width and height of the first video stream.
func (p *FFmpegProcessor) ProbeDimensions(ctx context.Context, path string) (subtitle.VideoDimension, error) {
	if path == "" {
		return subtitle.VideoDimension{}, ErrEmptyPath
	}

	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return subtitle.VideoDimension{}, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return subtitle.VideoDimension{}, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	return parseDimensions(stdout.String())
}

// parseDimensions reads ffprobe's "WIDTHxHEIGHT" csv line. Some containers
// print a trailing separator, so only the first line's leading fields count.
func parseDimensions(out string) (subtitle.VideoDimension, error) {
	line := strings.TrimSpace(out)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" {
		return subtitle.VideoDimension{}, ErrNoVideoStream
	}

	var dim subtitle.VideoDimension
	if _, err := fmt.Sscanf(strings.TrimRight(line, "x"), "%dx%d", &dim.Width, &dim.Height); err != nil {
		return subtitle.VideoDimension{}, fmt.Errorf("parse dimensions %q: %w", line, err)
	}
	if dim.Width <= 0 || dim.Height <= 0 {
		return subtitle.VideoDimension{}, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, dim.Width, dim.Height)
	}
	return dim, nil
}

// BurnSubtitles draws the subtitle file onto the video with the ass filter,
// re-encoding with libx264/aac.
func (p *FFmpegProcessor) BurnSubtitles(ctx context.Context, videoPath, subtitlePath, outputPath string) error {
	if videoPath == "" || subtitlePath == "" || outputPath == "" {
		return ErrEmptyPath
	}

	args := []string{
		"-y",            // Overwrite output file
		"-i", videoPath, // Input video
		"-vf", "ass=" + escapeFilterPath(subtitlePath), // Render subtitles onto frames
		"-c:v", "libx264", // Video codec
		"-preset", "fast", // Encoding speed preset
		"-crf", "23", // Quality (lower = better, 23 is default)
		"-c:a", "aac", // Audio codec
		"-b:a", "128k", // Audio bitrate
		outputPath,
	}
	return p.runFFmpeg(ctx, args)
}

// filterPathReplacer escapes characters that are special inside an ffmpeg
// filter graph option value.
var filterPathReplacer = strings.NewReplacer(
	`\`, `\\`,
	`:`, `\:`,
	`'`, `\'`,
	`,`, `\,`,
	`;`, `\;`,
	`[`, `\[`,
	`]`, `\]`,
)

func escapeFilterPath(path string) string {
	return filterPathReplacer.Replace(filepath.ToSlash(path))
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (p *FFmpegProcessor) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Check if context was cancelled
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
