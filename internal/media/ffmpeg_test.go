package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicolasFive/VideoTingYi/internal/subtitle"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH, skipping test")
	}
}

// fakeBinary writes a shell script standing in for ffmpeg or ffprobe.
func fakeBinary(t *testing.T, name, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

// createTestVideo creates a simple test video using ffmpeg.
func createTestVideo(t *testing.T, path string, width, height int) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=blue:s=%dx%d:d=1", width, height),
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=mono:d=1",
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-c:a", "aac",
		"-shortest",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test video: %v\noutput: %s", err, output)
	}
}

func TestNewFFmpegProcessor(t *testing.T) {
	t.Run("default paths", func(t *testing.T) {
		p := NewFFmpegProcessor("")
		assert.Equal(t, "ffmpeg", p.ffmpegPath)
		assert.Equal(t, "ffprobe", p.ffprobePath)
	})

	t.Run("custom paths", func(t *testing.T) {
		p := NewFFmpegProcessor("/usr/local/bin/ffmpeg", WithFFprobePath("/usr/local/bin/ffprobe"))
		assert.Equal(t, "/usr/local/bin/ffmpeg", p.ffmpegPath)
		assert.Equal(t, "/usr/local/bin/ffprobe", p.ffprobePath)
	})

	t.Run("empty ffprobe option keeps default", func(t *testing.T) {
		p := NewFFmpegProcessor("", WithFFprobePath(""))
		assert.Equal(t, "ffprobe", p.ffprobePath)
	})
}

func TestParseDimensions(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    subtitle.VideoDimension
		wantErr error
	}{
		{"plain", "1920x1080\n", subtitle.VideoDimension{Width: 1920, Height: 1080}, nil},
		{"trailing separator", "1280x720x\n", subtitle.VideoDimension{Width: 1280, Height: 720}, nil},
		{"extra lines", "640x360\n\n", subtitle.VideoDimension{Width: 640, Height: 360}, nil},
		{"empty", "  \n", subtitle.VideoDimension{}, ErrNoVideoStream},
		{"zero", "0x0", subtitle.VideoDimension{}, ErrInvalidDimensions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDimensions(tt.out)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseDimensions("garbage")
	assert.Error(t, err)
}

func TestProbeDimensions_FakeBinary(t *testing.T) {
	ctx := context.Background()

	t.Run("parses ffprobe output", func(t *testing.T) {
		probe := fakeBinary(t, "ffprobe", `echo "1280x720"`)
		p := NewFFmpegProcessor("", WithFFprobePath(probe))

		dim, err := p.ProbeDimensions(ctx, "video.mp4")
		require.NoError(t, err)
		assert.Equal(t, subtitle.VideoDimension{Width: 1280, Height: 720}, dim)
	})

	t.Run("ffprobe failure", func(t *testing.T) {
		probe := fakeBinary(t, "ffprobe", "echo 'No such file' >&2\nexit 1")
		p := NewFFmpegProcessor("", WithFFprobePath(probe))

		_, err := p.ProbeDimensions(ctx, "missing.mp4")
		assert.ErrorIs(t, err, ErrFFprobeExecution)
		assert.Contains(t, err.Error(), "No such file")
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := NewFFmpegProcessor("").ProbeDimensions(ctx, "")
		assert.ErrorIs(t, err, ErrEmptyPath)
	})
}

func TestBurnSubtitles_FakeBinary(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args.txt")
	ffmpeg := fakeBinary(t, "ffmpeg", fmt.Sprintf("for a in \"$@\"; do echo \"$a\" >> %q; done\n", argsFile))
	p := NewFFmpegProcessor(ffmpeg)

	err := p.BurnSubtitles(context.Background(), "in.mp4", "/work/sub.ass", "out.mp4")
	require.NoError(t, err)

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	args := strings.Split(strings.TrimSpace(string(data)), "\n")

	assert.Equal(t, []string{
		"-y", "-i", "in.mp4",
		"-vf", "ass=/work/sub.ass",
		"-c:v", "libx264", "-preset", "fast", "-crf", "23",
		"-c:a", "aac", "-b:a", "128k",
		"out.mp4",
	}, args)
}

func TestBurnSubtitles_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty paths", func(t *testing.T) {
		err := NewFFmpegProcessor("").BurnSubtitles(ctx, "", "sub.ass", "out.mp4")
		assert.ErrorIs(t, err, ErrEmptyPath)
	})

	t.Run("ffmpeg failure is an FFmpegError", func(t *testing.T) {
		ffmpeg := fakeBinary(t, "ffmpeg", "echo 'boom' >&2\nexit 2")
		err := NewFFmpegProcessor(ffmpeg).BurnSubtitles(ctx, "in.mp4", "sub.ass", "out.mp4")

		var ffErr *FFmpegError
		require.True(t, errors.As(err, &ffErr))
		assert.Contains(t, ffErr.Stderr, "boom")
		assert.Contains(t, ffErr.Error(), "ass=sub.ass")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ffmpeg := fakeBinary(t, "ffmpeg", "sleep 5")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := NewFFmpegProcessor(ffmpeg).BurnSubtitles(ctx, "in.mp4", "sub.ass", "out.mp4")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestEscapeFilterPath(t *testing.T) {
	assert.Equal(t, "/tmp/a/sub.ass", escapeFilterPath("/tmp/a/sub.ass"))
	assert.Equal(t, `C\:/work/it\'s\,a\[1\].ass`, escapeFilterPath(`C:/work/it's,a[1].ass`))
}

func TestProbeAndBurn_RealFFmpeg(t *testing.T) {
	skipIfNoFFmpeg(t)

	out, err := exec.Command("ffmpeg", "-hide_banner", "-filters").CombinedOutput()
	if err != nil || !strings.Contains(string(out), " ass ") {
		t.Skip("ffmpeg built without libass, skipping test")
	}

	dir := t.TempDir()
	video := filepath.Join(dir, "in.mp4")
	createTestVideo(t, video, 320, 240)

	p := NewFFmpegProcessor("")
	ctx := context.Background()

	dim, err := p.ProbeDimensions(ctx, video)
	require.NoError(t, err)
	assert.Equal(t, subtitle.VideoDimension{Width: 320, Height: 240}, dim)

	size := subtitle.CalcSize(dim)
	sub := filepath.Join(dir, "subtitle.ass")
	require.NoError(t, subtitle.WriteFile(sub, []subtitle.Cue{{Text: "hello", Start: 0, End: 900}}, subtitle.OptionsFor(size, "")))

	output := filepath.Join(dir, "out.mp4")
	require.NoError(t, p.BurnSubtitles(ctx, video, sub, output))

	burned, err := p.ProbeDimensions(ctx, output)
	require.NoError(t, err)
	assert.Equal(t, dim, burned)
}
