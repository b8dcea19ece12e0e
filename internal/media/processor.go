// Package media probes source videos and burns rendered subtitles into them.
package media

import (
	"context"

	"github.com/NicolasFive/VideoTingYi/internal/subtitle"
)

// Prober reads stream metadata from a media file.
type Prober interface {
	// ProbeDimensions returns the width and height of the first video stream.
	ProbeDimensions(ctx context.Context, path string) (subtitle.VideoDimension, error)
}

// Muxer produces the final video.
type Muxer interface {
	// BurnSubtitles re-encodes videoPath with the SSA file at subtitlePath
	// drawn onto every frame and writes the result to outputPath.
	BurnSubtitles(ctx context.Context, videoPath, subtitlePath, outputPath string) error
}

// Processor defines the interface for the video operations of a job.
// Implementations should use ffmpeg or similar tools for media manipulation.
type Processor interface {
	Prober
	Muxer
}
