// Package audio prepares the audio track that is sent for transcription.
package audio

import (
	"context"
	"errors"
)

// ErrNoAudio is returned when the input has no audio stream to extract.
var ErrNoAudio = errors.New("audio: input has no audio stream")

// ExtractOpts configures the extracted track.
type ExtractOpts struct {
	// SampleRate in Hz. Default: 16000.
	SampleRate int

	// Channels in the output. Default: 1 (mono).
	Channels int

	// Bitrate passed to the encoder, e.g. "64k". Default: "64k".
	Bitrate string
}

// DefaultExtractOpts returns the options used for speech transcription.
func DefaultExtractOpts() ExtractOpts {
	return ExtractOpts{
		SampleRate: 16000,
		Channels:   1,
		Bitrate:    "64k",
	}
}

// Extractor pulls the audio track out of a video file.
type Extractor interface {
	// Extract writes the audio of videoPath to outputPath as MP3 and
	// returns the duration of the extracted track in seconds.
	Extract(ctx context.Context, videoPath, outputPath string, opts ExtractOpts) (float64, error)
}
