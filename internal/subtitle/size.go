package subtitle

import "math"

// MinFontSize is the smallest base font size CalcSize returns.
const MinFontSize = 16

// VideoDimension is the pixel size of the source video.
type VideoDimension struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SubtitleSize is the base font size chosen for a video.
type SubtitleSize struct {
	FontSize int            `json:"font_size"`
	Video    VideoDimension `json:"video"`
}

// CalcSize derives the base font size from the video height: 5% of the
// height, never below MinFontSize.
func CalcSize(dim VideoDimension) SubtitleSize {
	fs := int(math.Round(float64(dim.Height) * 0.05))
	return SubtitleSize{
		FontSize: max(MinFontSize, fs),
		Video:    dim,
	}
}

// ChunkSize is the number of characters that fit on one display line.
func (s SubtitleSize) ChunkSize() int {
	if s.FontSize <= 0 {
		return 1
	}
	return max(1, s.Video.Width/s.FontSize)
}
