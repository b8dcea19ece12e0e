package subtitle

import (
	"errors"
	"fmt"
	"math"
)

// ErrEmptyFragments is returned by Allocate when the fragments carry no
// characters to distribute time over. Callers skip the sentence.
var ErrEmptyFragments = errors.New("subtitle: fragments have zero total length")

// Allocate gives every fragment a share of the sentence's time span
// proportional to its character count. Lengths are counted in code points.
//
// Each boundary is rounded on its own with math.Round, so neighbouring cues
// may overlap or leave a gap of up to 1 ms.
func Allocate(sentence Sentence, fragments []string, fontSize int) ([]Cue, error) {
	lengths := make([]int, len(fragments))
	total := 0
	for i, f := range fragments {
		lengths[i] = runeLen(f)
		total += lengths[i]
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: %d fragments for %q", ErrEmptyFragments, len(fragments), sentence.Text)
	}

	duration := float64(sentence.End - sentence.Start)
	color := SpeakerColor(sentence.Speaker)

	cues := make([]Cue, 0, len(fragments))
	before := 0
	for i, f := range fragments {
		beginRate := float64(before) / float64(total)
		lenRate := float64(lengths[i]) / float64(total)

		start := math.Round(float64(sentence.Start) + duration*beginRate)
		end := math.Round(start + duration*lenRate)

		cues = append(cues, Cue{
			Text:      f,
			Start:     int64(start),
			End:       int64(end),
			FontColor: color,
			FontSize:  fontSize,
		})
		before += lengths[i]
	}

	return cues, nil
}
