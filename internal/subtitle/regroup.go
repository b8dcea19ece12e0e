package subtitle

// maxLinesPerCue bounds how many wrapped lines one regrouped cue shows.
const maxLinesPerCue = 2

// Regroup wraps every cue to chunkSize and returns a new cue list in which
// no cue shows more than two lines.
//
// A cue that wraps to more than two lines is split into several cues. Its
// time span is divided evenly across the lines with SplitInterval and each
// new cue takes the span of the lines it shows. A cue that fits on one line
// is kept as is. Anything else becomes one cue with its lines joined by
// LineBreak. Cues whose text wraps to nothing are dropped.
func Regroup(cues []Cue, chunkSize int) []Cue {
	out := make([]Cue, 0, len(cues))
	for _, c := range cues {
		out = append(out, regroupCue(c, chunkSize)...)
	}
	return out
}

func regroupCue(c Cue, chunkSize int) []Cue {
	chunks := Wrap(c.Text, chunkSize)

	switch {
	case len(chunks) > maxLinesPerCue:
		spans, err := SplitInterval(c.Start, c.End, len(chunks))
		if err != nil {
			// Inverted cue span; keep the lines on the original timing.
			spans = make([]Span, len(chunks))
			for i := range spans {
				spans[i] = Span{Start: c.Start, End: c.End}
			}
		}
		var grouped []Cue
		for i := 0; i < len(chunks); i += maxLinesPerCue {
			j := min(i+maxLinesPerCue, len(chunks))
			grouped = append(grouped, Cue{
				Text:      joinLines(chunks[i:j]),
				Start:     spans[i].Start,
				End:       spans[j-1].End,
				FontColor: c.FontColor,
				FontSize:  c.FontSize,
			})
		}
		return grouped
	case runeLen(c.Text) <= chunkSize+1:
		return []Cue{c}
	case len(chunks) == 0:
		return nil
	default:
		c.Text = joinLines(chunks)
		return []Cue{c}
	}
}
