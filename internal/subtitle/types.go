// Package subtitle turns word-timestamped transcripts and translated
// sentence fragments into timed, wrapped subtitle cues and renders them as
// an SSA/ASS subtitle file.
//
// Everything in this package is a pure transform over its inputs. The only
// I/O is WriteFile at the very end of the pipeline.
package subtitle

import "unicode/utf8"

// LineBreak separates display lines inside a Cue's text.
// The renderer turns it into the forced-newline sequence \N.
const LineBreak = "\n"

// Word is a single transcribed word with its time span in milliseconds.
type Word struct {
	Text       string  `json:"text"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker"`
}

// Utterance is one speaker turn returned by the transcriber.
// Words are time ordered and follow the whitespace tokenisation of Text.
type Utterance struct {
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Words      []Word  `json:"words"`
}

// Sentence is a sub-span of an Utterance. Start and End come from the first
// and last aligned word.
type Sentence struct {
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Start      int64   `json:"start"`
	End        int64   `json:"end"`
	Words      []Word  `json:"words"`
}

// Cue is a single displayed subtitle event.
type Cue struct {
	Text      string `json:"text"`
	Start     int64  `json:"start"`
	End       int64  `json:"end"`
	FontColor string `json:"font_color,omitempty"`
	FontSize  int    `json:"font_size,omitempty"`
}

// Span is a half-open integer interval [Start, End).
type Span struct {
	Start int64
	End   int64
}

// Len returns the length of the span.
func (s Span) Len() int64 {
	return s.End - s.Start
}

// runeLen counts code points, so a CJK character counts as one.
func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
