package subtitle

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// AlignStatus reports how much of a sentence could be matched against the
// utterance's word timestamps.
type AlignStatus int

const (
	// AlignFull means every token of the sentence matched a word.
	AlignFull AlignStatus = iota
	// AlignPartial means matching stopped early; trailing tokens were dropped.
	AlignPartial
	// AlignFailed means no token matched; the sentence has no time span.
	AlignFailed
)

// String returns a lower-case name for logging.
func (s AlignStatus) String() string {
	switch s {
	case AlignFull:
		return "full"
	case AlignPartial:
		return "partial"
	case AlignFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Alignment is the result of attaching one sentence to its word span.
type Alignment struct {
	Sentence Sentence
	Status   AlignStatus
	// Matched is the number of tokens that found their word.
	Matched int
	// Tokens is the number of whitespace tokens in the sentence text.
	Tokens int
}

// HasSpan reports whether the sentence got a real time span.
func (a Alignment) HasSpan() bool {
	return a.Status != AlignFailed
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

// isCloser reports closing quotes and brackets that belong to the sentence
// they follow, as in `"stop."` or `(really?)`.
func isCloser(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '»', '’', '”', '）', '」', '』', '】', '》':
		return true
	}
	return false
}

func isCJKTerminal(r rune) bool {
	return r == '。' || r == '！' || r == '？'
}

// isDecimalPoint reports whether runes[i] is a '.' between two digits.
func isDecimalPoint(runes []rune, i int) bool {
	if runes[i] != '.' || i == 0 || i+1 >= len(runes) {
		return false
	}
	return unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1])
}

// followsSingleLetter reports whether runes[i] directly follows a
// one-letter token such as the "A" in "A.", "(A." or the "g" in "e.g.".
func followsSingleLetter(runes []rune, i int) bool {
	if i < 1 || !unicode.IsLetter(runes[i-1]) {
		return false
	}
	if i == 1 {
		return true
	}
	prev := runes[i-2]
	return unicode.IsSpace(prev) || unicode.IsPunct(prev)
}

// endsSentence decides whether the terminal run runes[i:j], followed by
// closers up to k, closes a sentence.
func endsSentence(runes []rune, i, j, k int) bool {
	for _, r := range runes[i:j] {
		if isCJKTerminal(r) {
			return true
		}
	}
	if isDecimalPoint(runes, i) {
		return false
	}
	// Latin terminals only count when a new token starts after them.
	if k < len(runes) && !unicode.IsSpace(runes[k]) {
		return false
	}
	if j-i == 1 && runes[i] == '.' && followsSingleLetter(runes, i) {
		return false
	}
	return true
}

// SplitSentences splits text after runs of terminal punctuation
// (. ! ? 。 ！ ？). The punctuation, and any closing quotes or brackets right
// after it, stay with their sentence. Decimal points and single-letter
// abbreviations never end a sentence.
func SplitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string

	emit := func(from, to int) {
		if s := strings.TrimSpace(string(runes[from:to])); s != "" {
			sentences = append(sentences, s)
		}
	}

	start := 0
	for i := 0; i < len(runes); {
		if !isTerminal(runes[i]) {
			i++
			continue
		}
		j := i
		for j < len(runes) && isTerminal(runes[j]) {
			j++
		}
		k := j
		for k < len(runes) && isCloser(runes[k]) {
			k++
		}
		if endsSentence(runes, i, j, k) {
			emit(start, k)
			start = k
		}
		i = k
	}
	emit(start, len(runes))

	return sentences
}

// aligner walks an utterance's words with a cursor shared by all of its
// sentences. It never moves backwards.
type aligner struct {
	words  []Word
	cursor int
}

func normalizeToken(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func (a *aligner) align(speaker, text string, fallbackConfidence float64) Alignment {
	tokens := strings.Fields(text)
	matched := make([]Word, 0, len(tokens))

	for _, tok := range tokens {
		if a.cursor >= len(a.words) {
			break
		}
		w := a.words[a.cursor]
		if normalizeToken(w.Text) != normalizeToken(tok) {
			break
		}
		matched = append(matched, w)
		a.cursor++
	}

	s := Sentence{
		Speaker:    speaker,
		Text:       text,
		Confidence: fallbackConfidence,
		Words:      matched,
	}

	res := Alignment{Matched: len(matched), Tokens: len(tokens)}
	switch {
	case len(matched) == 0:
		res.Status = AlignFailed
	case len(matched) < len(tokens):
		res.Status = AlignPartial
	default:
		res.Status = AlignFull
	}

	if len(matched) > 0 {
		s.Start = matched[0].Start
		s.End = matched[len(matched)-1].End
		var sum float64
		for _, w := range matched {
			sum += w.Confidence
		}
		s.Confidence = sum / float64(len(matched))
	}

	res.Sentence = s
	return res
}

// Align attaches each sentence text to a span of u.Words. Sentences are
// consumed in order and share one cursor; a mismatch ends the current
// sentence without moving the cursor, so the next sentence resumes from the
// first unmatched word.
func Align(u Utterance, sentences []string) []Alignment {
	a := &aligner{words: u.Words}
	out := make([]Alignment, 0, len(sentences))
	for _, text := range sentences {
		out = append(out, a.align(u.Speaker, text, u.Confidence))
	}
	return out
}

// SplitUtterance splits one utterance into sentences and aligns each
// sentence to the utterance's words.
func SplitUtterance(u Utterance) []Alignment {
	return Align(u, SplitSentences(u.Text))
}

// SplitUtterances runs SplitUtterance over every utterance and concatenates
// the results in order.
func SplitUtterances(utterances []Utterance) []Alignment {
	var out []Alignment
	for _, u := range utterances {
		out = append(out, SplitUtterance(u)...)
	}
	return out
}
