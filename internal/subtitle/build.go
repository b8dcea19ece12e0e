package subtitle

// BuildStats counts what happened to the sentences of one Build call.
type BuildStats struct {
	Sentences int `json:"sentences"`
	// Partial sentences were aligned to a prefix of their words only.
	Partial int `json:"partial"`
	// Failed sentences matched no word and were skipped.
	Failed int `json:"failed"`
	// Empty sentences had no usable fragments and were skipped.
	Empty int `json:"empty"`
	Cues  int `json:"cues"`
}

// Texts returns the sentence texts of the alignments that have a span, in
// order. These are the texts worth sending to a translator.
func Texts(alignments []Alignment) []string {
	texts := make([]string, 0, len(alignments))
	for _, a := range alignments {
		if a.HasSpan() {
			texts = append(texts, a.Sentence.Text)
		}
	}
	return texts
}

// Build turns aligned sentences and their translated fragments into the
// final cue list. fragments[i] belongs to the i-th alignment that has a span,
// matching the order of Texts. Sentences without a span or without
// fragments are skipped. The result is regrouped for size.
func Build(alignments []Alignment, fragments [][]string, size SubtitleSize) ([]Cue, BuildStats) {
	stats := BuildStats{Sentences: len(alignments)}
	var cues []Cue

	k := 0
	for _, a := range alignments {
		if !a.HasSpan() {
			stats.Failed++
			continue
		}
		if a.Status == AlignPartial {
			stats.Partial++
		}

		var frags []string
		if k < len(fragments) {
			frags = fragments[k]
		}
		k++

		c, err := Allocate(a.Sentence, frags, size.FontSize)
		if err != nil {
			stats.Empty++
			continue
		}
		cues = append(cues, c...)
	}

	cues = Regroup(cues, size.ChunkSize())
	stats.Cues = len(cues)
	return cues, stats
}
