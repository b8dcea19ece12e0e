package subtitle

import "strings"

func isPauseMark(runes []rune, i int) bool {
	switch runes[i] {
	case ',', '，', ';', '；', ':', '：', '。', '、', '．', ' ':
		return true
	case '.':
		return !isDecimalPoint(runes, i)
	}
	return false
}

// isNormalMark reports marks that may overflow a full line by one rune.
func isNormalMark(r rune) bool {
	switch r {
	case '?', '？', '!', '！':
		return true
	}
	return false
}

// Wrap breaks text into display lines of at most chunkSize runes. Pause
// marks end the current line and are dropped. A trailing ? or ! is kept on
// the line it closes even when that line is already full, so a line can be
// one rune longer than chunkSize. A chunkSize below 1 is treated as 1.
//
//	Wrap("ab,cdefg", 3) => ["ab", "cde", "fg"]
func Wrap(text string, chunkSize int) []string {
	if chunkSize < 1 {
		chunkSize = 1
	}

	runes := []rune(text)
	var (
		chunks []string
		buf    []rune
	)
	flush := func() {
		if len(buf) > 0 {
			chunks = append(chunks, string(buf))
			buf = buf[:0]
		}
	}

	for i, r := range runes {
		if isPauseMark(runes, i) {
			flush()
			continue
		}
		if len(buf) >= chunkSize {
			if isNormalMark(r) {
				buf = append(buf, r)
				flush()
				continue
			}
			flush()
		}
		buf = append(buf, r)
	}
	flush()

	return chunks
}

// joinLines joins wrapped chunks into one cue text.
func joinLines(chunks []string) string {
	return strings.Join(chunks, LineBreak)
}
