// Package translate turns source sentences into translated, display-sized
// fragments. Each sentence yields an ordered list of fragments; a sentence
// whose translation or split failed yields an empty list.
package translate

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Translator translates sentences and splits every translation into
// fragments of at most maxLen characters.
//
// The result has one entry per input text, in order. Per-sentence failures
// are not errors: a failed translation falls back to the source text and a
// failed split leaves that sentence without fragments. An error is returned
// only when the whole call cannot proceed, such as a cancelled context.
type Translator interface {
	Translate(ctx context.Context, texts []string, maxLen int) ([][]string, error)
}

// LanguageName returns the English display name of a BCP 47 tag, e.g.
// "Simplified Chinese" for "zh-Hans". Unknown tags are returned unchanged.
func LanguageName(tag string) string {
	t, err := language.Parse(tag)
	if err != nil {
		return tag
	}
	if name := display.English.Tags().Name(t); name != "" {
		return name
	}
	return tag
}

// stripCodeFence removes a surrounding ```json ... ``` block some models
// wrap JSON replies in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// padResults makes sure there is one entry per input.
func padResults(out [][]string, n int) [][]string {
	if len(out) >= n {
		return out[:n]
	}
	return append(out, make([][]string, n-len(out))...)
}

func errMismatch(want, got int) error {
	return fmt.Errorf("translate: expected %d translations, got %d", want, got)
}
