package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultFontName is the style font when RenderOptions.FontName is empty.
const DefaultFontName = "Arial"

// RenderOptions describes the canvas and base style of a rendered file.
type RenderOptions struct {
	Width    int
	Height   int
	FontSize int
	FontName string
	Title    string
}

// OptionsFor builds RenderOptions for a probed subtitle size.
func OptionsFor(size SubtitleSize, fontName string) RenderOptions {
	return RenderOptions{
		Width:    size.Video.Width,
		Height:   size.Video.Height,
		FontSize: size.FontSize,
		FontName: fontName,
	}
}

// headerValue flattens s onto one header line.
func headerValue(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(s))
}

func (o RenderOptions) withDefaults() RenderOptions {
	o.Title = headerValue(o.Title)
	// A comma would shift every following Style field.
	o.FontName = strings.ReplaceAll(headerValue(o.FontName), ",", " ")
	if o.FontName == "" {
		o.FontName = DefaultFontName
	}
	if o.Title == "" {
		o.Title = "Generated Subtitle"
	}
	if o.FontSize <= 0 {
		o.FontSize = MinFontSize
	}
	return o
}

// FormatTime formats milliseconds as H:MM:SS.CC. Hours are not padded or
// bounded. Negative input is treated as zero.
//
//	FormatTime(68760) => "0:01:08.76"
func FormatTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	cs := (ms % 1000) / 10
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d:%02d.%02d", secs/3600, (secs%3600)/60, secs%60, cs)
}

var lineBreakReplacer = strings.NewReplacer(
	"\r\n", `\N`,
	"\n", `\N`,
	`\n`, `\N`,
)

// EscapeText doubles braces so they are not read as override blocks, then
// turns line breaks into the forced newline \N.
//
//	EscapeText("Hello\nWorld{x}") => `Hello\NWorld{{x}}`
func EscapeText(text string) string {
	text = strings.ReplaceAll(text, "{", "{{")
	text = strings.ReplaceAll(text, "}", "}}")
	return lineBreakReplacer.Replace(text)
}

func overrides(c Cue, baseSize int) string {
	var tags []string
	if c.FontColor != "" {
		if color := HexToSSAColor(c.FontColor); color != "" {
			tags = append(tags, `\c`+color)
		}
	}
	if c.FontSize > 0 {
		// Per-cue sizes are not honoured; every cue uses the base size.
		tags = append(tags, fmt.Sprintf(`\fs%d`, baseSize))
	}
	if len(tags) == 0 {
		return ""
	}
	return "{" + strings.Join(tags, "") + "}"
}

func writeHeader(w io.Writer, o RenderOptions) error {
	_, err := fmt.Fprintf(w, `[Script Info]
Title: %s
ScriptType: v4.00+
Collisions: Normal
PlayDepth: 0
PlayResX: %d
PlayResY: %d
WrapStyle: 1
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, TertiaryColour, BackColour, Bold, Italic, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, AlphaLevel, Encoding
Style: Default,%s,%d,&H00FFFFFF,&H000000FF,&H00000000,&H80000000,-1,0,3,2,2,2,20,20,30,0,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`, o.Title, o.Width, o.Height, o.FontName, o.FontSize)
	return err
}

// Render writes the SSA header followed by one Dialogue line per cue.
func Render(w io.Writer, cues []Cue, opts RenderOptions) error {
	opts = opts.withDefaults()
	bw := bufio.NewWriter(w)

	if err := writeHeader(bw, opts); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, c := range cues {
		_, err := fmt.Fprintf(bw, "Dialogue: 0,%s,%s,Default,,10,10,0,,%s%s\n",
			FormatTime(c.Start), FormatTime(c.End), overrides(c, opts.FontSize), EscapeText(c.Text))
		if err != nil {
			return fmt.Errorf("write cue %d: %w", i, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush subtitle: %w", err)
	}
	return nil
}

// WriteFile renders cues into a UTF-8 file at path, replacing any existing
// file.
func WriteFile(path string, cues []Cue, opts RenderOptions) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create subtitle file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close subtitle file: %w", cerr)
		}
	}()

	return Render(f, cues, opts)
}
