package subtitle

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTime(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0:00:00.00"},
		{68760, "0:01:08.76"},
		{999, "0:00:00.99"},
		{3723450, "1:02:03.45"},
		{360000000, "100:00:00.00"},
		{-5, "0:00:00.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTime(tt.ms), "ms=%d", tt.ms)
	}
}

func TestEscapeText(t *testing.T) {
	assert.Equal(t, `Hello\NWorld{{x}}`, EscapeText("Hello\nWorld{x}"))
	assert.Equal(t, `a\Nb`, EscapeText("a\r\nb"))
	assert.Equal(t, `a\Nb`, EscapeText(`a\nb`))
	assert.Equal(t, "plain", EscapeText("plain"))
}

func TestHexToSSAColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#FF0000", "&H0000FF&"},
		{"00ff00", "&H00FF00&"},
		{"#1a2b3c", "&H3C2B1A&"},
		{"#abc", ""},
		{"zzzzzz", ""},
		{"#FF00000", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HexToSSAColor(tt.in), "in=%q", tt.in)
	}
}

func TestRender_HeaderValuesStayOnOneLine(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, []Cue{{Text: "hi", Start: 0, End: 500}}, RenderOptions{
		Width:    1280,
		Height:   720,
		FontSize: 36,
		Title:    "Talk\r\n[Events]\nDialogue: 0,0:00:00.00,0:00:09.00,Default,,0,0,0,,injected",
		FontName: "Evil,99\nStyle: X",
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "Title: Talk [Events] Dialogue: 0,0:00:00.00,0:00:09.00,Default,,0,0,0,,injected\n")
	assert.Contains(t, out, "Style: Default,Evil 99 Style: X,36,")
	assert.Equal(t, 1, strings.Count(out, "[Events]\n"))
	assert.Equal(t, 1, strings.Count(out, "\nDialogue: "))
}

func TestRender_BlankTitleUsesDefault(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, nil, RenderOptions{Width: 640, Height: 360, Title: "\n\r\n"}))
	assert.True(t, strings.HasPrefix(buf.String(), "[Script Info]\nTitle: Generated Subtitle\n"))
}

func TestRender(t *testing.T) {
	cues := []Cue{
		{Text: "Hello\nworld", Start: 0, End: 1400, FontColor: "#FFFF00", FontSize: 99},
		{Text: "{plain}", Start: 68760, End: 70000},
		{Text: "bad colour", Start: 70000, End: 71000, FontColor: "nope"},
	}

	var buf bytes.Buffer
	err := Render(&buf, cues, RenderOptions{Width: 1920, Height: 1080, FontSize: 54, FontName: "Noto Sans"})
	require.NoError(t, err)

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "[Script Info]\nTitle: Generated Subtitle\n"))
	assert.Contains(t, out, "PlayResX: 1920\n")
	assert.Contains(t, out, "PlayResY: 1080\n")
	assert.Contains(t, out, "Style: Default,Noto Sans,54,&H00FFFFFF,")
	assert.Contains(t, out, "[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	dialogue := lines[len(lines)-3:]
	assert.Equal(t, `Dialogue: 0,0:00:00.00,0:00:01.40,Default,,10,10,0,,{\c&H00FFFF&\fs54}Hello\Nworld`, dialogue[0])
	assert.Equal(t, `Dialogue: 0,0:01:08.76,0:01:10.00,Default,,10,10,0,,{{plain}}`, dialogue[1])
	assert.Equal(t, `Dialogue: 0,0:01:10.00,0:01:11.00,Default,,10,10,0,,bad colour`, dialogue[2])
}

func TestRender_Defaults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, nil, RenderOptions{Width: 640, Height: 360}))
	assert.Contains(t, buf.String(), "Style: Default,Arial,16,")
	assert.False(t, strings.Contains(buf.String(), "Dialogue:"))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subtitle.ass")

	err := WriteFile(path, []Cue{{Text: "你好", Start: 0, End: 1000}}, RenderOptions{Width: 1280, Height: 720, FontSize: 36})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), ",,你好\n")
}

func TestWriteFile_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "subtitle.ass")

	err := WriteFile(path, nil, RenderOptions{Width: 1280, Height: 720})
	assert.Error(t, err)
}
