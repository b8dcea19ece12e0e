package subtitle

import (
	"regexp"
	"strings"
)

// DefaultColor is used for speakers outside the palette.
const DefaultColor = "#FFFFFF"

// speakerPalette keys the transcriber's speaker labels to RRGGBB colours.
var speakerPalette = map[string]string{
	"A": "#FFFFFF",
	"B": "#FFFF00",
	"C": "#00FFFF",
	"D": "#FF00FF",
	"E": "#00FF00",
	"F": "#FFA500",
}

// SpeakerColor returns the display colour for a speaker label.
func SpeakerColor(speaker string) string {
	if c, ok := speakerPalette[strings.ToUpper(strings.TrimSpace(speaker))]; ok {
		return c
	}
	return DefaultColor
}

var hexColorRe = regexp.MustCompile(`^#?([0-9A-Fa-f]{2})([0-9A-Fa-f]{2})([0-9A-Fa-f]{2})$`)

// HexToSSAColor converts "#RRGGBB" (the '#' is optional) into the SSA
// "&HBBGGRR&" form. Malformed input yields "", meaning no override.
func HexToSSAColor(hex string) string {
	m := hexColorRe.FindStringSubmatch(strings.TrimSpace(hex))
	if m == nil {
		return ""
	}
	return strings.ToUpper("&H" + m[3] + m[2] + m[1] + "&")
}
