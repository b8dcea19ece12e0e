package subtitle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocate(t *testing.T) {
	s := Sentence{Speaker: "A", Start: 0, End: 1000}

	cues, err := Allocate(s, []string{"AB", "ABCD"}, 54)
	require.NoError(t, err)
	require.Len(t, cues, 2)

	assert.Equal(t, int64(0), cues[0].Start)
	assert.Equal(t, int64(333), cues[0].End)
	assert.Equal(t, int64(333), cues[1].Start)
	assert.InDelta(t, 1000, cues[1].End, 1)

	for _, c := range cues {
		assert.Equal(t, 54, c.FontSize)
		assert.Equal(t, "#FFFFFF", c.FontColor)
		assert.LessOrEqual(t, c.Start, c.End)
	}
}

func TestAllocate_CountsCodePoints(t *testing.T) {
	s := Sentence{Speaker: "B", Start: 1000, End: 4000}

	// Two CJK runes and one ASCII rune: 2/3 and 1/3 of the span.
	cues, err := Allocate(s, []string{"你好", "a"}, 20)
	require.NoError(t, err)
	require.Len(t, cues, 2)

	assert.Equal(t, Cue{Text: "你好", Start: 1000, End: 3000, FontColor: "#FFFF00", FontSize: 20}, cues[0])
	assert.Equal(t, Cue{Text: "a", Start: 3000, End: 4000, FontColor: "#FFFF00", FontSize: 20}, cues[1])
}

func TestAllocate_SingleFragmentKeepsSpan(t *testing.T) {
	s := Sentence{Start: 3000, End: 5200}

	cues, err := Allocate(s, []string{"Goodbye now."}, 16)
	require.NoError(t, err)
	require.Len(t, cues, 1)
	assert.Equal(t, int64(3000), cues[0].Start)
	assert.Equal(t, int64(5200), cues[0].End)
}

func TestAllocate_EmptyFragments(t *testing.T) {
	s := Sentence{Text: "x", Start: 0, End: 1000}

	_, err := Allocate(s, nil, 16)
	assert.ErrorIs(t, err, ErrEmptyFragments)

	_, err = Allocate(s, []string{"", ""}, 16)
	assert.ErrorIs(t, err, ErrEmptyFragments)
}

func TestSpeakerColor(t *testing.T) {
	assert.Equal(t, "#FFFFFF", SpeakerColor("A"))
	assert.Equal(t, "#FFFF00", SpeakerColor("b"))
	assert.Equal(t, DefaultColor, SpeakerColor("Z"))
	assert.Equal(t, DefaultColor, SpeakerColor(""))
}
