package instagram

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nasagram/pkg/nasa"
)

func TestBuildCaption(t *testing.T) {
	apod := &nasa.APOD{
		Date:        "2024-01-15",
		Title:       "Comet over Mountains",
		Explanation: "A bright comet rises over snow covered peaks.",
		Copyright:   " Jane Doe ",
		MediaType:   "image",
	}

	caption := BuildCaption(apod)

	assert.Contains(t, caption, "🌟 Comet over Mountains")
	assert.Contains(t, caption, "📅 2024-01-15")
	assert.Contains(t, caption, "A bright comet rises over snow covered peaks.")
	assert.Contains(t, caption, "📸 Credit: Jane Doe", "copyright should be trimmed")
	assert.Contains(t, caption, "https://apod.nasa.gov/apod/")
	assert.LessOrEqual(t, len(caption), CaptionLimit)
}

func TestBuildCaptionWithoutCopyright(t *testing.T) {
	caption := BuildCaption(&nasa.APOD{
		Date:        "2024-01-15",
		Title:       "Plain",
		Explanation: "x",
	})

	assert.NotContains(t, caption, "Credit:")
}

func TestBuildCaptionDefaultTitle(t *testing.T) {
	caption := BuildCaption(&nasa.APOD{Date: "2024-01-15"})
	assert.Contains(t, caption, "🌟 Astronomy Picture of the Day")
}

func TestBuildCaptionHashtagCount(t *testing.T) {
	caption := BuildCaption(&nasa.APOD{Date: "2024-01-15", Title: "T", Explanation: "e"})

	lines := strings.Split(caption, "\n")
	last := lines[len(lines)-1]

	tags := strings.Fields(last)
	require.Len(t, tags, MaxHashtags)
	for _, tag := range tags {
		assert.True(t, strings.HasPrefix(tag, "#"), "expected hashtag, got %q", tag)
	}
}

func TestBuildCaptionLongExplanationStaysUnderLimit(t *testing.T) {
	caption := BuildCaption(&nasa.APOD{
		Date:        "2024-01-15",
		Title:       "Very Long",
		Explanation: strings.Repeat("galaxies and nebulae everywhere ", 200),
		Copyright:   "Some Observatory",
	})

	assert.LessOrEqual(t, len(caption), CaptionLimit)
	assert.Contains(t, caption, "...", "long explanations are truncated with an ellipsis")
}

func TestTruncateAtWord(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"within limit", "short text", 100, "short text"},
		{"exactly limit", "12345", 5, "12345"},
		{"cuts at word boundary", "the quick brown fox", 12, "the quick..."},
		{"no space to cut at", "abcdefghij", 5, "abcde..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TruncateAtWord(tt.text, tt.limit))
		})
	}
}

func TestTruncateAtWordMultibyte(t *testing.T) {
	// No spaces, so the cut lands inside the text; it must land on a rune
	// boundary.
	text := strings.Repeat("é", 10)

	got := TruncateAtWord(text, 5)
	assert.Equal(t, strings.Repeat("é", 5)+"...", got)
	assert.True(t, utf8.ValidString(got))

	assert.Equal(t, text, TruncateAtWord(text, 10), "rune count within limit is unchanged")
}
