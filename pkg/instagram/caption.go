package instagram

import (
	"strings"

	"nasagram/pkg/nasa"
)

const (
	// CaptionLimit is Instagram's hard cap on caption length
	CaptionLimit = 2200

	// MaxExplanationLength leaves room for hashtags and attribution inside
	// the caption limit
	MaxExplanationLength = 1200

	// MaxHashtags is how many hashtags a caption carries. Instagram allows
	// 30; a few are left in reserve.
	MaxHashtags = 25
)

// captionHashtags is the fixed hashtag pool appended to every caption
var captionHashtags = []string{
	"#NASA", "#APOD", "#astronomy", "#space", "#astrophotography",
	"#cosmos", "#universe", "#science", "#telescope", "#hubble",
	"#jwst", "#spaceexploration", "#dailyastronomy", "#stars", "#galaxy",
	"#nebula", "#planet", "#solarsystem", "#astro", "#nightsky",
	"#deepspace", "#spaceart", "#astronomypic", "#nasapic", "#spacelove",
	"#stargazing", "#cosmology",
}

// BuildCaption formats an APOD record as an Instagram caption. The
// explanation is truncated at a word boundary to stay inside the caption
// limit once hashtags and attribution are added.
func BuildCaption(apod *nasa.APOD) string {
	title := apod.Title
	if title == "" {
		title = "Astronomy Picture of the Day"
	}

	explanation := TruncateAtWord(apod.Explanation, MaxExplanationLength)

	parts := []string{
		"🌟 " + title,
		"📅 " + apod.Date,
		"",
		explanation,
		"",
	}

	if apod.Copyright != "" {
		parts = append(parts,
			"📸 Credit: "+strings.TrimSpace(apod.Copyright),
			"",
		)
	}

	parts = append(parts,
		"🚀 From NASA's Astronomy Picture of the Day archives",
		"🔗 https://apod.nasa.gov/apod/",
		"",
	)

	parts = append(parts, strings.Join(captionHashtags[:MaxHashtags], " "))

	return strings.Join(parts, "\n")
}

// TruncateAtWord shortens text to at most limit characters, cutting at the
// last word boundary and appending an ellipsis. Text within the limit is
// returned unchanged. Limits count runes, not bytes, so multibyte text is
// never split mid-character.
func TruncateAtWord(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	truncated := string(runes[:limit])
	if idx := strings.LastIndex(truncated, " "); idx > 0 {
		truncated = truncated[:idx]
	}

	return truncated + "..."
}
