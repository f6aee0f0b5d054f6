package upload

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"hindi-reels-pipeline/types"
)

func TestBuildMetadata(t *testing.T) {
	script := &types.Script{
		Title:            "हल्दीघाटी: एक फ़ैसला",
		Hook:             "क्या एक घोड़ा इतिहास बदल सकता है?",
		EventDescription: "Maharana Pratap's last stand at Haldighati, 1576",
		HistoricalEra:    "Mughal Era",
	}

	meta := BuildMetadata(script)
	assert.True(t, strings.HasSuffix(meta.Title, "#shorts"))
	assert.LessOrEqual(t, len([]rune(meta.Title)), 100)
	assert.Contains(t, meta.Description, script.Hook)
	assert.Contains(t, meta.Description, script.EventDescription)
	assert.Contains(t, meta.Tags, "mughal era")
}

func TestBuildMetadataTruncatesLongTitle(t *testing.T) {
	script := &types.Script{Title: strings.Repeat("इतिहास ", 30)}
	meta := BuildMetadata(script)
	assert.LessOrEqual(t, len([]rune(meta.Title)), 100)
	assert.True(t, strings.HasSuffix(meta.Title, "#shorts"))
}

func TestToSRT(t *testing.T) {
	caps := []types.CaptionSegment{
		{Text: "पहली पंक्ति\nदूसरी पंक्ति", StartTime: 0, EndTime: 5.9},
		{Text: "अगला वाक्य", StartTime: 6.0, EndTime: 11.9},
	}
	srt := ToSRT(caps)

	assert.Contains(t, srt, "1\n00:00:00,000 --> 00:00:05,900")
	assert.Contains(t, srt, "2\n00:00:06,000 --> 00:00:11,900")
	// Line breaks inside a caption are flattened for the SRT cue.
	assert.Contains(t, srt, "पहली पंक्ति दूसरी पंक्ति")
}

func TestSRTTimeFormatsHoursMinutes(t *testing.T) {
	assert.Equal(t, "01:02:03,500", srtTime(3723.5))
	assert.Equal(t, "00:00:00,000", srtTime(-2))
}
