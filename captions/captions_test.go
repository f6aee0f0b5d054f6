package captions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hindi-reels-pipeline/errs"
	"hindi-reels-pipeline/types"
)

func scriptWithDurations(durs ...float64) *types.Script {
	s := &types.Script{}
	for i, d := range durs {
		s.Segments = append(s.Segments, types.ScriptSegment{
			Index:         i,
			NarrationText: "पहला वाक्य",
			DurationSec:   d,
		})
	}
	return s
}

func TestFromScriptScalesToMeasuredNarration(t *testing.T) {
	// Nominal [5,5,5,5] = 20s against 24s measured: scale 1.2.
	caps, err := FromScript(scriptWithDurations(5, 5, 5, 5), 24, 35)
	require.NoError(t, err)
	require.Len(t, caps, 4)

	assert.InDelta(t, 0.0, caps[0].StartTime, 0.0001)
	assert.InDelta(t, 5.9, caps[0].EndTime, 0.0001)

	// Second caption starts where the scaled first segment ends.
	assert.InDelta(t, 6.0, caps[1].StartTime, 0.0001)
	assert.InDelta(t, 11.9, caps[1].EndTime, 0.0001)

	assert.InDelta(t, 18.0, caps[3].StartTime, 0.0001)
	assert.InDelta(t, 23.9, caps[3].EndTime, 0.0001)
}

func TestFromScriptWindowsNeverOverlap(t *testing.T) {
	caps, err := FromScript(scriptWithDurations(3, 7, 4, 6, 5), 31.7, 35)
	require.NoError(t, err)
	for i := 1; i < len(caps); i++ {
		assert.Less(t, caps[i-1].EndTime, caps[i].StartTime,
			"caption %d must end before %d starts", i-1, i)
	}
}

func TestFromScriptRejectsBadInput(t *testing.T) {
	_, err := FromScript(scriptWithDurations(5, 5), 0, 35)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = FromScript(scriptWithDurations(), 24, 35)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestWrapTextShortLinePassesThrough(t *testing.T) {
	assert.Equal(t, "छोटा वाक्य", WrapText("छोटा वाक्य", 35))
}

func TestWrapTextWrapsAtWordBoundaries(t *testing.T) {
	got := WrapText("one two three four five six seven", 10)
	for _, line := range strings.Split(got, "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 10)
	}
}

func TestWrapTextCapsAtThreeLinesWithEllipsis(t *testing.T) {
	long := strings.Repeat("शब्द ", 40)
	got := WrapText(long, 20)

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[2], "..."))
	for _, line := range lines {
		assert.LessOrEqual(t, len([]rune(line)), 20)
	}
}

func TestWrapTextHardCutsOversizedWord(t *testing.T) {
	got := WrapText(strings.Repeat("क", 50), 20)
	assert.LessOrEqual(t, len([]rune(got)), 20)
}

func TestEscapeDrawtext(t *testing.T) {
	got := escapeDrawtext(`100% sach: राजा's फ़ैसला`)
	assert.NotContains(t, got, "%' ")
	assert.Contains(t, got, `\%`)
	assert.Contains(t, got, `\:`)
}
