// Package captions computes caption timing and text layout for the
// narration, and burns the result onto the composed video.
package captions

import (
	"fmt"
	"strings"

	"hindi-reels-pipeline/errs"
	"hindi-reels-pipeline/types"
)

const (
	// trailingGapSec separates consecutive captions so they never overlap.
	trailingGapSec = 0.1

	maxLines = 3
	ellipsis = "..."
)

// FromScript assigns each segment a caption window on the narration
// timeline. Nominal segment durations are uniformly scaled so their sum
// matches the measured narration duration, then accumulated in order with a
// small trailing gap at the end of each window.
func FromScript(script *types.Script, actualNarrationSec float64, maxCharsPerLine int) ([]types.CaptionSegment, error) {
	if actualNarrationSec <= 0 {
		return nil, fmt.Errorf("%w: narration duration must be positive", errs.ErrInvalidInput)
	}
	var nominal float64
	for _, seg := range script.Segments {
		nominal += seg.DurationSec
	}
	if nominal <= 0 {
		return nil, fmt.Errorf("%w: script has no positive segment durations", errs.ErrInvalidInput)
	}

	scale := actualNarrationSec / nominal

	var out []types.CaptionSegment
	elapsed := 0.0
	for _, seg := range script.Segments {
		dur := seg.DurationSec * scale
		end := elapsed + dur - trailingGapSec
		if end <= elapsed {
			end = elapsed + dur
		}
		out = append(out, types.CaptionSegment{
			Text:      WrapText(seg.NarrationText, maxCharsPerLine),
			StartTime: elapsed,
			EndTime:   end,
		})
		elapsed += dur
	}
	return out, nil
}

// WrapText greedily wraps text to at most maxChars per line and at most
// three lines. When content remains after the third line, the line is
// truncated and marked with an ellipsis.
func WrapText(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	current := ""
	overflow := false
	for _, word := range words {
		// A single word longer than the line gets hard-cut.
		if runeLen(word) > maxChars {
			word = truncateRunes(word, maxChars)
		}
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if runeLen(candidate) <= maxChars {
			current = candidate
			continue
		}
		lines = append(lines, current)
		if len(lines) == maxLines {
			// This word and everything after it did not fit.
			overflow = true
			current = ""
			break
		}
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	if overflow {
		last := lines[maxLines-1]
		lines[maxLines-1] = truncateRunes(last, maxChars-len([]rune(ellipsis))) + ellipsis
	}
	return strings.Join(lines, "\n")
}

func runeLen(s string) int { return len([]rune(s)) }

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if n < 0 {
		n = 0
	}
	if len(r) <= n {
		return s
	}
	return strings.TrimRight(string(r[:n]), " ")
}
