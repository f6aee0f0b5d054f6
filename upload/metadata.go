package upload

import (
	"fmt"
	"math"
	"strings"

	"hindi-reels-pipeline/types"
)

// Metadata is the YouTube-facing description of one video.
type Metadata struct {
	Title       string
	Description string
	Tags        []string
}

const maxTitleLen = 100

// BuildMetadata derives upload metadata from the script. Titles carry the
// Shorts hashtag so the video lands on the Shorts shelf.
func BuildMetadata(script *types.Script) *Metadata {
	title := strings.TrimSpace(script.Title)
	suffix := " #shorts"
	if runeCount(title)+len(suffix) > maxTitleLen {
		title = truncate(title, maxTitleLen-len(suffix)-3) + "..."
	}
	title += suffix

	var desc strings.Builder
	if script.Hook != "" {
		desc.WriteString(script.Hook)
		desc.WriteString("\n\n")
	}
	if script.EventDescription != "" {
		desc.WriteString(script.EventDescription)
		desc.WriteString("\n\n")
	}
	desc.WriteString("इतिहास के वो पल जो सब कुछ बदल देते हैं।\n\n")
	desc.WriteString("#shorts #history #hindi #इतिहास #indianhistory")

	tags := []string{
		"history", "hindi", "indian history", "इतिहास",
		"historical shorts", "hindi kahani", "shorts",
	}
	if script.HistoricalEra != "" {
		tags = append(tags, strings.ToLower(script.HistoricalEra))
	}

	return &Metadata{
		Title:       title,
		Description: desc.String(),
		Tags:        tags,
	}
}

// ToSRT renders caption windows in SubRip format.
func ToSRT(caps []types.CaptionSegment) string {
	var sb strings.Builder
	for i, c := range caps {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTime(c.StartTime), srtTime(c.EndTime),
			strings.ReplaceAll(c.Text, "\n", " "))
	}
	return sb.String()
}

func srtTime(sec float64) string {
	if sec < 0 {
		sec = 0
	}
	totalMs := int(math.Round(sec * 1000))
	total := totalMs / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", total/3600, (total%3600)/60, total%60, ms)
}

func runeCount(s string) int { return len([]rune(s)) }

func truncate(s string, n int) string {
	r := []rune(s)
	if n < 0 {
		n = 0
	}
	if len(r) <= n {
		return s
	}
	return strings.TrimRight(string(r[:n]), " ")
}
