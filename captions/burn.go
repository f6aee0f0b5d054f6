package captions

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"

	"hindi-reels-pipeline/config"
	"hindi-reels-pipeline/types"
)

// fadeSec is the caption fade-in/out ramp.
const fadeSec = 0.3

// devanagariFonts are the font files tried in order for Hindi rendering.
var devanagariFonts = []string{
	"/usr/share/fonts/truetype/noto/NotoSansDevanagari-Bold.ttf",
	"/usr/share/fonts/truetype/noto/NotoSansDevanagari-Regular.ttf",
	"/usr/share/fonts/noto/NotoSansDevanagari-Bold.ttf",
	"/System/Library/Fonts/Supplemental/DevanagariMT.ttc",
	"C:/Windows/Fonts/mangal.ttf",
}

// Burner renders computed captions onto a video with ffmpeg drawtext.
type Burner struct {
	cfg *config.Config
	log *logrus.Logger
}

// NewBurner creates a Burner.
func NewBurner(cfg *config.Config, log *logrus.Logger) *Burner {
	return &Burner{cfg: cfg, log: log}
}

// Burn writes outFile with the captions drawn over inFile. An empty caption
// list copies the video through unchanged.
func (b *Burner) Burn(ctx context.Context, inFile, outFile string, caps []types.CaptionSegment) error {
	if len(caps) == 0 {
		return copyEncode(ctx, inFile, outFile)
	}

	font, err := b.findFont()
	if err != nil {
		b.log.WithError(err).Warn("[captions] no Devanagari font found, skipping captions")
		return copyEncode(ctx, inFile, outFile)
	}

	filter := b.buildFilter(font, caps)
	b.log.WithField("captions", len(caps)).Info("[captions] burning captions")

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", inFile,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-c:a", "copy",
		outFile,
	)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(outFile)
		return fmt.Errorf("burn captions: %w (%.400s)", err, stderr.String())
	}
	return nil
}

// buildFilter chains one drawtext per caption, each with its own enable
// window and a fade ramp on alpha.
func (b *Burner) buildFilter(font string, caps []types.CaptionSegment) string {
	parts := make([]string, 0, len(caps))
	for _, c := range caps {
		alpha := fmt.Sprintf(
			"if(lt(t-%.3f\\,%.1f)\\,(t-%.3f)/%.1f\\,if(gt(t\\,%.3f-%.1f)\\,(%.3f-t)/%.1f\\,1))",
			c.StartTime, fadeSec, c.StartTime, fadeSec,
			c.EndTime, fadeSec, c.EndTime, fadeSec,
		)
		parts = append(parts, fmt.Sprintf(
			"drawtext=fontfile='%s':text='%s':fontsize=58:fontcolor=white:"+
				"borderw=3:bordercolor=black@0.8:line_spacing=14:"+
				"x=(w-text_w)/2:y=h-text_h-280:"+
				"alpha='%s':enable='between(t\\,%.3f\\,%.3f)'",
			font, escapeDrawtext(c.Text), alpha, c.StartTime, c.EndTime,
		))
	}
	return strings.Join(parts, ",")
}

func (b *Burner) findFont() (string, error) {
	if b.cfg.Caption.FontFile != "" {
		if _, err := os.Stat(b.cfg.Caption.FontFile); err == nil {
			return b.cfg.Caption.FontFile, nil
		}
		b.log.WithField("font", b.cfg.Caption.FontFile).Warn("[captions] configured font missing, trying known locations")
	}
	for _, f := range devanagariFonts {
		if _, err := os.Stat(f); err == nil {
			return f, nil
		}
	}
	return "", fmt.Errorf("no Devanagari-capable font on this system")
}

// escapeDrawtext escapes the characters the drawtext filter treats
// specially inside a quoted text value.
func escapeDrawtext(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\\\'`,
		`:`, `\:`,
		`%`, `\%`,
		`,`, `\,`,
	)
	return replacer.Replace(s)
}

func copyEncode(ctx context.Context, in, out string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", in, "-c", "copy", out)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("copy video: %w", err)
	}
	return nil
}
