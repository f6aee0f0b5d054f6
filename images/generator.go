// Package images generates one keyframe image per script segment with a
// single multi-image SeeDream prediction, keeping a consistent visual style
// across the whole story.
package images

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"hindi-reels-pipeline/config"
	"hindi-reels-pipeline/replicate"
	"hindi-reels-pipeline/types"
)

// styleFingerprint is prepended to every batch so all frames of one video
// share grading, lensing and period texture.
const styleFingerprint = "Cinematic historical film still, anamorphic lens, shallow depth of field, " +
	"muted earthy color grade with warm highlights, volumetric light, film grain, " +
	"authentic period costume and architecture, no text, no watermark, vertical 9:16 composition."

// Generator produces segment keyframes.
type Generator struct {
	cfg *config.Config
	log *logrus.Logger
	rep *replicate.Client
}

// New builds an image Generator on top of the shared Replicate client.
func New(cfg *config.Config, log *logrus.Logger, rep *replicate.Client) *Generator {
	return &Generator{cfg: cfg, log: log, rep: rep}
}

// Generate creates one image per segment and downloads them into outDir as
// segment_<index>.png. All segments go into a single prediction; per-segment
// records report which frames arrived.
func (g *Generator) Generate(ctx context.Context, script *types.Script, outDir string) ([]types.GeneratedAsset, error) {
	n := len(script.Segments)
	if n == 0 {
		return nil, fmt.Errorf("script has no segments")
	}

	g.log.WithFields(logrus.Fields{
		"model":    g.cfg.Images.Model,
		"segments": n,
	}).Info("[images] generating keyframes")

	input := map[string]any{
		"prompt":                      buildBatchPrompt(script),
		"size":                        g.cfg.Images.Size,
		"aspect_ratio":                "9:16",
		"sequential_image_generation": "auto",
		"max_images":                  n,
	}

	pred, err := g.rep.CreatePrediction(ctx, g.cfg.Images.Model, input)
	if err != nil {
		return nil, fmt.Errorf("create image prediction: %w", err)
	}
	done, err := g.rep.Wait(ctx, pred)
	if err != nil {
		return nil, fmt.Errorf("image generation: %w", err)
	}

	urls := done.OutputURLs()
	if len(urls) == 0 {
		return nil, fmt.Errorf("image prediction produced no output")
	}
	if len(urls) < n {
		g.log.WithFields(logrus.Fields{
			"wanted": n,
			"got":    len(urls),
		}).Warn("[images] fewer frames than segments, last frame will repeat")
	}

	assets := make([]types.GeneratedAsset, 0, n)
	for i := 0; i < n; i++ {
		// Repeat the final frame when the model undershoots.
		url := urls[min(i, len(urls)-1)]
		local := filepath.Join(outDir, fmt.Sprintf("segment_%d.png", i))

		asset := types.GeneratedAsset{
			SegmentIndex: i,
			Kind:         types.AssetImage,
			RemoteURL:    url,
			Status:       types.AssetSucceeded,
		}
		if err := g.rep.Download(ctx, url, local); err != nil {
			g.log.WithError(err).WithField("segment", i).Error("[images] download failed")
			asset.Status = types.AssetFailed
			asset.Error = err.Error()
		} else {
			asset.LocalPath = local
		}
		assets = append(assets, asset)
	}

	ok := 0
	for _, a := range assets {
		if a.Status == types.AssetSucceeded {
			ok++
		}
	}
	if ok == 0 {
		return nil, fmt.Errorf("all image downloads failed")
	}

	g.log.WithFields(logrus.Fields{"ok": ok, "total": n}).Info("[images] keyframes ready")
	return assets, nil
}

// buildBatchPrompt assembles the single multi-frame prompt: the shared
// fingerprint, story context, then one numbered line per segment.
func buildBatchPrompt(script *types.Script) string {
	var sb strings.Builder
	sb.WriteString(styleFingerprint)
	sb.WriteString("\n\nStory: ")
	sb.WriteString(script.EventDescription)
	if script.HistoricalEra != "" {
		sb.WriteString(" (")
		sb.WriteString(script.HistoricalEra)
		sb.WriteString(")")
	}
	fmt.Fprintf(&sb, "\n\nGenerate %d frames of this story in order, one per scene, same characters and style throughout:\n", len(script.Segments))
	for _, seg := range script.Segments {
		fmt.Fprintf(&sb, "Frame %d (%s): %s\n", seg.Index+1, seg.Emotion, sanitizePrompt(seg.ImagePrompt))
	}
	return sb.String()
}

// sanitizePrompt softens wording that trips image-model safety filters on
// battle-heavy historical prompts without changing the scene.
func sanitizePrompt(p string) string {
	replacer := strings.NewReplacer(
		"blood", "dust",
		"bloody", "battle-worn",
		"corpse", "fallen soldier",
		"dead bodies", "fallen soldiers",
		"kill", "defeat",
		"killed", "defeated",
		"slaughter", "fierce battle",
	)
	return replacer.Replace(p)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
