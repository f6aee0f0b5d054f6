// Package clips animates segment keyframes into short video clips with the
// Kling image-to-video model, running a bounded number of predictions at a
// time.
package clips

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"hindi-reels-pipeline/config"
	"hindi-reels-pipeline/errs"
	"hindi-reels-pipeline/replicate"
	"hindi-reels-pipeline/types"
)

// Job is one clip to generate: a segment keyframe plus its motion context.
type Job struct {
	SegmentIndex int
	ImageURL     string
	Prompt       string
	Emotion      types.Emotion
}

// runFunc performs one clip generation and returns the local file path.
// Injected so the batching logic is testable without the network.
type runFunc func(ctx context.Context, job Job, outDir string) (string, error)

// Generator turns keyframes into clips.
type Generator struct {
	cfg *config.Config
	log *logrus.Logger
	rep *replicate.Client
	run runFunc
}

// New builds a clip Generator on top of the shared Replicate client.
func New(cfg *config.Config, log *logrus.Logger, rep *replicate.Client) *Generator {
	g := &Generator{cfg: cfg, log: log, rep: rep}
	g.run = g.generateOne
	return g
}

// Generate animates every succeeded image asset into a clip saved under
// outDir as clip_<index>.mp4. Failed items are dropped, not fatal; results
// come back sorted by segment index. It fails only when nothing succeeds.
func (g *Generator) Generate(ctx context.Context, script *types.Script, imageAssets []types.GeneratedAsset, outDir string) ([]types.GeneratedAsset, error) {
	jobs := make([]Job, 0, len(imageAssets))
	for _, img := range imageAssets {
		if img.Status != types.AssetSucceeded || img.RemoteURL == "" {
			continue
		}
		seg := script.Segments[img.SegmentIndex]
		jobs = append(jobs, Job{
			SegmentIndex: img.SegmentIndex,
			ImageURL:     img.RemoteURL,
			Prompt:       motionPrompt(seg, img.SegmentIndex, len(script.Segments)),
			Emotion:      seg.Emotion,
		})
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: no images to animate", errs.ErrNoAssets)
	}

	g.log.WithFields(logrus.Fields{
		"model":      g.cfg.Clips.Model,
		"jobs":       len(jobs),
		"batch_size": g.cfg.Clips.MaxConcurrent,
	}).Info("[clips] animating keyframes")

	results := g.runBatches(ctx, jobs, outDir)
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: every clip generation failed", errs.ErrNoAssets)
	}

	g.log.WithFields(logrus.Fields{"ok": len(results), "total": len(jobs)}).Info("[clips] clips ready")
	return results, nil
}

// runBatches executes jobs in groups of at most MaxConcurrent, isolating
// per-item failures, and returns the successes ordered by segment index.
func (g *Generator) runBatches(ctx context.Context, jobs []Job, outDir string) []types.GeneratedAsset {
	batchSize := g.cfg.Clips.MaxConcurrent
	if batchSize <= 0 {
		batchSize = 1
	}

	var (
		mu      sync.Mutex
		results []types.GeneratedAsset
	)

	for start := 0; start < len(jobs); start += batchSize {
		end := min(start+batchSize, len(jobs))
		batch := jobs[start:end]

		var wg sync.WaitGroup
		for _, job := range batch {
			wg.Add(1)
			go func(job Job) {
				defer wg.Done()
				local, err := g.run(ctx, job, outDir)
				if err != nil {
					g.log.WithError(err).WithField("segment", job.SegmentIndex).Error("[clips] clip failed")
					return
				}
				mu.Lock()
				results = append(results, types.GeneratedAsset{
					SegmentIndex: job.SegmentIndex,
					Kind:         types.AssetClip,
					RemoteURL:    job.ImageURL,
					LocalPath:    local,
					Status:       types.AssetSucceeded,
				})
				mu.Unlock()
			}(job)
		}
		wg.Wait()
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].SegmentIndex < results[j].SegmentIndex
	})
	return results
}

func (g *Generator) generateOne(ctx context.Context, job Job, outDir string) (string, error) {
	input := map[string]any{
		"prompt":      job.Prompt,
		"start_image": job.ImageURL,
		"duration":    g.cfg.Clips.ClipSeconds,
		"mode":        "standard",
	}

	pred, err := g.rep.CreatePrediction(ctx, g.cfg.Clips.Model, input)
	if err != nil {
		return "", fmt.Errorf("create clip prediction: %w", err)
	}
	done, err := g.rep.Wait(ctx, pred)
	if err != nil {
		return "", fmt.Errorf("clip generation: %w", err)
	}
	url, ok := done.FirstOutput()
	if !ok {
		return "", fmt.Errorf("clip prediction produced no output")
	}

	local := filepath.Join(outDir, fmt.Sprintf("clip_%d.mp4", job.SegmentIndex))
	if err := g.rep.Download(ctx, url, local); err != nil {
		return "", fmt.Errorf("download clip: %w", err)
	}
	return local, nil
}

// motionPrompt pairs the scene description with emotion-matched camera
// movement so the cut feels directed rather than random. The first and last
// scenes get an establishing/closing note on top of the emotion style.
func motionPrompt(seg types.ScriptSegment, index, total int) string {
	var motion string
	switch seg.Emotion {
	case types.EmotionTension:
		motion = "slow push-in, held breath stillness, subtle dust drifting"
	case types.EmotionFear:
		motion = "slow creeping dolly, flickering light, unsettling micro movements"
	case types.EmotionDecision:
		motion = "static locked frame, a single decisive movement by the subject"
	case types.EmotionImpact:
		motion = "dynamic sweeping camera, fast purposeful motion, debris and energy"
	case types.EmotionReflection:
		motion = "very slow pull-back, gentle drifting particles, calm fading light"
	default:
		motion = "slow cinematic camera drift"
	}
	switch {
	case index == 0:
		motion += ", slow establishing reveal"
	case index == total-1:
		motion += ", gentle fade feeling, contemplative ending"
	}
	return fmt.Sprintf("%s. Camera: %s. Natural coherent motion, no morphing, no text.", seg.ImagePrompt, motion)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
