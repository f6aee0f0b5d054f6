package clips

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hindi-reels-pipeline/config"
	"hindi-reels-pipeline/errs"
	"hindi-reels-pipeline/types"
)

func testGenerator(run runFunc) *Generator {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	cfg := &config.Config{}
	cfg.Clips.MaxConcurrent = 4
	return &Generator{cfg: cfg, log: log, run: run}
}

func testScript(n int) *types.Script {
	s := &types.Script{}
	for i := 0; i < n; i++ {
		s.Segments = append(s.Segments, types.ScriptSegment{
			Index:       i,
			ImagePrompt: fmt.Sprintf("scene %d", i),
			Emotion:     types.EmotionTension,
		})
	}
	return s
}

func testImages(n int) []types.GeneratedAsset {
	assets := make([]types.GeneratedAsset, 0, n)
	for i := 0; i < n; i++ {
		assets = append(assets, types.GeneratedAsset{
			SegmentIndex: i,
			Kind:         types.AssetImage,
			RemoteURL:    fmt.Sprintf("https://cdn.example.com/%d.png", i),
			Status:       types.AssetSucceeded,
		})
	}
	return assets
}

func TestGenerateIsolatesSingleFailure(t *testing.T) {
	g := testGenerator(func(ctx context.Context, job Job, outDir string) (string, error) {
		if job.SegmentIndex == 3 {
			return "", fmt.Errorf("model refused")
		}
		return fmt.Sprintf("%s/clip_%d.mp4", outDir, job.SegmentIndex), nil
	})

	results, err := g.Generate(context.Background(), testScript(8), testImages(8), "/tmp/proj")
	require.NoError(t, err)
	require.Len(t, results, 7)

	var indexes []int
	for _, r := range results {
		indexes = append(indexes, r.SegmentIndex)
		assert.Equal(t, types.AssetClip, r.Kind)
		assert.Equal(t, types.AssetSucceeded, r.Status)
	}
	assert.Equal(t, []int{0, 1, 2, 4, 5, 6, 7}, indexes)
}

func TestGenerateBoundsConcurrency(t *testing.T) {
	var inflight, peak int32

	g := testGenerator(func(ctx context.Context, job Job, outDir string) (string, error) {
		cur := atomic.AddInt32(&inflight, 1)
		defer atomic.AddInt32(&inflight, -1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		return "clip.mp4", nil
	})

	_, err := g.Generate(context.Background(), testScript(10), testImages(10), "/tmp/proj")
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))
}

func TestGenerateFailsWhenNothingSucceeds(t *testing.T) {
	g := testGenerator(func(ctx context.Context, job Job, outDir string) (string, error) {
		return "", fmt.Errorf("down")
	})

	_, err := g.Generate(context.Background(), testScript(4), testImages(4), "/tmp/proj")
	require.ErrorIs(t, err, errs.ErrNoAssets)
}

func TestGenerateSkipsFailedImages(t *testing.T) {
	g := testGenerator(func(ctx context.Context, job Job, outDir string) (string, error) {
		return "clip.mp4", nil
	})

	images := testImages(4)
	images[1].Status = types.AssetFailed
	images[1].RemoteURL = ""

	results, err := g.Generate(context.Background(), testScript(4), images, "/tmp/proj")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []int{0, 2, 3}, []int{results[0].SegmentIndex, results[1].SegmentIndex, results[2].SegmentIndex})
}

func TestMotionPromptVariesByEmotion(t *testing.T) {
	seen := map[string]bool{}
	for _, e := range []types.Emotion{
		types.EmotionTension, types.EmotionFear, types.EmotionDecision,
		types.EmotionImpact, types.EmotionReflection,
	} {
		p := motionPrompt(types.ScriptSegment{ImagePrompt: "a fort at dawn", Emotion: e}, 2, 8)
		assert.Contains(t, p, "a fort at dawn")
		assert.False(t, seen[p], "duplicate motion prompt for %s", e)
		seen[p] = true
	}
}

func TestMotionPromptPositionNotes(t *testing.T) {
	seg := types.ScriptSegment{ImagePrompt: "a fort at dawn", Emotion: types.EmotionTension}

	first := motionPrompt(seg, 0, 8)
	assert.Contains(t, first, "establishing reveal")
	assert.NotContains(t, first, "contemplative ending")

	last := motionPrompt(seg, 7, 8)
	assert.Contains(t, last, "contemplative ending")
	assert.NotContains(t, last, "establishing reveal")

	mid := motionPrompt(seg, 3, 8)
	assert.NotContains(t, mid, "establishing reveal")
	assert.NotContains(t, mid, "contemplative ending")
}
