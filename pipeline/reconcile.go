package pipeline

import (
	"fmt"
	"math"

	"hindi-reels-pipeline/errs"
	"hindi-reels-pipeline/types"
)

// Video length quantization. The voiceover drives everything: the video is
// slightly longer than the narration, rounded up to whole scenes, and the
// scene count stays within the range shortform platforms reward.
const (
	SceneSeconds   = 5.0
	durationBuffer = 2.0
	minScenes      = 6
	maxScenes      = 10
)

// ReconcileDuration computes the target video duration and scene count for
// a measured narration duration. Pure function: same input, same output.
func ReconcileDuration(narrationSec float64) (videoSec float64, scenes int, err error) {
	if narrationSec <= 0 {
		return 0, 0, fmt.Errorf("%w: narration duration must be positive, got %.2f", errs.ErrInvalidInput, narrationSec)
	}

	target := narrationSec + durationBuffer
	videoSec = math.Ceil(target/SceneSeconds) * SceneSeconds
	scenes = int(videoSec / SceneSeconds)

	if scenes < minScenes {
		scenes = minScenes
	} else if scenes > maxScenes {
		scenes = maxScenes
	}
	videoSec = float64(scenes) * SceneSeconds

	return videoSec, scenes, nil
}

// NominalClipDuration sums the nominal segment durations of a plan. On a
// reconciled visual plan it recovers the reconciled video duration without
// probing any media file.
func NominalClipDuration(segments []types.ScriptSegment) float64 {
	var total float64
	for _, seg := range segments {
		total += seg.DurationSec
	}
	return total
}
