package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hindi-reels-pipeline/errs"
	"hindi-reels-pipeline/types"
)

func TestReconcileDuration(t *testing.T) {
	cases := []struct {
		name       string
		narration  float64
		wantVideo  float64
		wantScenes int
	}{
		{"buffered and snapped up", 28, 30, 6},
		{"exact multiple after buffer", 43, 45, 9},
		{"short narration clamps to min scenes", 10, 30, 6},
		{"long narration clamps to max scenes", 90, 50, 10},
		{"boundary lands on scene grid", 33, 35, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			video, scenes, err := ReconcileDuration(tc.narration)
			require.NoError(t, err)
			assert.Equal(t, tc.wantVideo, video)
			assert.Equal(t, tc.wantScenes, scenes)

			// Scene count and duration always agree.
			assert.Equal(t, float64(scenes)*SceneSeconds, video)
		})
	}
}

func TestReconcileDurationRejectsNonPositive(t *testing.T) {
	for _, bad := range []float64{0, -1, -30} {
		_, _, err := ReconcileDuration(bad)
		assert.ErrorIs(t, err, errs.ErrInvalidInput)
	}
}

func TestNominalClipDurationRoundTrip(t *testing.T) {
	script := &types.Script{}
	for i := 0; i < 8; i++ {
		script.Segments = append(script.Segments, types.ScriptSegment{
			Index: i, NarrationText: "पंक्ति", ImagePrompt: "scene",
			DurationSec: 4.5, Emotion: types.EmotionTension,
		})
	}

	for _, narration := range []float64{28, 43, 61} {
		video, scenes, err := ReconcileDuration(narration)
		require.NoError(t, err)

		plan := resampleScript(script, scenes)
		assert.Equal(t, video, NominalClipDuration(plan.Segments))
		assert.Equal(t, plan.TotalDurationSec, NominalClipDuration(plan.Segments))
	}
}

func TestNominalClipDurationEmpty(t *testing.T) {
	assert.Zero(t, NominalClipDuration(nil))
}

func TestReconcileDurationIsPure(t *testing.T) {
	v1, s1, err1 := ReconcileDuration(37.4)
	v2, s2, err2 := ReconcileDuration(37.4)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, v1, v2)
	assert.Equal(t, s1, s2)
}
