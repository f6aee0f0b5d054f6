// Package render assembles the final vertical video: clip concatenation,
// duration alignment against the narration, music mixing and final encode,
// all through the ffmpeg CLI.
package render

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"hindi-reels-pipeline/config"
	"hindi-reels-pipeline/errs"
	"hindi-reels-pipeline/media"
	"hindi-reels-pipeline/types"
)

// Speed alignment band. Outside it the distortion becomes audible on the
// clip motion, so the mismatch is kept instead.
const (
	speedToleranceSec = 3.0
	speedFactorMin    = 0.85
	speedFactorMax    = 1.15
)

// Music mixing constants.
const (
	musicVolumeBase  = 0.30
	musicVolumeFloor = 0.25
	musicFadeInSec   = 0.5
	musicFadeOutSec  = 2.0
)

// emotionVolume gives music more presence under dramatic beats and pulls
// it back under the reflective close.
var emotionVolume = map[types.Emotion]float64{
	types.EmotionTension:    0.35,
	types.EmotionFear:       0.40,
	types.EmotionDecision:   0.45,
	types.EmotionImpact:     0.38,
	types.EmotionReflection: 0.25,
}

// Composer builds the final video file from prepared assets.
type Composer struct {
	cfg *config.Config
	log *logrus.Logger
}

// New creates a Composer.
func New(cfg *config.Config, log *logrus.Logger) *Composer {
	return &Composer{cfg: cfg, log: log}
}

// Compose concatenates the clips in index order, aligns the video duration
// to the narration where the speed band allows, mixes narration with the
// optional music bed and encodes the result. musicPath may be empty.
func (c *Composer) Compose(ctx context.Context, script *types.Script, clipAssets []types.GeneratedAsset, voiceoverPath, musicPath, workDir, outFile string) error {
	c.log.WithFields(logrus.Fields{
		"clips": len(clipAssets),
		"music": musicPath != "",
	}).Info("[render] composing final video")

	concatFile, err := c.concatClips(ctx, clipAssets, workDir)
	if err != nil {
		return err
	}

	videoDur, err := media.ProbeDuration(concatFile)
	if err != nil {
		return fmt.Errorf("%w: probe concatenated video: %v", errs.ErrClipMerge, err)
	}
	narrationDur, err := media.ProbeDuration(voiceoverPath)
	if err != nil {
		return fmt.Errorf("probe narration: %w", err)
	}

	aligned := concatFile
	if factor, ok := SpeedFactor(videoDur, narrationDur); ok {
		aligned, err = c.speedAdjust(ctx, concatFile, factor, workDir)
		if err != nil {
			return err
		}
		videoDur = narrationDur
	} else if math.Abs(videoDur-narrationDur) > speedToleranceSec {
		c.log.WithFields(logrus.Fields{
			"video_s":     videoDur,
			"narration_s": narrationDur,
		}).Warn("[render] duration mismatch outside speed band, keeping original pace")
		// Trimming is safe only when the video runs long: the cut lands
		// after the narration has finished.
		if videoDur > narrationDur {
			aligned, err = c.trimVideo(ctx, concatFile, narrationDur+durationTailSec, workDir)
			if err != nil {
				return err
			}
			videoDur = narrationDur + durationTailSec
		}
	}

	mixedAudio, err := c.mixAudio(ctx, script, voiceoverPath, musicPath, videoDur, workDir)
	if err != nil {
		c.log.WithError(err).Warn("[render] music mix failed, using narration only")
		mixedAudio = voiceoverPath
	}

	if err := c.mux(ctx, aligned, mixedAudio, videoDur, outFile); err != nil {
		// No partial artifact on failure.
		os.Remove(outFile)
		return err
	}

	c.log.WithField("file", outFile).Info("[render] final video ready")
	return nil
}

// durationTailSec keeps a short breath after the narration when trimming.
const durationTailSec = 2.0

// SpeedFactor decides whether the concatenated video should be uniformly
// time-scaled to match the narration. It returns the setpts divisor and
// whether to apply it: only when the mismatch exceeds the tolerance and the
// factor stays inside the audible-distortion band.
func SpeedFactor(videoSec, narrationSec float64) (float64, bool) {
	if videoSec <= 0 || narrationSec <= 0 {
		return 1, false
	}
	if math.Abs(videoSec-narrationSec) <= speedToleranceSec {
		return 1, false
	}
	factor := videoSec / narrationSec
	if factor < speedFactorMin || factor > speedFactorMax {
		return factor, false
	}
	return factor, true
}

// MusicVolume computes the music bed level as the duration-weighted average
// of per-emotion weights, floored so the bed never disappears.
func MusicVolume(segments []types.ScriptSegment) float64 {
	var weighted, total float64
	for _, seg := range segments {
		dur := seg.DurationSec
		if dur <= 0 {
			continue
		}
		vol, ok := emotionVolume[seg.Emotion]
		if !ok {
			vol = musicVolumeBase
		}
		weighted += vol * dur
		total += dur
	}
	if total == 0 {
		return musicVolumeBase
	}
	avg := weighted / total
	if avg < musicVolumeFloor {
		return musicVolumeFloor
	}
	return avg
}

// concatClips joins the clips in index order into one silent video track,
// normalizing every clip to the output geometry.
func (c *Composer) concatClips(ctx context.Context, clipAssets []types.GeneratedAsset, workDir string) (string, error) {
	var lines []string
	for _, clip := range clipAssets {
		if clip.Status != types.AssetSucceeded || clip.LocalPath == "" {
			continue
		}
		if _, err := os.Stat(clip.LocalPath); err != nil {
			return "", fmt.Errorf("%w: clip %d unreadable: %v", errs.ErrClipMerge, clip.SegmentIndex, err)
		}
		lines = append(lines, fmt.Sprintf("file '%s'", clip.LocalPath))
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("%w: no valid clips to merge", errs.ErrClipMerge)
	}

	listFile := filepath.Join(workDir, "clips_concat.txt")
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return "", err
	}

	outFile := filepath.Join(workDir, "clips_merged.mp4")
	scale := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		c.cfg.Video.Width, c.cfg.Video.Height, c.cfg.Video.Width, c.cfg.Video.Height)

	err := c.runFFmpeg(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-vf", scale,
		"-r", fmt.Sprintf("%d", c.cfg.Video.FPS),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
	if err != nil {
		os.Remove(outFile)
		return "", fmt.Errorf("%w: %v", errs.ErrClipMerge, err)
	}
	return outFile, nil
}

func (c *Composer) speedAdjust(ctx context.Context, in string, factor float64, workDir string) (string, error) {
	c.log.WithField("factor", fmt.Sprintf("%.3f", factor)).Info("[render] speed-aligning video to narration")

	outFile := filepath.Join(workDir, "clips_aligned.mp4")
	err := c.runFFmpeg(ctx,
		"-i", in,
		"-vf", fmt.Sprintf("setpts=PTS/%.6f", factor),
		"-r", fmt.Sprintf("%d", c.cfg.Video.FPS),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
	if err != nil {
		os.Remove(outFile)
		return "", fmt.Errorf("speed adjust: %w", err)
	}
	return outFile, nil
}

func (c *Composer) trimVideo(ctx context.Context, in string, seconds float64, workDir string) (string, error) {
	outFile := filepath.Join(workDir, "clips_trimmed.mp4")
	err := c.runFFmpeg(ctx,
		"-i", in,
		"-t", fmt.Sprintf("%.3f", seconds),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
	if err != nil {
		os.Remove(outFile)
		return "", fmt.Errorf("trim video: %w", err)
	}
	return outFile, nil
}

// mixAudio lays the music bed (looped or trimmed to the video length, faded
// in and out, emotion-weighted volume) under the full-level narration.
func (c *Composer) mixAudio(ctx context.Context, script *types.Script, narration, musicPath string, videoDur float64, workDir string) (string, error) {
	if musicPath == "" {
		return narration, nil
	}

	volume := MusicVolume(script.Segments)
	fadeOutStart := videoDur - musicFadeOutSec
	if fadeOutStart < 0 {
		fadeOutStart = 0
	}

	filter := fmt.Sprintf(
		"[1:a]volume=%.3f,afade=t=in:st=0:d=%.1f,afade=t=out:st=%.3f:d=%.1f[music];"+
			"[0:a][music]amix=inputs=2:duration=first:normalize=0[aout]",
		volume, musicFadeInSec, fadeOutStart, musicFadeOutSec,
	)

	outFile := filepath.Join(workDir, "audio_mixed.m4a")
	err := c.runFFmpeg(ctx,
		"-i", narration,
		"-stream_loop", "-1",
		"-t", fmt.Sprintf("%.3f", videoDur),
		"-i", musicPath,
		"-filter_complex", filter,
		"-map", "[aout]",
		"-c:a", "aac",
		"-b:a", "192k",
		outFile,
	)
	if err != nil {
		os.Remove(outFile)
		return "", fmt.Errorf("audio mix: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"music_volume": fmt.Sprintf("%.2f", volume),
		"duration_s":   videoDur,
	}).Info("[render] audio mixed")
	return outFile, nil
}

// mux pairs the aligned video with the audio track. The audio ends at the
// narration, which can be up to durationTailSec shorter than the video, so
// it is padded with silence out to videoDur rather than cutting the video
// back with -shortest.
func (c *Composer) mux(ctx context.Context, video, audio string, videoDur float64, outFile string) error {
	if err := c.runFFmpeg(ctx, muxArgs(video, audio, videoDur, outFile)...); err != nil {
		return fmt.Errorf("final mux: %w", err)
	}
	return nil
}

func muxArgs(video, audio string, videoDur float64, outFile string) []string {
	return []string{
		"-i", video,
		"-i", audio,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-af", "apad",
		"-t", fmt.Sprintf("%.3f", videoDur),
		"-movflags", "+faststart",
		outFile,
	}
}

func (c *Composer) runFFmpeg(ctx context.Context, args ...string) error {
	full := append([]string{"-y"}, args...)
	cmd := exec.CommandContext(ctx, "ffmpeg", full...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s: %w (%s)", args[len(args)-1], err, tail(stderr.String(), 400))
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
