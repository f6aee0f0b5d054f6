// Package pipeline orchestrates the production of one video: script,
// voiceover, duration reconciliation, keyframes, clips, composition,
// captions. Stages run strictly in order; the first failure marks the
// project failed and stops the run.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"hindi-reels-pipeline/captions"
	"hindi-reels-pipeline/config"
	"hindi-reels-pipeline/errs"
	"hindi-reels-pipeline/types"
)

// Stage dependencies. Declared here so the orchestrator can be tested with
// stubs and wired with the real services in main.
type (
	ScriptWriter interface {
		Generate(ctx context.Context, req *types.VideoRequest) (*types.Script, error)
	}
	VoiceGenerator interface {
		Generate(ctx context.Context, script *types.Script, outFile string) (float64, error)
	}
	ImageGenerator interface {
		Generate(ctx context.Context, script *types.Script, outDir string) ([]types.GeneratedAsset, error)
	}
	ClipGenerator interface {
		Generate(ctx context.Context, script *types.Script, images []types.GeneratedAsset, outDir string) ([]types.GeneratedAsset, error)
	}
	MusicPicker interface {
		Pick(mood types.MusicMood, destDir string) string
	}
	VideoComposer interface {
		Compose(ctx context.Context, script *types.Script, clips []types.GeneratedAsset, voiceoverPath, musicPath, workDir, outFile string) error
	}
	CaptionBurner interface {
		Burn(ctx context.Context, inFile, outFile string, caps []types.CaptionSegment) error
	}

	// Publisher receives live status updates for a project. The websocket
	// hub implements it; a nil Publisher disables publishing.
	Publisher interface {
		Publish(projectID string, status types.Status, detail string)
	}

	// Recorder collects run outcomes for the metrics endpoint.
	Recorder interface {
		RecordRun(status types.Status, duration time.Duration)
	}
)

// Pipeline runs projects end to end.
type Pipeline struct {
	cfg      *config.Config
	log      *logrus.Logger
	registry Registry

	scripts  ScriptWriter
	voice    VoiceGenerator
	images   ImageGenerator
	clips    ClipGenerator
	music    MusicPicker
	composer VideoComposer
	burner   CaptionBurner

	publisher Publisher
	recorder  Recorder

	mu      sync.Mutex
	running map[string]bool
}

// New wires the orchestrator. publisher and recorder may be nil.
func New(
	cfg *config.Config,
	log *logrus.Logger,
	registry Registry,
	scripts ScriptWriter,
	voice VoiceGenerator,
	images ImageGenerator,
	clips ClipGenerator,
	music MusicPicker,
	composer VideoComposer,
	burner CaptionBurner,
	publisher Publisher,
	recorder Recorder,
) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		log:       log,
		registry:  registry,
		scripts:   scripts,
		voice:     voice,
		images:    images,
		clips:     clips,
		music:     music,
		composer:  composer,
		burner:    burner,
		publisher: publisher,
		recorder:  recorder,
		running:   make(map[string]bool),
	}
}

// Run produces the video for a registered project. One run per project id
// at a time; a second concurrent call returns ErrAlreadyRunning.
func (pl *Pipeline) Run(ctx context.Context, projectID string, req *types.VideoRequest) error {
	if err := pl.acquire(projectID); err != nil {
		return err
	}
	defer pl.release(projectID)

	started := time.Now()
	err := pl.run(ctx, projectID, req)

	finalStatus := types.StatusCompleted
	if err != nil {
		finalStatus = types.StatusFailed
	}
	if pl.recorder != nil {
		pl.recorder.RecordRun(finalStatus, time.Since(started))
	}
	return err
}

func (pl *Pipeline) run(ctx context.Context, projectID string, req *types.VideoRequest) error {
	req.Defaults()
	log := pl.log.WithField("project", projectID)

	workDir, err := pl.cfg.ProjectTempDir(projectID)
	if err != nil {
		return pl.fail(projectID, "setup", err)
	}

	// Stage 1: script.
	if err := pl.advance(projectID, types.StatusGeneratingScript); err != nil {
		return err
	}
	script, err := pl.scripts.Generate(ctx, req)
	if err != nil {
		return pl.fail(projectID, "script", err)
	}
	pl.registry.Update(projectID, func(p *types.Project) { p.Script = script })
	log.WithField("segments", len(script.Segments)).Info("[pipeline] script stage done")

	// Stage 2: voiceover, then reconcile everything against its length.
	if err := pl.advance(projectID, types.StatusGeneratingVoiceover); err != nil {
		return err
	}
	voicePath := filepath.Join(workDir, "voiceover.mp3")
	narrationSec, err := pl.voice.Generate(ctx, script, voicePath)
	if err != nil {
		return pl.fail(projectID, "voiceover", err)
	}
	pl.registry.Update(projectID, func(p *types.Project) { p.VoiceoverPath = voicePath })

	videoSec, scenes, err := ReconcileDuration(narrationSec)
	if err != nil {
		return pl.fail(projectID, "reconcile", err)
	}
	log.WithFields(logrus.Fields{
		"narration_s": narrationSec,
		"video_s":     videoSec,
		"scenes":      scenes,
	}).Info("[pipeline] durations reconciled")

	// The visual plan has exactly one segment per scene; the original
	// script keeps its nominal durations for caption timing.
	visual := resampleScript(script, scenes)

	// Stage 3: keyframe images.
	if err := pl.advance(projectID, types.StatusGeneratingImages); err != nil {
		return err
	}
	imageAssets, err := pl.images.Generate(ctx, visual, workDir)
	if err != nil {
		return pl.fail(projectID, "images", err)
	}
	pl.registry.Update(projectID, func(p *types.Project) { p.Assets = append(p.Assets, imageAssets...) })

	// Stage 4: animate into clips.
	if err := pl.advance(projectID, types.StatusCreatingVideo); err != nil {
		return err
	}
	clipAssets, err := pl.clips.Generate(ctx, visual, imageAssets, workDir)
	if err != nil {
		return pl.fail(projectID, "clips", err)
	}
	pl.registry.Update(projectID, func(p *types.Project) { p.Assets = append(p.Assets, clipAssets...) })

	// Stage 5: compose, then burn captions.
	if err := pl.advance(projectID, types.StatusCompositing); err != nil {
		return err
	}
	musicPath := pl.music.Pick(script.MusicMood, workDir)
	pl.registry.Update(projectID, func(p *types.Project) { p.MusicPath = musicPath })

	composed := filepath.Join(workDir, "composed.mp4")
	if err := pl.composer.Compose(ctx, visual, clipAssets, voicePath, musicPath, workDir, composed); err != nil {
		return pl.fail(projectID, "compose", err)
	}

	caps, err := captions.FromScript(script, narrationSec, pl.cfg.Caption.MaxCharsPerLine)
	if err != nil {
		return pl.fail(projectID, "captions", err)
	}
	finalPath := filepath.Join(pl.cfg.Paths.Output, projectID+".mp4")
	if err := pl.burner.Burn(ctx, composed, finalPath, caps); err != nil {
		return pl.fail(projectID, "captions", err)
	}
	pl.registry.Update(projectID, func(p *types.Project) { p.FinalVideoPath = finalPath })

	if err := pl.advance(projectID, types.StatusCompleted); err != nil {
		return err
	}
	log.WithField("file", finalPath).Info("[pipeline] project completed")
	return nil
}

// resampleScript produces a visual plan with exactly `scenes` segments,
// spread evenly across the narrative so the arc survives a scene-count
// change; each scene carries the fixed scene length.
func resampleScript(script *types.Script, scenes int) *types.Script {
	out := &types.Script{
		Title:            script.Title,
		Hook:             script.Hook,
		MusicMood:        script.MusicMood,
		HistoricalEra:    script.HistoricalEra,
		EventDescription: script.EventDescription,
		StoryLens:        script.StoryLens,
	}
	n := len(script.Segments)
	if n == 0 || scenes <= 0 {
		return out
	}
	for i := 0; i < scenes; i++ {
		src := script.Segments[i*n/scenes]
		out.Segments = append(out.Segments, types.ScriptSegment{
			Index:         i,
			NarrationText: src.NarrationText,
			ImagePrompt:   src.ImagePrompt,
			DurationSec:   SceneSeconds,
			Emotion:       src.Emotion,
		})
	}
	out.TotalDurationSec = NominalClipDuration(out.Segments)
	return out
}

func (pl *Pipeline) advance(projectID string, status types.Status) error {
	if err := pl.registry.SetStatus(projectID, status); err != nil {
		// A refused transition still has to land the project in a
		// terminal state with the cause recorded.
		return pl.fail(projectID, "status", err)
	}
	pl.publish(projectID, status, "")
	return nil
}

func (pl *Pipeline) fail(projectID, stage string, err error) error {
	wrapped := &errs.PipelineError{ProjectID: projectID, Stage: stage, Err: err}
	pl.log.WithError(err).WithFields(logrus.Fields{
		"project": projectID,
		"stage":   stage,
	}).Error("[pipeline] stage failed")
	pl.registry.Fail(projectID, wrapped.Error())
	pl.publish(projectID, types.StatusFailed, wrapped.Error())
	return wrapped
}

func (pl *Pipeline) publish(projectID string, status types.Status, detail string) {
	if pl.publisher != nil {
		pl.publisher.Publish(projectID, status, detail)
	}
}

func (pl *Pipeline) acquire(projectID string) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.running[projectID] {
		return fmt.Errorf("%w: %s", errs.ErrAlreadyRunning, projectID)
	}
	pl.running[projectID] = true
	return nil
}

func (pl *Pipeline) release(projectID string) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	delete(pl.running, projectID)
}
