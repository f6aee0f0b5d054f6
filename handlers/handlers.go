// Package handlers exposes the pipeline over HTTP: project creation and
// inspection, the music and voice catalogs, uploads and health.
package handlers

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"hindi-reels-pipeline/captions"
	"hindi-reels-pipeline/config"
	"hindi-reels-pipeline/media"
	"hindi-reels-pipeline/metrics"
	"hindi-reels-pipeline/pipeline"
	"hindi-reels-pipeline/topics"
	"hindi-reels-pipeline/types"
	"hindi-reels-pipeline/upload"
	"hindi-reels-pipeline/voice"
)

// Runner starts a pipeline run for a registered project.
type Runner interface {
	Run(ctx context.Context, projectID string, req *types.VideoRequest) error
}

// VoiceLister fetches the available TTS voices.
type VoiceLister interface {
	ListVoices(ctx context.Context) ([]voice.Voice, error)
}

// MusicCatalog lists the local music library.
type MusicCatalog interface {
	Catalog() map[types.MusicMood][]string
}

// VideoUploader publishes a completed project.
type VideoUploader interface {
	Upload(ctx context.Context, project *types.Project, caps []types.CaptionSegment) (*upload.Result, error)
}

// Handler carries every service the HTTP layer needs.
type Handler struct {
	cfg      *config.Config
	log      *logrus.Logger
	validate *validator.Validate

	registry pipeline.Registry
	runner   Runner
	pool     *topics.Pool
	music    MusicCatalog
	voices   VoiceLister
	uploader VideoUploader
	stats    *metrics.Store
}

// New wires a Handler.
func New(
	cfg *config.Config,
	log *logrus.Logger,
	registry pipeline.Registry,
	runner Runner,
	pool *topics.Pool,
	music MusicCatalog,
	voices VoiceLister,
	uploader VideoUploader,
	stats *metrics.Store,
) *Handler {
	return &Handler{
		cfg:      cfg,
		log:      log,
		validate: validator.New(),
		registry: registry,
		runner:   runner,
		pool:     pool,
		music:    music,
		voices:   voices,
		uploader: uploader,
		stats:    stats,
	}
}

// CreateVideo starts a pipeline run for an explicit topic.
// POST /api/v1/videos
func (h *Handler) CreateVideo(c *fiber.Ctx) error {
	var req types.VideoRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	req.Defaults()
	return h.startProject(c, &req)
}

// CreateAutoVideo picks a topic from the curated pool and starts a run.
// POST /api/v1/videos/auto
func (h *Handler) CreateAutoVideo(c *fiber.Ctx) error {
	topic := h.pool.Pick()
	req := &types.VideoRequest{
		Topic:     topic.Topic,
		Era:       topic.Era,
		MusicMood: topic.Mood,
		StoryLens: topic.Lens,
	}
	req.Defaults()
	return h.startProject(c, req)
}

func (h *Handler) startProject(c *fiber.Ctx, req *types.VideoRequest) error {
	project := types.NewProject(req.Topic)
	if err := h.registry.Add(project); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}

	h.log.WithFields(logrus.Fields{
		"project": project.ID,
		"topic":   req.Topic,
	}).Info("[api] project created")

	// The run outlives the request; progress is served over the status
	// endpoint and the websocket.
	go func() {
		if err := h.runner.Run(context.Background(), project.ID, req); err != nil {
			h.log.WithError(err).WithField("project", project.ID).Error("[api] pipeline run failed")
		}
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"id":     project.ID,
		"topic":  project.Topic,
		"status": project.Status,
	})
}

// ListVideos returns all projects, newest first.
// GET /api/v1/videos
func (h *Handler) ListVideos(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"videos": h.registry.List()})
}

// GetStatus returns the full project record.
// GET /api/v1/videos/:id/status
func (h *Handler) GetStatus(c *fiber.Ctx) error {
	project, ok := h.registry.Get(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "project not found")
	}
	return c.JSON(project)
}

// UploadVideo publishes a completed project to YouTube.
// POST /api/v1/videos/:id/upload
func (h *Handler) UploadVideo(c *fiber.Ctx) error {
	project, ok := h.registry.Get(c.Params("id"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "project not found")
	}
	if project.Status != types.StatusCompleted {
		return fiber.NewError(fiber.StatusConflict,
			fmt.Sprintf("project is %s, only completed projects can be uploaded", project.Status))
	}

	result, err := h.uploader.Upload(c.Context(), project, h.captionsFor(project))
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(result)
}

// captionsFor rebuilds the caption track for the SRT upload; any failure
// just means the video goes up without one.
func (h *Handler) captionsFor(project *types.Project) []types.CaptionSegment {
	if project.Script == nil || project.VoiceoverPath == "" {
		return nil
	}
	narration, err := media.ProbeDuration(project.VoiceoverPath)
	if err != nil {
		return nil
	}
	caps, err := captions.FromScript(project.Script, narration, h.cfg.Caption.MaxCharsPerLine)
	if err != nil {
		return nil
	}
	return caps
}

// MusicLibrary lists local tracks per mood.
// GET /api/v1/music/library
func (h *Handler) MusicLibrary(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"library": h.music.Catalog()})
}

// Voices lists the TTS voices on the configured account.
// GET /api/v1/voices
func (h *Handler) Voices(c *fiber.Ctx) error {
	voices, err := h.voices.ListVoices(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.JSON(fiber.Map{"voices": voices})
}

// Topics lists the curated topic pool.
// GET /api/v1/topics
func (h *Handler) Topics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"topics": h.pool.All()})
}

// Health reports liveness plus run counters.
// GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"metrics": h.stats.Snapshot(),
	})
}
