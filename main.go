package main

import (
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/joho/godotenv"

	"hindi-reels-pipeline/captions"
	"hindi-reels-pipeline/clips"
	"hindi-reels-pipeline/config"
	"hindi-reels-pipeline/handlers"
	"hindi-reels-pipeline/images"
	"hindi-reels-pipeline/metrics"
	"hindi-reels-pipeline/music"
	"hindi-reels-pipeline/pipeline"
	"hindi-reels-pipeline/render"
	"hindi-reels-pipeline/replicate"
	"hindi-reels-pipeline/script"
	"hindi-reels-pipeline/topics"
	"hindi-reels-pipeline/upload"
	"hindi-reels-pipeline/voice"
)

func main() {
	// .env is for local dev; deployments set real environment variables.
	_ = godotenv.Load()

	log := config.NewLogger()

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if err := cfg.EnsureDirs(); err != nil {
		log.WithError(err).Fatal("create working directories")
	}

	// Every service is constructed once here and handed down explicitly.
	registry := pipeline.NewRegistry()
	hub := handlers.NewProgressHub(log)
	stats := metrics.New(filepath.Join(cfg.Paths.Logs, "metrics.json"), log)

	rep := replicate.New(log, cfg.ReplicateToken, cfg.Clips.PollSeconds, cfg.Clips.PollMaxAttempt)
	pl := pipeline.New(cfg, log, registry,
		script.New(cfg, log),
		voice.New(cfg, log),
		images.New(cfg, log, rep),
		clips.New(cfg, log, rep),
		music.New(cfg.Paths.Music, log),
		render.New(cfg, log),
		captions.NewBurner(cfg, log),
		hub,
		stats,
	)

	h := handlers.New(cfg, log, registry, pl,
		topics.NewPool(),
		music.New(cfg.Paths.Music, log),
		voice.New(cfg, log),
		upload.New(cfg, log),
		stats,
	)

	app := fiber.New(fiber.Config{
		AppName:   "hindi-reels-pipeline",
		BodyLimit: 10 * 1024 * 1024,
	})
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(logger.New())

	app.Get("/health", h.Health)

	api := app.Group("/api/v1")
	api.Post("/videos", h.CreateVideo)
	api.Post("/videos/auto", h.CreateAutoVideo)
	api.Get("/videos", h.ListVideos)
	api.Get("/videos/:id/status", h.GetStatus)
	api.Post("/videos/:id/upload", h.UploadVideo)
	api.Get("/music/library", h.MusicLibrary)
	api.Get("/voices", h.Voices)
	api.Get("/topics", h.Topics)

	app.Use("/ws/:id", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/:id", websocket.New(hub.Serve))

	log.WithField("port", cfg.Server.Port).Info("[server] listening")
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
