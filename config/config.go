package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Script  ScriptConfig  `yaml:"script"`
	Voice   VoiceConfig   `yaml:"voice"`
	Images  ImagesConfig  `yaml:"images"`
	Clips   ClipsConfig   `yaml:"clips"`
	Video   VideoConfig   `yaml:"video"`
	Caption CaptionConfig `yaml:"captions"`
	Upload  UploadConfig  `yaml:"upload"`
	Paths   PathsConfig   `yaml:"paths"`

	// Secrets, loaded from the environment rather than config.yaml.
	ReplicateToken string `yaml:"-"`
	ElevenLabsKey  string `yaml:"-"`
	GroqKey        string `yaml:"-"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type ScriptConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	BaseURL     string  `yaml:"base_url"`
}

type VoiceConfig struct {
	VoiceID         string  `yaml:"voice_id"`
	ModelID         string  `yaml:"model_id"`
	Stability       float64 `yaml:"stability"`
	SimilarityBoost float64 `yaml:"similarity_boost"`
	Style           float64 `yaml:"style"`
	SpeakerBoost    bool    `yaml:"speaker_boost"`
}

type ImagesConfig struct {
	Model string `yaml:"model"`
	Size  string `yaml:"size"`
}

type ClipsConfig struct {
	Model          string `yaml:"model"`
	ClipSeconds    int    `yaml:"clip_seconds"`
	MaxConcurrent  int    `yaml:"max_concurrent"`
	PollSeconds    int    `yaml:"poll_seconds"`
	PollMaxAttempt int    `yaml:"poll_max_attempts"`
}

type VideoConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

type CaptionConfig struct {
	Style           string `yaml:"style"`
	Position        string `yaml:"position"`
	MaxCharsPerLine int    `yaml:"max_chars_per_line"`
	FontFile        string `yaml:"font_file"`
}

type UploadConfig struct {
	Visibility        string `yaml:"visibility"`
	CategoryID        string `yaml:"category_id"`
	DefaultLanguage   string `yaml:"default_language"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	MadeForKids       bool   `yaml:"made_for_kids"`
}

type PathsConfig struct {
	Output string `yaml:"output"`
	Music  string `yaml:"music"`
	Temp   string `yaml:"temp"`
	Logs   string `yaml:"logs"`
}

// Load reads config.yaml, applies defaults and pulls secrets from the
// environment. Call godotenv.Load before this in main.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	cfg.ReplicateToken = os.Getenv("REPLICATE_API_TOKEN")
	cfg.ElevenLabsKey = os.Getenv("ELEVENLABS_API_KEY")
	cfg.GroqKey = os.Getenv("GROQ_API_KEY")

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Script.Model == "" {
		c.Script.Model = "llama-3.3-70b-versatile"
	}
	if c.Script.BaseURL == "" {
		c.Script.BaseURL = "https://api.groq.com/openai/v1"
	}
	if c.Script.MaxTokens == 0 {
		c.Script.MaxTokens = 4096
	}
	if c.Voice.VoiceID == "" {
		c.Voice.VoiceID = "FZkK3TvQ0pjyDmT8fzIW" // Bunty - Reel Perfect (Hindi)
	}
	if c.Voice.ModelID == "" {
		c.Voice.ModelID = "eleven_multilingual_v2"
	}
	if c.Voice.Stability == 0 {
		c.Voice.Stability = 0.7
	}
	if c.Voice.SimilarityBoost == 0 {
		c.Voice.SimilarityBoost = 0.75
	}
	if c.Voice.Style == 0 {
		c.Voice.Style = 0.15
	}
	if c.Images.Model == "" {
		c.Images.Model = "bytedance/seedream-4.5"
	}
	if c.Images.Size == "" {
		c.Images.Size = "2K"
	}
	if c.Clips.Model == "" {
		c.Clips.Model = "kwaivgi/kling-v2.1"
	}
	if c.Clips.ClipSeconds == 0 {
		c.Clips.ClipSeconds = 5
	}
	if c.Clips.MaxConcurrent == 0 {
		c.Clips.MaxConcurrent = 4
	}
	if c.Clips.PollSeconds == 0 {
		c.Clips.PollSeconds = 5
	}
	if c.Clips.PollMaxAttempt == 0 {
		c.Clips.PollMaxAttempt = 120
	}
	if c.Video.Width == 0 {
		c.Video.Width = 1080
	}
	if c.Video.Height == 0 {
		c.Video.Height = 1920
	}
	if c.Video.FPS == 0 {
		c.Video.FPS = 30
	}
	if c.Caption.Style == "" {
		c.Caption.Style = "cinematic"
	}
	if c.Caption.Position == "" {
		c.Caption.Position = "bottom"
	}
	if c.Caption.MaxCharsPerLine == 0 {
		c.Caption.MaxCharsPerLine = 35
	}
	if c.Upload.Visibility == "" {
		c.Upload.Visibility = "private"
	}
	if c.Upload.CategoryID == "" {
		c.Upload.CategoryID = "27" // Education
	}
	if c.Upload.DefaultLanguage == "" {
		c.Upload.DefaultLanguage = "hi"
	}
	if c.Paths.Output == "" {
		c.Paths.Output = "./output"
	}
	if c.Paths.Music == "" {
		c.Paths.Music = "./music"
	}
	if c.Paths.Temp == "" {
		c.Paths.Temp = "./temp"
	}
	if c.Paths.Logs == "" {
		c.Paths.Logs = "./logs"
	}
}

// EnsureDirs creates every working directory the pipeline writes to.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Paths.Output, c.Paths.Music, c.Paths.Temp, c.Paths.Logs} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	return nil
}

// ProjectTempDir returns (and creates) the scratch directory for a project.
func (c *Config) ProjectTempDir(projectID string) (string, error) {
	dir := filepath.Join(c.Paths.Temp, projectID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create project temp dir: %w", err)
	}
	return dir, nil
}
