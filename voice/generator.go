// Package voice generates Hindi narration audio through the ElevenLabs
// text-to-speech API.
package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"hindi-reels-pipeline/config"
	"hindi-reels-pipeline/errs"
	"hindi-reels-pipeline/media"
	"hindi-reels-pipeline/types"
)

const defaultBaseURL = "https://api.elevenlabs.io/v1"

// Generator turns script narration into a single mp3 voiceover.
type Generator struct {
	cfg        *config.Config
	log        *logrus.Logger
	baseURL    string
	httpClient *http.Client
}

// New builds a Generator from the voice settings in cfg.
func New(cfg *config.Config, log *logrus.Logger) *Generator {
	return &Generator{
		cfg:        cfg,
		log:        log,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint (tests).
func (g *Generator) WithBaseURL(url string) *Generator {
	g.baseURL = url
	return g
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// narrationText joins the segment narration with blank lines. The hook is
// excluded: it is on-screen text, and speaking it would stretch the audio
// past the durations the captions are scaled against.
func narrationText(script *types.Script) string {
	parts := make([]string, 0, len(script.Segments))
	for _, seg := range script.Segments {
		if seg.NarrationText != "" {
			parts = append(parts, seg.NarrationText)
		}
	}
	return strings.Join(parts, "\n\n")
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Generate synthesizes the segment narration as one continuous take and
// writes it to outFile. It returns the measured audio duration. The hook is
// on-screen text only; speaking it would shift every caption timing, which
// is scaled against this measured duration. Blank lines between segments
// give the voice natural pauses.
func (g *Generator) Generate(ctx context.Context, script *types.Script, outFile string) (float64, error) {
	text := narrationText(script)
	if text == "" {
		return 0, fmt.Errorf("script has no narration text")
	}

	g.log.WithFields(logrus.Fields{
		"voice": g.cfg.Voice.VoiceID,
		"chars": len(text),
	}).Info("[voice] generating voiceover")

	body, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: g.cfg.Voice.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       g.cfg.Voice.Stability,
			SimilarityBoost: g.cfg.Voice.SimilarityBoost,
			Style:           g.cfg.Voice.Style,
			UseSpeakerBoost: g.cfg.Voice.SpeakerBoost,
		},
	})
	if err != nil {
		return 0, fmt.Errorf("marshal TTS request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", g.baseURL, g.cfg.Voice.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("xi-api-key", g.cfg.ElevenLabsKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return 0, fmt.Errorf("%w: elevenlabs status %d: %s", errs.ErrExternalService, resp.StatusCode, detail)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read audio stream: %w", err)
	}
	if len(audio) == 0 {
		return 0, fmt.Errorf("elevenlabs returned empty audio")
	}
	if err := os.WriteFile(outFile, audio, 0644); err != nil {
		return 0, fmt.Errorf("write voiceover: %w", err)
	}

	dur, err := media.ProbeDuration(outFile)
	if err != nil {
		return 0, fmt.Errorf("measure voiceover: %w", err)
	}

	g.log.WithFields(logrus.Fields{
		"file":       outFile,
		"duration_s": dur,
	}).Info("[voice] voiceover ready")
	return dur, nil
}

// Voice is one entry of the account voice list.
type Voice struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// ListVoices returns the voices available to the configured API key.
func (g *Generator) ListVoices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", g.cfg.ElevenLabsKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return nil, fmt.Errorf("%w: elevenlabs status %d: %s", errs.ErrExternalService, resp.StatusCode, detail)
	}

	var out struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("parse voice list: %w", err)
	}
	return out.Voices, nil
}
