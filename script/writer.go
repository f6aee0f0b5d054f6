// Package script generates structured Hindi narration scripts for
// historical short videos through the Groq chat-completions API.
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"hindi-reels-pipeline/config"
	"hindi-reels-pipeline/types"
)

const systemPrompt = `You are a master Hindi storyteller for a faceless YouTube Shorts channel about dramatic moments in history. You write in conversational Hindi (Devanagari script) that sounds natural when spoken aloud, with Urdu-flavored words where they add weight.

Your stories follow a fixed dramatic arc across the segments:
- Opening segments: TENSION. Set the scene, something is wrong.
- Early middle: FEAR. The threat becomes real and personal.
- Midpoint: DECISION. One person makes one irreversible choice.
- Late middle: IMPACT. The consequences land, history turns.
- Final segment: REFLECTION. A quiet line that stays with the viewer.

You MUST respond with ONLY valid JSON, no markdown, no preamble.

The JSON object must have:
- "title": short Hindi title (max 60 chars)
- "hook": first spoken line, a question or shocking claim in Hindi
- "historical_era": the era in English
- "event_description": one English sentence summarizing the event
- "segments": array where each element has:
  - "narration_text": Hindi narration, 1-3 short sentences
  - "image_prompt": detailed ENGLISH cinematic image prompt for this moment
  - "duration_sec": estimated spoken duration in seconds

Historical accuracy is mandatory. Real names, real places, real dates. Never invent events.`

// Writer turns a video request into a full script.
type Writer struct {
	cfg    *config.Config
	log    *logrus.Logger
	client *openai.Client
}

// New builds a Writer talking to the endpoint configured in cfg.Script.
func New(cfg *config.Config, log *logrus.Logger) *Writer {
	clientCfg := openai.DefaultConfig(cfg.GroqKey)
	clientCfg.BaseURL = cfg.Script.BaseURL
	return &Writer{
		cfg:    cfg,
		log:    log,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

// rawScript mirrors the JSON the model returns.
type rawScript struct {
	Title            string `json:"title"`
	Hook             string `json:"hook"`
	HistoricalEra    string `json:"historical_era"`
	EventDescription string `json:"event_description"`
	Segments         []struct {
		NarrationText string  `json:"narration_text"`
		ImagePrompt   string  `json:"image_prompt"`
		DurationSec   float64 `json:"duration_sec"`
	} `json:"segments"`
}

// Generate produces a script for the request, retrying once on a bad
// response and falling back to a canned script if the model keeps failing.
func (w *Writer) Generate(ctx context.Context, req *types.VideoRequest) (*types.Script, error) {
	w.log.WithFields(logrus.Fields{
		"topic": req.Topic,
		"model": w.cfg.Script.Model,
	}).Info("[script] generating script")

	var lastErr error
	for attempt := 1; attempt <= 2; attempt++ {
		script, err := w.requestScript(ctx, req)
		if err == nil {
			w.log.WithFields(logrus.Fields{
				"title":    script.Title,
				"segments": len(script.Segments),
				"total_s":  script.TotalDurationSec,
			}).Info("[script] script ready")
			return script, nil
		}
		lastErr = err
		w.log.WithError(err).WithField("attempt", attempt).Warn("[script] generation attempt failed")
	}

	w.log.WithError(lastErr).Warn("[script] falling back to canned script")
	return FallbackScript(req), nil
}

func (w *Writer) requestScript(ctx context.Context, req *types.VideoRequest) (*types.Script, error) {
	resp, err := w.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: w.cfg.Script.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(req)},
		},
		Temperature: float32(w.cfg.Script.Temperature),
		MaxTokens:   w.cfg.Script.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("model returned no choices")
	}

	content := cleanJSON(resp.Choices[0].Message.Content)

	var raw rawScript
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parse script JSON: %w (raw: %.200s)", err, content)
	}
	if len(raw.Segments) == 0 {
		return nil, fmt.Errorf("script has no segments")
	}

	script := &types.Script{
		Title:            raw.Title,
		Hook:             raw.Hook,
		HistoricalEra:    raw.HistoricalEra,
		EventDescription: raw.EventDescription,
		MusicMood:        req.MusicMood,
		StoryLens:        req.StoryLens,
	}
	if script.HistoricalEra == "" {
		script.HistoricalEra = req.Era
	}

	total := 0.0
	for i, s := range raw.Segments {
		if strings.TrimSpace(s.NarrationText) == "" {
			return nil, fmt.Errorf("segment %d has empty narration", i)
		}
		dur := s.DurationSec
		if dur <= 0 {
			// Hindi narration runs close to 2.5 words per second.
			dur = float64(len(strings.Fields(s.NarrationText))) / 2.5
		}
		script.Segments = append(script.Segments, types.ScriptSegment{
			Index:         i,
			NarrationText: s.NarrationText,
			ImagePrompt:   s.ImagePrompt,
			DurationSec:   dur,
			Emotion:       EmotionForPosition(i, len(raw.Segments)),
		})
		total += dur
	}
	script.TotalDurationSec = total
	return script, nil
}

func buildUserPrompt(req *types.VideoRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a Hindi short-video script about: %s\n", req.Topic)
	fmt.Fprintf(&sb, "Historical era: %s\n", req.Era)
	fmt.Fprintf(&sb, "Story lens: %s\n", lensInstruction(req.StoryLens))
	fmt.Fprintf(&sb, "Exactly %d segments. Total spoken duration around %d seconds.\n", req.NumSegments, req.TargetSeconds)
	sb.WriteString("Respond ONLY with the JSON object.")
	return sb.String()
}

func lensInstruction(lens types.StoryLens) string {
	switch lens {
	case types.LensPower:
		return "frame the story around who held power and how they used it"
	case types.LensFearCourage:
		return "trace one person's journey from fear to courage"
	case types.LensBetrayal:
		return "center the betrayal and what it cost everyone involved"
	case types.LensUnderrated:
		return "present this as a moment mainstream history overlooked"
	default:
		return "build everything around one single irreversible decision"
	}
}

// EmotionForPosition maps a segment's position in the arc to its emotion.
// The split is proportional so it holds for any segment count: the first
// quarter is tension, the next quarter fear, the midpoint decision, the
// following stretch impact, and the final segment reflection.
func EmotionForPosition(index, total int) types.Emotion {
	if total <= 1 {
		return types.EmotionDecision
	}
	if index == total-1 {
		return types.EmotionReflection
	}
	pos := float64(index) / float64(total-1)
	switch {
	case pos < 0.25:
		return types.EmotionTension
	case pos < 0.5:
		return types.EmotionFear
	case pos < 0.625:
		return types.EmotionDecision
	default:
		return types.EmotionImpact
	}
}

// FallbackScript is the deterministic script used when generation fails
// outright, so the rest of the pipeline can still be exercised.
func FallbackScript(req *types.VideoRequest) *types.Script {
	lines := []struct {
		narration string
		prompt    string
	}{
		{"1576 का साल था। हल्दीघाटी के पहाड़ों में धूल उड़ रही थी।", "Dusty mountain pass at dawn, Rajput war banners in haze, cinematic wide shot, 16th century India"},
		{"महाराणा प्रताप के सामने मुग़ल सेना खड़ी थी, कई गुना बड़ी।", "Vast Mughal army formation seen from a ridge, armored cavalry, ominous storm light"},
		{"हार सामने थी। हर सलाहकार ने कहा, समर्पण कर दो।", "Tense war council inside a torch-lit tent, worried faces of Rajput commanders"},
		{"लेकिन प्रताप ने एक फ़ैसला किया। झुकेंगे नहीं।", "Lone Rajput king standing defiant, hand on sword hilt, dramatic rim lighting"},
		{"चेतक पर सवार होकर वो सीधे मानसिंह की ओर बढ़े।", "Warrior on a galloping blue-grey horse charging through battle chaos, motion blur"},
		{"घायल चेतक ने बाईस फ़ीट का नाला एक छलांग में पार किया।", "Horse leaping over a ravine mid-air, rider bent low, epic slow-motion composition"},
		{"उस दिन मेवाड़ हारा नहीं। उस दिन एक मिसाल बनी।", "Battlefield at dusk, lone banner still standing amid smoke, somber golden light"},
		{"इतिहास ताक़त नहीं, इरादे याद रखता है।", "Ancient stone memorial of a horse in soft morning light, quiet and reverent"},
	}

	script := &types.Script{
		Title:            "हल्दीघाटी: एक फ़ैसला जिसने इतिहास बदल दिया",
		Hook:             "क्या एक घोड़ा इतिहास बदल सकता है?",
		HistoricalEra:    "Mughal era, 16th century",
		EventDescription: "Maharana Pratap's last stand at the Battle of Haldighati, 1576",
		MusicMood:        req.MusicMood,
		StoryLens:        req.StoryLens,
	}
	total := 0.0
	for i, l := range lines {
		script.Segments = append(script.Segments, types.ScriptSegment{
			Index:         i,
			NarrationText: l.narration,
			ImagePrompt:   l.prompt,
			DurationSec:   5,
			Emotion:       EmotionForPosition(i, len(lines)),
		})
		total += 5
	}
	script.TotalDurationSec = total
	return script
}

// cleanJSON strips markdown fences when the model wraps its response in
// ```json ... ```.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
