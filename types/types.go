package types

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks a project through the pipeline. Transitions are strictly
// forward; "failed" is reachable from any non-terminal state.
type Status string

const (
	StatusPending             Status = "pending"
	StatusGeneratingScript    Status = "generating_script"
	StatusGeneratingVoiceover Status = "generating_voiceover"
	StatusGeneratingImages    Status = "generating_images"
	StatusCreatingVideo       Status = "creating_video"
	StatusCompositing         Status = "compositing"
	StatusCompleted           Status = "completed"
	StatusFailed              Status = "failed"
)

// statusOrder gives each non-failed status its position in the pipeline.
var statusOrder = map[Status]int{
	StatusPending:             0,
	StatusGeneratingScript:    1,
	StatusGeneratingVoiceover: 2,
	StatusGeneratingImages:    3,
	StatusCreatingVideo:       4,
	StatusCompositing:         5,
	StatusCompleted:           6,
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether moving from s to next is a legal forward
// transition. Failing is always allowed from a non-terminal state.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	from, ok1 := statusOrder[s]
	to, ok2 := statusOrder[next]
	return ok1 && ok2 && to > from
}

// MusicMood selects the background music folder.
type MusicMood string

const (
	MoodDramatic  MusicMood = "dramatic"
	MoodSuspense  MusicMood = "suspense"
	MoodInspiring MusicMood = "inspiring"
	MoodEmotional MusicMood = "emotional"
	MoodAdventure MusicMood = "adventure"
)

// AllMoods lists every music mood folder.
var AllMoods = []MusicMood{MoodDramatic, MoodSuspense, MoodInspiring, MoodEmotional, MoodAdventure}

// Valid reports whether m is a known mood.
func (m MusicMood) Valid() bool {
	for _, mood := range AllMoods {
		if m == mood {
			return true
		}
	}
	return false
}

// Emotion is the emotional-arc state of one segment. It drives image
// styling, clip motion and music volume.
type Emotion string

const (
	EmotionTension    Emotion = "tension"
	EmotionFear       Emotion = "fear"
	EmotionDecision   Emotion = "decision"
	EmotionImpact     Emotion = "impact"
	EmotionReflection Emotion = "reflection"
)

// Valid reports whether e is one of the five arc states.
func (e Emotion) Valid() bool {
	switch e {
	case EmotionTension, EmotionFear, EmotionDecision, EmotionImpact, EmotionReflection:
		return true
	}
	return false
}

// StoryLens is the fixed storytelling perspective for the channel.
type StoryLens string

const (
	LensPower        StoryLens = "power_and_control"
	LensFearCourage  StoryLens = "fear_to_courage"
	LensBetrayal     StoryLens = "betrayal_and_consequences"
	LensTurningPoint StoryLens = "single_decision_moments"
	LensUnderrated   StoryLens = "history_ignored_this"
)

// ScriptSegment is one narrated unit of the script, mapped 1:1 to one
// visual scene. Immutable once produced; DurationSec may be rescaled by the
// reconciler through Script.Rescale.
type ScriptSegment struct {
	Index         int     `json:"index"`
	NarrationText string  `json:"narration_text"` // Hindi
	ImagePrompt   string  `json:"image_prompt"`   // English
	DurationSec   float64 `json:"duration_sec"`
	Emotion       Emotion `json:"emotion"`
}

// Script is the full structured script for one video.
type Script struct {
	Title            string          `json:"title"`
	Hook             string          `json:"hook"`
	Segments         []ScriptSegment `json:"segments"`
	TotalDurationSec float64         `json:"total_duration_sec"`
	MusicMood        MusicMood       `json:"music_mood"`
	HistoricalEra    string          `json:"historical_era"`
	EventDescription string          `json:"event_description"`
	StoryLens        StoryLens       `json:"story_lens"`
}

// Rescale uniformly scales every segment duration so their sum equals
// totalSec, keeping the sum-of-segments == TotalDurationSec invariant.
func (s *Script) Rescale(totalSec float64) {
	current := 0.0
	for _, seg := range s.Segments {
		current += seg.DurationSec
	}
	if current <= 0 || totalSec <= 0 {
		return
	}
	factor := totalSec / current
	for i := range s.Segments {
		s.Segments[i].DurationSec *= factor
	}
	s.TotalDurationSec = totalSec
}

// AssetKind distinguishes generated media.
type AssetKind string

const (
	AssetImage AssetKind = "image"
	AssetClip  AssetKind = "clip"
)

// AssetStatus is the generation state of one asset.
type AssetStatus string

const (
	AssetPending   AssetStatus = "pending"
	AssetSucceeded AssetStatus = "succeeded"
	AssetFailed    AssetStatus = "failed"
)

// GeneratedAsset is one image or video clip produced for a segment. Assets
// belong to exactly one project and are never shared.
type GeneratedAsset struct {
	SegmentIndex int         `json:"segment_index"`
	Kind         AssetKind   `json:"kind"`
	RemoteURL    string      `json:"remote_url"`
	LocalPath    string      `json:"local_path,omitempty"`
	Status       AssetStatus `json:"status"`
	Error        string      `json:"error,omitempty"`
}

// Project is the full lifecycle record for one video. It is created at
// request time and mutated in place by the stage currently owning it.
type Project struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`

	Script *Script          `json:"script,omitempty"`
	Assets []GeneratedAsset `json:"assets,omitempty"`

	VoiceoverPath  string `json:"voiceover_path,omitempty"`
	MusicPath      string `json:"music_path,omitempty"`
	FinalVideoPath string `json:"final_video_path,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`
}

// NewProject creates a pending project with a short random id.
func NewProject(topic string) *Project {
	return &Project{
		ID:        uuid.NewString()[:8],
		Topic:     topic,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
}

// VideoRequest is a manual project-creation request.
type VideoRequest struct {
	Topic         string    `json:"topic" validate:"required"`
	Era           string    `json:"era" validate:"required"`
	NumSegments   int       `json:"num_segments" validate:"omitempty,gte=5,lte=15"`
	TargetSeconds int       `json:"target_duration" validate:"omitempty,gte=30,lte=60"`
	MusicMood     MusicMood `json:"music_mood" validate:"omitempty"`
	StoryLens     StoryLens `json:"story_lens" validate:"omitempty"`
}

// Defaults fills zero-valued fields before the pipeline recalculates them
// from the measured narration.
func (r *VideoRequest) Defaults() {
	if r.NumSegments == 0 {
		r.NumSegments = 8
	}
	if r.TargetSeconds == 0 {
		r.TargetSeconds = 40
	}
	if r.MusicMood == "" || !r.MusicMood.Valid() {
		r.MusicMood = MoodDramatic
	}
	if r.StoryLens == "" {
		r.StoryLens = LensTurningPoint
	}
}

// CaptionSegment is one burned-in caption: wrapped text plus a start/end
// window on the narration timeline. Windows are ordered and non-overlapping.
type CaptionSegment struct {
	Text      string  `json:"text"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// Topic is one entry of the curated topic pool.
type Topic struct {
	Topic string    `json:"topic"`
	Era   string    `json:"era"`
	Mood  MusicMood `json:"mood"`
	Hook  string    `json:"hook"`
	Lens  StoryLens `json:"lens"`
}
