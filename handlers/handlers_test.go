package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hindi-reels-pipeline/config"
	"hindi-reels-pipeline/metrics"
	"hindi-reels-pipeline/music"
	"hindi-reels-pipeline/pipeline"
	"hindi-reels-pipeline/topics"
	"hindi-reels-pipeline/types"
	"hindi-reels-pipeline/upload"
	"hindi-reels-pipeline/voice"
)

type stubRunner struct{ ran chan string }

func (r *stubRunner) Run(ctx context.Context, projectID string, req *types.VideoRequest) error {
	if r.ran != nil {
		r.ran <- projectID
	}
	return nil
}

type stubVoices struct{ err error }

func (v stubVoices) ListVoices(ctx context.Context) ([]voice.Voice, error) {
	if v.err != nil {
		return nil, v.err
	}
	return []voice.Voice{{VoiceID: "FZkK3TvQ0pjyDmT8fzIW", Name: "Bunty"}}, nil
}

type stubUploader struct{}

func (stubUploader) Upload(ctx context.Context, project *types.Project, caps []types.CaptionSegment) (*upload.Result, error) {
	return &upload.Result{VideoID: "yt123", VideoURL: "https://www.youtube.com/watch?v=yt123"}, nil
}

func newTestApp(t *testing.T, runner Runner) (*fiber.App, pipeline.Registry) {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	cfg := &config.Config{}
	cfg.Caption.MaxCharsPerLine = 35

	reg := pipeline.NewRegistry()
	h := New(cfg, log, reg, runner, topics.NewPool(),
		music.New(t.TempDir(), log), stubVoices{}, stubUploader{},
		metrics.New(filepath.Join(t.TempDir(), "metrics.json"), log))

	app := fiber.New()
	api := app.Group("/api/v1")
	api.Post("/videos", h.CreateVideo)
	api.Post("/videos/auto", h.CreateAutoVideo)
	api.Get("/videos", h.ListVideos)
	api.Get("/videos/:id/status", h.GetStatus)
	api.Post("/videos/:id/upload", h.UploadVideo)
	api.Get("/music/library", h.MusicLibrary)
	api.Get("/voices", h.Voices)
	api.Get("/topics", h.Topics)
	app.Get("/health", h.Health)
	return app, reg
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, int(5*time.Second/time.Millisecond))
	require.NoError(t, err)
	return resp
}

func TestCreateVideoAcceptsAndStartsRun(t *testing.T) {
	runner := &stubRunner{ran: make(chan string, 1)}
	app, reg := newTestApp(t, runner)

	resp := postJSON(t, app, "/api/v1/videos", types.VideoRequest{
		Topic: "Battle of Haldighati",
		Era:   "Mughal era",
	})
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	var out struct {
		ID     string       `json:"id"`
		Status types.Status `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, types.StatusPending, out.Status)

	select {
	case id := <-runner.ran:
		assert.Equal(t, out.ID, id)
	case <-time.After(time.Second):
		t.Fatal("pipeline run was not started")
	}

	_, ok := reg.Get(out.ID)
	assert.True(t, ok)
}

func TestCreateVideoRejectsMissingTopic(t *testing.T) {
	app, _ := newTestApp(t, &stubRunner{})
	resp := postJSON(t, app, "/api/v1/videos", map[string]string{"era": "Mughal era"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestCreateAutoVideoUsesTopicPool(t *testing.T) {
	runner := &stubRunner{ran: make(chan string, 1)}
	app, reg := newTestApp(t, runner)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/videos/auto", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusAccepted, resp.StatusCode)

	<-runner.ran
	list := reg.List()
	require.Len(t, list, 1)
	assert.NotEmpty(t, list[0].Topic)
}

func TestGetStatus(t *testing.T) {
	app, reg := newTestApp(t, &stubRunner{})

	p := types.NewProject("topic")
	require.NoError(t, reg.Add(p))

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/videos/%s/status", p.ID), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/videos/nope/status", nil)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUploadRequiresCompletedProject(t *testing.T) {
	app, reg := newTestApp(t, &stubRunner{})

	p := types.NewProject("topic")
	require.NoError(t, reg.Add(p))

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/videos/%s/upload", p.ID), nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestHealthAndCatalogEndpoints(t *testing.T) {
	app, _ := newTestApp(t, &stubRunner{})

	for _, path := range []string{"/health", "/api/v1/music/library", "/api/v1/voices", "/api/v1/topics", "/api/v1/videos"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
	}
}
