package replicate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hindi-reels-pipeline/errs"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func TestWaitPollsUntilSucceeded(t *testing.T) {
	var polls int32

	mux := http.NewServeMux()
	mux.HandleFunc("/predictions/pred-1", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&polls, 1)
		status := StatusProcessing
		output := ""
		if n >= 4 {
			status = StatusSucceeded
			output = `"https://cdn.example.com/clip.mp4"`
		}
		fmt.Fprintf(w, `{"id":"pred-1","status":%q,"output":%s}`, status, orNull(output))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := New(testLogger(), "tok", 0, 10).WithBaseURL(srv.URL)
	pred := &Prediction{ID: "pred-1", Status: StatusStarting}

	done, err := client.Wait(context.Background(), pred)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, done.Status)
	assert.EqualValues(t, 4, atomic.LoadInt32(&polls))

	url, ok := done.FirstOutput()
	require.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/clip.mp4", url)
}

func TestWaitTimesOutAfterMaxAttempts(t *testing.T) {
	var polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/predictions/pred-2", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&polls, 1)
		fmt.Fprint(w, `{"id":"pred-2","status":"processing"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := New(testLogger(), "tok", 0, 7).WithBaseURL(srv.URL)
	pred := &Prediction{ID: "pred-2", Status: StatusProcessing}

	_, err := client.Wait(context.Background(), pred)
	require.ErrorIs(t, err, errs.ErrTimeout)
	assert.EqualValues(t, 7, atomic.LoadInt32(&polls))
}

func TestWaitSurfacesRemoteFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/predictions/pred-3", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"pred-3","status":"failed","error":"NSFW content detected"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := New(testLogger(), "tok", 0, 5).WithBaseURL(srv.URL)
	pred := &Prediction{ID: "pred-3", Status: StatusProcessing}

	_, err := client.Wait(context.Background(), pred)
	require.ErrorIs(t, err, errs.ErrGenerationFailed)
	assert.Contains(t, err.Error(), "NSFW content detected")
}

func TestWaitReturnsImmediatelyWhenAlreadyTerminal(t *testing.T) {
	client := New(testLogger(), "tok", 0, 5)
	pred := &Prediction{
		ID:     "pred-4",
		Status: StatusSucceeded,
		Output: json.RawMessage(`["https://cdn.example.com/a.png","https://cdn.example.com/b.png"]`),
	}

	done, err := client.Wait(context.Background(), pred)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"}, done.OutputURLs())
}

func TestCreatePredictionSendsInput(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/models/kwaivgi/kling-v2.1/predictions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body struct {
			Input map[string]any `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a horseman at dusk", body.Input["prompt"])

		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"pred-5","status":"starting","urls":{"get":"http://example.com/get"}}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := New(testLogger(), "tok", 0, 5).WithBaseURL(srv.URL)
	pred, err := client.CreatePrediction(context.Background(), "kwaivgi/kling-v2.1", map[string]any{
		"prompt": "a horseman at dusk",
	})
	require.NoError(t, err)
	assert.Equal(t, "pred-5", pred.ID)
	assert.Equal(t, "http://example.com/get", pred.URLs.Get)
}

func TestCreatePredictionWrapsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := New(testLogger(), "tok", 0, 5).WithBaseURL(srv.URL)
	_, err := client.CreatePrediction(context.Background(), "bytedance/seedream-4", map[string]any{"prompt": "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrExternalService)
	assert.Contains(t, err.Error(), "429")
}

func TestWaitWrapsPollAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"server error"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(testLogger(), "tok", 0, 5).WithBaseURL(srv.URL)
	_, err := client.Wait(context.Background(), &Prediction{ID: "pred-6", Status: StatusProcessing})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrExternalService)
}

func orNull(s string) string {
	if s == "" {
		return "null"
	}
	return s
}
