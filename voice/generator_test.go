package voice

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hindi-reels-pipeline/config"
	"hindi-reels-pipeline/errs"
	"hindi-reels-pipeline/types"
)

func testGenerator(baseURL string) *Generator {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	cfg := &config.Config{ElevenLabsKey: "key"}
	cfg.Voice.VoiceID = "v1"
	return New(cfg, log).WithBaseURL(baseURL)
}

func TestListVoices(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/voices", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("xi-api-key"))
		fmt.Fprint(w, `{"voices":[{"voice_id":"v1","name":"Bunty","category":"professional"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	voices, err := testGenerator(srv.URL).ListVoices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 1)
	assert.Equal(t, "Bunty", voices[0].Name)
}

func TestListVoicesSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testGenerator(srv.URL).ListVoices(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrExternalService)
	assert.Contains(t, err.Error(), "401")
}

func TestNarrationTextSkipsHook(t *testing.T) {
	script := &types.Script{
		Hook: "क्या आप जानते हैं?",
		Segments: []types.ScriptSegment{
			{NarrationText: "पहली पंक्ति"},
			{NarrationText: ""},
			{NarrationText: "दूसरी पंक्ति"},
		},
	}

	text := narrationText(script)
	assert.Equal(t, "पहली पंक्ति\n\nदूसरी पंक्ति", text)
	assert.NotContains(t, text, script.Hook)
}

func TestNarrationTextEmptyScript(t *testing.T) {
	assert.Empty(t, narrationText(&types.Script{Hook: "हुक"}))
}

func TestGenerateRejectsEmptyScript(t *testing.T) {
	g := testGenerator("http://127.0.0.1:0")
	_, err := g.Generate(context.Background(), &types.Script{}, "out.mp3")
	require.Error(t, err)
}
