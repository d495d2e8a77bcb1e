package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisper-asr-webservice/internal/app/inference"
	"whisper-asr-webservice/internal/app/model"
)

const verboseResponse = `{
  "task": "transcribe",
  "language": "english",
  "duration": 2.0,
  "text": "hello there general kenobi",
  "segments": [
    {"id": 0, "start": 0.0, "end": 1.0, "text": " hello there"},
    {"id": 1, "start": 1.0, "end": 2.0, "text": " general kenobi"}
  ],
  "words": [
    {"word": "hello", "start": 0.0, "end": 0.4},
    {"word": "there", "start": 0.5, "end": 0.9},
    {"word": "general", "start": 1.0, "end": 1.5},
    {"word": "kenobi", "start": 1.5, "end": 2.0}
  ]
}`

type fakeAPI struct {
	mu     sync.Mutex
	paths  []string
	format string
	lang   string
	header []byte
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, r.Method+" "+r.URL.Path)
	switch r.URL.Path {
	case "/v1/models/base":
		json.NewEncoder(w).Encode(map[string]any{"id": "base", "object": "model", "owned_by": "test"})
	case "/v1/audio/transcriptions", "/v1/audio/translations":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.format = r.FormValue("response_format")
		f.lang = r.FormValue("language")
		file, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.header, _ = io.ReadAll(io.LimitReader(file, 4))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, verboseResponse)
	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":{"message":"model not found","type":"invalid_request_error"}}`)
	}
}

func newRuntime(t *testing.T) (*Runtime, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	return New(Config{APIKey: "test", BaseURL: srv.URL + "/v1/"}, nil), api
}

func TestLoadChecksModelExists(t *testing.T) {
	rt, api := newRuntime(t)
	assert.Equal(t, "openai", rt.Name())

	inst, err := rt.Load(context.Background(), inference.LoadSpec{Model: "base"})
	require.NoError(t, err)
	require.NoError(t, inst.Close())

	_, err = rt.Load(context.Background(), inference.LoadSpec{Model: "huge"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "huge")
	assert.Equal(t, []string{"GET /v1/models/base", "GET /v1/models/huge"}, api.paths)
}

func TestTranscribeConvertsVerboseJSON(t *testing.T) {
	rt, api := newRuntime(t)
	inst, err := rt.Load(context.Background(), inference.LoadSpec{Model: "base"})
	require.NoError(t, err)

	res, err := inst.Transcribe(context.Background(), make([]byte, 64000), inference.Params{
		Task:           model.TaskTranscribe,
		Language:       "en",
		WordTimestamps: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "verbose_json", api.format)
	assert.Equal(t, "en", api.lang)
	assert.Equal(t, []byte("RIFF"), api.header)

	assert.Equal(t, "en", res.Language)
	require.Len(t, res.Segments, 2)
	assert.Equal(t, " general kenobi", res.Segments[1].Text)
	require.Len(t, res.Segments[1].Words, 2)
	assert.Equal(t, "kenobi", res.Segments[1].Words[1].Word)
	assert.True(t, res.HasTimestamps())
}

func TestTranslateUsesTranslationEndpoint(t *testing.T) {
	rt, api := newRuntime(t)
	inst, err := rt.Load(context.Background(), inference.LoadSpec{Model: "base"})
	require.NoError(t, err)

	_, err = inst.Transcribe(context.Background(), make([]byte, 320), inference.Params{Task: model.TaskTranslate, Language: "fr"})
	require.NoError(t, err)
	assert.Contains(t, api.paths, "POST /v1/audio/translations")
	assert.Empty(t, api.lang)
}

func TestDetectLanguageMapsNameToCode(t *testing.T) {
	rt, _ := newRuntime(t)
	inst, err := rt.Load(context.Background(), inference.LoadSpec{Model: "base"})
	require.NoError(t, err)

	det, err := inst.DetectLanguage(context.Background(), make([]byte, 320))
	require.NoError(t, err)
	assert.Equal(t, "en", det.Language)
}

func TestWavReaderHeader(t *testing.T) {
	data, err := io.ReadAll(wavReader([]byte{1, 2, 3, 4}))
	require.NoError(t, err)
	require.Len(t, data, 48)
	assert.Equal(t, "RIFF", string(data[:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, "data", string(data[36:40]))
	assert.Equal(t, []byte{4, 0, 0, 0}, data[40:44])
	assert.Equal(t, []byte{1, 2, 3, 4}, data[44:])
}
