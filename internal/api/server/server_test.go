package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	v1routes "whisper-asr-webservice/internal/api/v1/routes"
	"whisper-asr-webservice/internal/api/v1/services"
	"whisper-asr-webservice/internal/app/dispatcher"
	"whisper-asr-webservice/internal/app/engine"
	"whisper-asr-webservice/internal/app/engine/fasterwhisper"
	"whisper-asr-webservice/internal/app/inference/stub"
	"whisper-asr-webservice/internal/app/lifecycle"
	"whisper-asr-webservice/internal/app/model"
	"whisper-asr-webservice/internal/app/modelstore"
	"whisper-asr-webservice/internal/config"
)

// newTestServer wires the real stack over the stub runtime
func newTestServer(t *testing.T) (*Server, *stub.Runtime) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rt := stub.New(0)
	fw, err := fasterwhisper.New(engine.Deps{Runtime: rt})
	require.NoError(t, err)
	set := engine.NewSet(fw)

	reg := prometheus.NewRegistry()
	mgr := lifecycle.New(set, lifecycle.Config{}, lifecycle.WithMetrics(lifecycle.NewMetrics(reg)))
	t.Cleanup(func() { mgr.Shutdown(context.Background()) })

	key := model.ModelKey{Engine: model.EngineFasterWhisper, Name: "base", Device: model.DeviceCPU}
	d := dispatcher.New(mgr, set, dispatcher.WithMetrics(dispatcher.NewMetrics(reg)))
	container := &v1routes.ServiceContainer{
		ASRService:   services.NewASRService(d, nil, modelstore.DefaultCatalogue(), key, nil),
		ModelService: services.NewModelService(mgr, key),
	}
	return NewServer(config.ServerConfig{Host: "127.0.0.1", Port: "0"}, container, reg, zap.NewNop()), rt
}

func upload(t *testing.T, path, field string, seconds int, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	part, err := w.CreateFormFile(field, "speech.raw")
	require.NoError(t, err)
	_, err = part.Write(make([]byte, seconds*32000))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestTranscriptionEndToEnd(t *testing.T) {
	srv, rt := newTestServer(t)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, upload(t, "/asr?encode=false&output=vtt", "audio_file", 2, nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nbase segment 1\n\n00:00:01.000 --> 00:00:02.000\nbase segment 2\n\n", rec.Body.String())
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	}
	assert.Equal(t, int64(1), rt.Loads())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Models []struct {
			State string `json:"state"`
			Refs  int    `json:"refs"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Len(t, status.Models, 1)
	assert.Equal(t, "ready", status.Models[0].State)
	assert.Zero(t, status.Models[0].Refs)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `asr_requests_total{engine="faster_whisper",format="vtt",result="ok"} 3`)
	assert.Contains(t, rec.Body.String(), "asr_models_loaded 1")
}

func TestModelOverrideAndUnload(t *testing.T) {
	srv, rt := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, upload(t, "/audio/transcriptions", "file", 1, map[string]string{
		"encode": "false", "model": "small", "response_format": "txt",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "small segment 1\n", rec.Body.String())
	assert.Equal(t, int64(1), rt.Loads())

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, upload(t, "/audio/transcriptions", "file", 1, map[string]string{
		"encode": "false", "model": "gigantic",
	}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/models/faster_whisper/small", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/models/faster_whisper/small", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnsupportedOptionRejectedBeforeLoad(t *testing.T) {
	srv, rt := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, upload(t, "/asr?encode=false&diarize=true", "audio_file", 1, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, rt.Loads())
}

func TestDetectLanguageEndToEnd(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, upload(t, "/detect-language?encode=false", "audio_file", 1, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"detected_language":"english","language_code":"en","confidence":0.99}`, rec.Body.String())
	assert.Equal(t, "faster_whisper", rec.Header().Get("Asr-Engine"))
}

func TestIndexRedirectsToDocs(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/docs/index.html", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
