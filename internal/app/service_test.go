package app

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"whisper-asr-webservice/internal/app/model"
	"whisper-asr-webservice/internal/config"
)

func stubConfig(t *testing.T) *config.Config {
	return &config.Config{
		Engine:      model.EngineFasterWhisper,
		Model:       "base",
		ModelPath:   t.TempDir(),
		Device:      model.DeviceCPU,
		Runtime:     "stub",
		LoadTimeout: time.Minute,
		Server:      config.ServerConfig{Host: "127.0.0.1", Port: "0"},
	}
}

func TestInitializeServiceServesTranscriptions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := stubConfig(t)
	svc, err := InitializeService(cfg, zap.NewNop())
	require.NoError(t, err)
	defer svc.Manager.Shutdown(context.Background())

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("audio_file", "clip.raw")
	require.NoError(t, err)
	_, err = part.Write(make([]byte, 32000))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/asr?encode=false", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	svc.Server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "faster_whisper", rec.Header().Get("Asr-Engine"))
	assert.DirExists(t, filepath.Join(cfg.ModelPath, "faster_whisper", "base"))

	metrics := httptest.NewRecorder()
	svc.Server.Router().ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, metrics.Body.String(), "asr_models_loaded 1")
	assert.Contains(t, metrics.Body.String(), `asr_requests_total{engine="faster_whisper",format="txt",result="ok"} 1`)
}

func TestInitializeServiceRejectsBrokenCatalogue(t *testing.T) {
	cfg := stubConfig(t)
	cfg.Catalogue = filepath.Join(t.TempDir(), "absent.yaml")
	_, err := InitializeService(cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	svc, err := InitializeService(stubConfig(t), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type recordedProgress struct{ files []string }

func (p *recordedProgress) Track(file string, _ int64, r io.Reader) io.Reader {
	p.files = append(p.files, file)
	return r
}

func TestInitializeStoreUsesCatalogueFile(t *testing.T) {
	payload := []byte("weights")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write(payload) }))
	defer srv.Close()

	catalogue := filepath.Join(t.TempDir(), "catalogue.yaml")
	require.NoError(t, os.WriteFile(catalogue, []byte(`engines:
  faster_whisper:
    - name: tuned
      files:
        - {name: model.bin, url: "`+srv.URL+`/model.bin"}
`), 0o644))

	cfg := stubConfig(t)
	cfg.Catalogue = catalogue
	progress := &recordedProgress{}
	store, err := InitializeStore(cfg, zap.NewNop(), progress)
	require.NoError(t, err)

	dir, err := store.Resolve(context.Background(), model.EngineFasterWhisper, "tuned")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "model.bin"))
	assert.Equal(t, []string{"model.bin"}, progress.files)
}

func TestInitializeServiceOverRemoteRuntime(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var paths []string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		io.WriteString(w, `{"id":"whisper-1","object":"model","owned_by":"test"}`)
	}))
	defer api.Close()

	cfg := stubConfig(t)
	cfg.Engine = model.EngineWhisperX
	cfg.HFToken = "hf_secret"
	cfg.Runtime = "openai"
	cfg.OpenAI = config.OpenAIConfig{APIKey: "test", BaseURL: api.URL + "/v1", Model: "whisper-1"}
	svc, err := InitializeService(cfg, zap.NewNop())
	require.NoError(t, err)
	defer svc.Manager.Shutdown(context.Background())

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("audio_file", "clip.raw")
	require.NoError(t, err)
	_, err = part.Write(make([]byte, 32000))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/asr?encode=false&diarize=true", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	svc.Server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "diarize")
	assert.Empty(t, paths)

	h, err := svc.Manager.Acquire(context.Background(), cfg.DefaultKey())
	require.NoError(t, err)
	svc.Manager.Release(h)
	assert.Equal(t, []string{"/v1/models/whisper-1"}, paths)
}
