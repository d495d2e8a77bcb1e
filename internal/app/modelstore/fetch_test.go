package modelstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisper-asr-webservice/internal/app/model"
)

func checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

type countingProgress struct{ files []string }

func (p *countingProgress) Track(file string, size int64, r io.Reader) io.Reader {
	p.files = append(p.files, file)
	return r
}

func TestHTTPFetcherDownloadsAndVerifies(t *testing.T) {
	payload := []byte("pretend these are weights")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(nil)
	progress := &countingProgress{}
	f.Progress = progress
	dir := t.TempDir()
	entry := Entry{Name: "custom", Files: []File{{Name: "model.bin", URL: srv.URL + "/model.bin", SHA256: checksum(payload)}}}

	require.NoError(t, f.Fetch(context.Background(), model.EngineFasterWhisper, entry, dir))
	got, err := os.ReadFile(filepath.Join(dir, "model.bin"))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.Equal(t, []string{"model.bin"}, progress.files)
}

func TestHTTPFetcherRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	f := NewHTTPFetcher(nil)
	f.Backoff = time.Millisecond
	entry := Entry{Name: "custom", Files: []File{{Name: "model.bin", URL: srv.URL}}}
	require.NoError(t, f.Fetch(context.Background(), model.EngineFasterWhisper, entry, t.TempDir()))
	assert.Equal(t, int32(3), hits.Load())
}

func TestHTTPFetcherRejectsChecksumMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "tampered")
	}))
	defer srv.Close()

	f := NewHTTPFetcher(nil)
	f.Retries = 1
	dir := t.TempDir()
	entry := Entry{Name: "custom", Files: []File{{Name: "model.bin", URL: srv.URL, SHA256: checksum([]byte("genuine"))}}}

	err := f.Fetch(context.Background(), model.EngineFasterWhisper, entry, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
	assert.NoFileExists(t, filepath.Join(dir, "model.bin"))
}

func TestHTTPFetcherWithoutFilesHasNoSource(t *testing.T) {
	err := NewHTTPFetcher(nil).Fetch(context.Background(), model.EngineFasterWhisper, Entry{Name: "base"}, t.TempDir())
	assert.ErrorIs(t, err, ErrNoSource)
}

type fakeBucket struct {
	objects map[string][]byte
	prefix  string
}

func (b *fakeBucket) list(_ context.Context, prefix string) ([]object, error) {
	b.prefix = prefix
	var out []object
	for key, data := range b.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, object{key: key, size: int64(len(data))})
		}
	}
	return out, nil
}

func (b *fakeBucket) open(_ context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b.objects[key])), nil
}

func TestMinioFetcherMirrorsPrefix(t *testing.T) {
	b := &fakeBucket{objects: map[string][]byte{
		"faster_whisper/base/model.bin":            []byte("weights"),
		"faster_whisper/base/tokenizer/vocab.json": []byte("{}"),
		"faster_whisper/small/model.bin":           []byte("other"),
	}}
	f := newMinioFetcher(b, nil)
	dir := t.TempDir()

	require.NoError(t, f.Fetch(context.Background(), model.EngineFasterWhisper, Entry{Name: "base"}, dir))
	assert.Equal(t, "faster_whisper/base/", b.prefix)
	assert.FileExists(t, filepath.Join(dir, "model.bin"))
	assert.FileExists(t, filepath.Join(dir, "tokenizer", "vocab.json"))
	assert.NoFileExists(t, filepath.Join(dir, "small"))
}

func TestMinioFetcherWithoutObjectsHasNoSource(t *testing.T) {
	f := newMinioFetcher(&fakeBucket{objects: map[string][]byte{}}, nil)
	err := f.Fetch(context.Background(), model.EngineWhisperX, Entry{Name: "tiny"}, t.TempDir())
	assert.ErrorIs(t, err, ErrNoSource)
}
