package modelstore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/model"
)

type fetchFunc func(ctx context.Context, engine model.EngineKind, entry Entry, dir string) error

func (f fetchFunc) Fetch(ctx context.Context, engine model.EngineKind, entry Entry, dir string) error {
	return f(ctx, engine, entry, dir)
}

func writeWeights(dir string) error {
	return os.WriteFile(filepath.Join(dir, "model.bin"), []byte("weights"), 0o644)
}

func TestResolveRejectsUnknownModel(t *testing.T) {
	s := New(t.TempDir(), nil, nil, nil)
	_, err := s.Resolve(context.Background(), model.EngineOpenAIWhisper, "gigantic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gigantic")
}

func TestResolveWithoutFetcherCreatesDirectory(t *testing.T) {
	root := t.TempDir()
	s := New(root, nil, nil, nil)

	dir, err := s.Resolve(context.Background(), model.EngineFasterWhisper, "base")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "faster_whisper", "base"), dir)
	assert.DirExists(t, dir)
	assert.Empty(t, s.Cached(model.EngineFasterWhisper))
}

func TestResolveCoalescesConcurrentFetches(t *testing.T) {
	var calls atomic.Int32
	gate := make(chan struct{})
	fetcher := fetchFunc(func(ctx context.Context, engine model.EngineKind, entry Entry, dir string) error {
		calls.Add(1)
		<-gate
		return writeWeights(dir)
	})
	s := New(t.TempDir(), nil, fetcher, nil)

	const callers = 8
	var wg sync.WaitGroup
	dirs := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dirs[i], errs[i] = s.Resolve(context.Background(), model.EngineWhisperX, "small")
		}(i)
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for i := range dirs {
		require.NoError(t, errs[i])
		assert.Equal(t, dirs[0], dirs[i])
	}
	assert.FileExists(t, filepath.Join(dirs[0], "model.bin"))
	assert.Equal(t, []string{"small"}, s.Cached(model.EngineWhisperX))

	// Populated directories are served without fetching again
	_, err := s.Resolve(context.Background(), model.EngineWhisperX, "small")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFailedFetchLeavesNothingBehind(t *testing.T) {
	root := t.TempDir()
	fetcher := fetchFunc(func(ctx context.Context, engine model.EngineKind, entry Entry, dir string) error {
		require.NoError(t, writeWeights(dir))
		return errors.New("connection reset")
	})
	s := New(root, nil, fetcher, nil)

	_, err := s.Resolve(context.Background(), model.EngineOpenAIWhisper, "tiny")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")

	entries, err := os.ReadDir(filepath.Join(root, "openai_whisper"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNoSourceFallsBackToEngineDownload(t *testing.T) {
	s := New(t.TempDir(), nil, Chain{
		fetchFunc(func(context.Context, model.EngineKind, Entry, string) error { return ErrNoSource }),
	}, nil)

	dir, err := s.Resolve(context.Background(), model.EngineFasterWhisper, "turbo")
	require.NoError(t, err)
	assert.DirExists(t, dir)
}

func TestRemove(t *testing.T) {
	s := New(t.TempDir(), nil, fetchFunc(func(_ context.Context, _ model.EngineKind, _ Entry, dir string) error {
		return writeWeights(dir)
	}), nil)
	_, err := s.Resolve(context.Background(), model.EngineFasterWhisper, "base")
	require.NoError(t, err)
	require.Equal(t, []string{"base"}, s.Cached(model.EngineFasterWhisper))

	require.NoError(t, s.Remove(model.EngineFasterWhisper, "base"))
	assert.Empty(t, s.Cached(model.EngineFasterWhisper))
	assert.Error(t, s.Remove(model.EngineFasterWhisper, "nope"))
}

func TestChainStopsAtFirstSource(t *testing.T) {
	var second atomic.Bool
	chain := Chain{
		fetchFunc(func(context.Context, model.EngineKind, Entry, string) error { return ErrNoSource }),
		fetchFunc(func(_ context.Context, _ model.EngineKind, _ Entry, dir string) error { return writeWeights(dir) }),
		fetchFunc(func(context.Context, model.EngineKind, Entry, string) error { second.Store(true); return nil }),
	}
	require.NoError(t, chain.Fetch(context.Background(), model.EngineWhisperX, Entry{Name: "base"}, t.TempDir()))
	assert.False(t, second.Load())

	err := Chain{}.Fetch(context.Background(), model.EngineWhisperX, Entry{Name: "base"}, t.TempDir())
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestLoadCatalogue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engines:
  faster_whisper:
    - name: my-finetune
      files:
        - name: model.bin
          url: https://example.com/model.bin
          sha256: abc
`), 0o644))

	c, err := LoadCatalogue(path)
	require.NoError(t, err)
	e, ok := c.Lookup(model.EngineFasterWhisper, "my-finetune")
	require.True(t, ok)
	require.Len(t, e.Files, 1)
	assert.Equal(t, "abc", e.Files[0].SHA256)
	assert.True(t, c.Has(model.EngineFasterWhisper, "large-v3"))
	assert.False(t, c.Has(model.EngineOpenAIWhisper, "my-finetune"))
	assert.False(t, c.Has(model.EngineOpenAIWhisper, "distil-large-v3"))

	require.NoError(t, os.WriteFile(path, []byte("engines:\n  kaldi:\n    - name: x\n"), 0o644))
	_, err = LoadCatalogue(path)
	assert.Error(t, err)
}
