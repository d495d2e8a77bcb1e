// Package modelstore is the on-disk model weight cache rooted at ASR_MODEL_PATH.
// Each model lives in <root>/<engine>/<name>/ and survives restarts.
package modelstore

import (
	"context"
	goerrors "errors"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/model"
)

// ErrNoSource means a fetcher has nothing to offer for a model
var ErrNoSource = errors.New("no source for model")

// Fetcher fills dir with the weights of one model
type Fetcher interface {
	Fetch(ctx context.Context, engine model.EngineKind, entry Entry, dir string) error
}

// Progress observes transfers; Track wraps the body being copied
type Progress interface {
	Track(file string, size int64, r io.Reader) io.Reader
}

// Store resolves model names to cache directories, fetching weights on first use
type Store struct {
	root      string
	catalogue *Catalogue
	fetcher   Fetcher
	logger    *zap.Logger
	group     singleflight.Group
}

// New creates a store. fetcher may be nil, in which case directories are created
// empty for the engine library to populate.
func New(root string, catalogue *Catalogue, fetcher Fetcher, logger *zap.Logger) *Store {
	if catalogue == nil {
		catalogue = DefaultCatalogue()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{root: root, catalogue: catalogue, fetcher: fetcher, logger: logger}
}

// Root returns the cache root
func (s *Store) Root() string { return s.root }

// Catalogue returns the known models
func (s *Store) Catalogue() *Catalogue { return s.catalogue }

// Dir returns where the weights for engine/name live
func (s *Store) Dir(engine model.EngineKind, name string) string {
	return filepath.Join(s.root, string(engine), name)
}

// Resolve returns the cache directory for a model, fetching it first when absent.
// Concurrent resolves of the same model share one fetch.
func (s *Store) Resolve(ctx context.Context, engine model.EngineKind, name string) (string, error) {
	entry, ok := s.catalogue.Lookup(engine, name)
	if !ok {
		return "", errors.Newf("unknown model %q for engine %s", name, engine)
	}
	dir := s.Dir(engine, name)
	if populated(dir) {
		return dir, nil
	}

	v, err, shared := s.group.Do(string(engine)+"/"+name, func() (interface{}, error) {
		if populated(dir) {
			return dir, nil
		}
		return dir, s.install(ctx, engine, entry, dir)
	})
	if shared {
		s.logger.Debug("joined pending fetch", zap.String("engine", string(engine)), zap.String("model", name))
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// install fetches into a temporary sibling directory and renames it into place
func (s *Store) install(ctx context.Context, engine model.EngineKind, entry Entry, dir string) error {
	if s.fetcher == nil {
		return errors.Wrap(os.MkdirAll(dir, 0o755), "create model directory")
	}

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return errors.Wrap(err, "create engine directory")
	}
	tmp, err := os.MkdirTemp(parent, "."+entry.Name+"-*")
	if err != nil {
		return errors.Wrap(err, "create staging directory")
	}
	defer os.RemoveAll(tmp)

	s.logger.Info("fetching model", zap.String("engine", string(engine)), zap.String("model", entry.Name))
	if err := s.fetcher.Fetch(ctx, engine, entry, tmp); err != nil {
		if goerrors.Is(err, ErrNoSource) {
			s.logger.Info("no prebuilt weights, engine will download them", zap.String("model", entry.Name))
			return errors.Wrap(os.MkdirAll(dir, 0o755), "create model directory")
		}
		return errors.Wrapf(err, "fetch %s/%s", engine, entry.Name)
	}

	// An empty directory left by an earlier engine-managed load is replaced
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "replace model directory")
	}
	if err := os.Rename(tmp, dir); err != nil {
		return errors.Wrap(err, "install model")
	}
	s.logger.Info("model cached", zap.String("dir", dir))
	return nil
}

// Cached returns the names with weights on disk for engine
func (s *Store) Cached(engine model.EngineKind) []string {
	entries, err := os.ReadDir(filepath.Join(s.root, string(engine)))
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && e.Name()[0] != '.' && populated(s.Dir(engine, e.Name())) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Remove deletes the cached weights of a model
func (s *Store) Remove(engine model.EngineKind, name string) error {
	if !s.catalogue.Has(engine, name) {
		return errors.Newf("unknown model %q for engine %s", name, engine)
	}
	return os.RemoveAll(s.Dir(engine, name))
}

func populated(dir string) bool {
	f, err := os.Open(dir)
	if err != nil {
		return false
	}
	defer f.Close()
	names, _ := f.Readdirnames(1)
	return len(names) > 0
}
