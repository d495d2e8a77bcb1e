package modelstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/model"
)

// HTTPFetcher downloads the files listed in a catalogue entry
type HTTPFetcher struct {
	Client   *http.Client
	Retries  int
	Backoff  time.Duration
	Progress Progress
	Logger   *zap.Logger
}

// NewHTTPFetcher creates a fetcher with sane defaults
func NewHTTPFetcher(logger *zap.Logger) *HTTPFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPFetcher{
		Client:  &http.Client{Timeout: 30 * time.Minute},
		Retries: 3,
		Backoff: 300 * time.Millisecond,
		Logger:  logger,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, engine model.EngineKind, entry Entry, dir string) error {
	if len(entry.Files) == 0 {
		return ErrNoSource
	}
	for _, file := range entry.Files {
		if err := f.fetchFile(ctx, file, filepath.Join(dir, file.Name)); err != nil {
			return errors.Wrapf(err, "download %s", file.Name)
		}
	}
	return nil
}

func (f *HTTPFetcher) fetchFile(ctx context.Context, file File, dest string) error {
	retries := f.Retries
	if retries <= 0 {
		retries = 1
	}
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if attempt > 1 {
			f.Logger.Warn("retrying download",
				zap.Int("attempt", attempt), zap.Int("max", retries), zap.String("url", file.URL), zap.Error(lastErr))
			select {
			case <-time.After(time.Duration(attempt) * f.Backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = f.downloadOnce(ctx, file, dest); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (f *HTTPFetcher) downloadOnce(ctx context.Context, file File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrap(err, "create file")
	}
	success := false
	defer func() {
		out.Close()
		if !success {
			os.Remove(dest)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.URL, nil)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", "whisper-asr-webservice/1")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Newf("unexpected status code: %d", resp.StatusCode)
	}

	hash := sha256.New()
	var body io.Reader = resp.Body
	if f.Progress != nil {
		body = f.Progress.Track(file.Name, resp.ContentLength, body)
	}
	if _, err := io.Copy(io.MultiWriter(out, hash), body); err != nil {
		return errors.Wrap(err, "read body")
	}

	if expected := strings.ToLower(strings.TrimSpace(file.SHA256)); expected != "" {
		if actual := hex.EncodeToString(hash.Sum(nil)); actual != expected {
			return errors.Newf("checksum mismatch: expected %s, got %s", expected, actual)
		}
	}
	if err := out.Sync(); err != nil {
		return errors.Wrap(err, "sync file")
	}
	success = true
	return nil
}
