package modelstore

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"whisper-asr-webservice/internal/app/errors"
	"whisper-asr-webservice/internal/app/model"
)

// MinioConfig locates a bucket that mirrors <engine>/<name>/ weight directories
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type object struct {
	key  string
	size int64
}

// bucket is the part of an object store the fetcher needs
type bucket interface {
	list(ctx context.Context, prefix string) ([]object, error)
	open(ctx context.Context, key string) (io.ReadCloser, error)
}

type minioBucket struct {
	client *minio.Client
	name   string
}

func (b *minioBucket) list(ctx context.Context, prefix string) ([]object, error) {
	var objects []object
	for info := range b.client.ListObjects(ctx, b.name, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, info.Err
		}
		objects = append(objects, object{key: info.Key, size: info.Size})
	}
	return objects, nil
}

func (b *minioBucket) open(ctx context.Context, key string) (io.ReadCloser, error) {
	return b.client.GetObject(ctx, b.name, key, minio.GetObjectOptions{})
}

// MinioFetcher mirrors model directories from an S3-compatible bucket
type MinioFetcher struct {
	bucket   bucket
	Progress Progress
	logger   *zap.Logger
}

// NewMinioFetcher connects to the bucket described by cfg
func NewMinioFetcher(cfg MinioConfig, logger *zap.Logger) (*MinioFetcher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create MinIO client")
	}
	return newMinioFetcher(&minioBucket{client: client, name: cfg.Bucket}, logger), nil
}

func newMinioFetcher(b bucket, logger *zap.Logger) *MinioFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MinioFetcher{bucket: b, logger: logger}
}

func (f *MinioFetcher) Fetch(ctx context.Context, engine model.EngineKind, entry Entry, dir string) error {
	prefix := path.Join(string(engine), entry.Name) + "/"
	objects, err := f.bucket.list(ctx, prefix)
	if err != nil {
		return errors.Wrapf(err, "list %s", prefix)
	}
	if len(objects) == 0 {
		return ErrNoSource
	}

	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.key, prefix)
		if rel == "" || strings.HasSuffix(rel, "/") {
			continue
		}
		dest := filepath.Join(dir, filepath.FromSlash(rel))
		if !strings.HasPrefix(dest, filepath.Clean(dir)+string(os.PathSeparator)) {
			return errors.Newf("object key %q escapes the model directory", obj.key)
		}
		if err := f.copyObject(ctx, obj, dest); err != nil {
			return errors.Wrapf(err, "get %s", obj.key)
		}
	}
	f.logger.Info("mirrored model from bucket", zap.String("prefix", prefix), zap.Int("objects", len(objects)))
	return nil
}

func (f *MinioFetcher) copyObject(ctx context.Context, obj object, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	src, err := f.bucket.open(ctx, obj.key)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	var body io.Reader = src
	if f.Progress != nil {
		body = f.Progress.Track(path.Base(obj.key), obj.size, body)
	}
	if _, err := io.Copy(out, body); err != nil {
		return err
	}
	return out.Sync()
}

// Chain tries each fetcher in turn, moving on when one has no source
type Chain []Fetcher

func (c Chain) Fetch(ctx context.Context, engine model.EngineKind, entry Entry, dir string) error {
	for _, f := range c {
		err := f.Fetch(ctx, engine, entry, dir)
		if !errors.Is(err, ErrNoSource) {
			return err
		}
	}
	return ErrNoSource
}
