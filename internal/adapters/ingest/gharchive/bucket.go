package gharchive

import (
	"bytes"
	"context"
	"io"
	"path"
	"time"

	perr "ghscan/internal/platform/errors"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BucketConfig has the parameters used to connect to an S3 compatible mirror.
type BucketConfig struct {
	Endpoint  string // host[:port] of the S3 provider
	Bucket    string // bucket holding the archive files
	Prefix    string // optional key prefix, e.g. "gharchive/"
	AccessKey string
	SecretKey string
	Insecure  bool // plain HTTP, for self hosted providers
}

// objectGetter is the part of the minio SDK we use; tests swap in a mock
type objectGetter interface {
	GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error)
}

// minioGetter adapts *minio.Client so GetObject returns an io.ReadCloser
type minioGetter struct{ ref *minio.Client }

func (g minioGetter) GetObject(ctx context.Context, bucket, key string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return g.ref.GetObject(ctx, bucket, key, opts)
}

// BucketSource reads hours from a bucket mirror with the archive's file names
type BucketSource struct {
	client objectGetter
	bucket string
	prefix string
}

// NewBucketSource connects to the provider described by cfg
func NewBucketSource(cfg BucketConfig) (*BucketSource, error) {
	if cfg.Bucket == "" {
		return nil, perr.Configf("gharchive: bucket name is required")
	}
	c, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: !cfg.Insecure,
	})
	if err != nil {
		return nil, perr.Wrap(err, perr.CodeConfig, "gharchive: bucket client")
	}
	return &BucketSource{client: minioGetter{ref: c}, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *BucketSource) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// get reads a whole object; missing keys report ok=false.
// The SDK defers errors to the first Read, hence the full read here.
func (s *BucketSource) get(ctx context.Context, key string) ([]byte, bool, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err == nil {
		var b []byte
		b, err = io.ReadAll(obj)
		_ = obj.Close()
		if err == nil {
			return b, true, nil
		}
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return nil, false, nil
	}
	return nil, false, err
}

// Open returns the .json.gz object of hour, or the plain .json one
func (s *BucketSource) Open(ctx context.Context, hour time.Time) (Body, error) {
	for _, cand := range []struct {
		name       string
		compressed bool
	}{{Key(hour), true}, {PlainKey(hour), false}} {
		k := s.key(cand.name)
		b, ok, err := s.get(ctx, k)
		if err != nil {
			return Body{}, err
		}
		if ok {
			return Body{Name: k, Compressed: cand.compressed, ReadCloser: io.NopCloser(bytes.NewReader(b))}, nil
		}
	}
	return Body{}, perr.NotFoundf("gharchive: no %s in bucket %s", s.key(Key(hour)), s.bucket)
}

// Fetch implements Source
func (s *BucketSource) Fetch(ctx context.Context, hour time.Time) ([]Record, error) {
	b, err := s.Open(ctx, hour)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.ReadCloser.Close() }()
	return ReadAll(b.ReadCloser, b.Compressed, b.Name)
}
