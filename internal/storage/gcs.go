package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/bayni/apiserver/config"
	"google.golang.org/api/option"
)

// GCSBackend stores media in a Google Cloud Storage bucket.
type GCSBackend struct {
	client    *storage.Client
	bucket    string
	projectID string
}

// NewGCSBackend constructs a GCS client from config. Without a credentials
// file the SDK falls back to application default credentials.
func NewGCSBackend(ctx context.Context, cfg config.GCSConfig) (*GCSBackend, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("gcs bucket is required")
	}

	var opts []option.ClientOption
	if strings.TrimSpace(cfg.CredentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GCSBackend{client: client, bucket: cfg.Bucket, projectID: cfg.ProjectID}, nil
}

// EnsureBucket creates the bucket when it is missing, which needs a project ID.
func (g *GCSBackend) EnsureBucket(ctx context.Context) error {
	_, err := g.client.Bucket(g.bucket).Attrs(ctx)
	if err == nil || !errors.Is(err, storage.ErrBucketNotExist) {
		return err
	}
	if strings.TrimSpace(g.projectID) == "" {
		return errors.New("gcs project id is required to create bucket")
	}
	return g.client.Bucket(g.bucket).Create(ctx, g.projectID, nil)
}

// Put uploads media. The size is not needed since the writer streams.
func (g *GCSBackend) Put(ctx context.Context, key string, r io.Reader, _ int64, contentType string) error {
	writer := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	writer.ContentType = contentType
	writer.CacheControl = mediaCacheControl
	if _, err := io.Copy(writer, r); err != nil {
		_ = writer.Close()
		return err
	}
	return writer.Close()
}

func (g *GCSBackend) Open(ctx context.Context, key string) (*Object, error) {
	reader, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return &Object{Body: reader, ContentType: reader.Attrs.ContentType, Size: reader.Attrs.Size}, nil
}

func (g *GCSBackend) Delete(ctx context.Context, key string) error {
	err := g.client.Bucket(g.bucket).Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (g *GCSBackend) Bucket() string {
	return g.bucket
}
