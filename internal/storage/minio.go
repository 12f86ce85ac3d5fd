package storage

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/bayni/apiserver/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioBackend stores media in a MinIO or other S3-compatible bucket.
type MinioBackend struct {
	client *minio.Client
	bucket string
}

// NewMinioBackend constructs a MinIO client from config.
func NewMinioBackend(cfg config.MinioConfig) (*MinioBackend, error) {
	switch {
	case strings.TrimSpace(cfg.Endpoint) == "":
		return nil, errors.New("minio endpoint is required")
	case strings.TrimSpace(cfg.AccessKey) == "" || strings.TrimSpace(cfg.SecretKey) == "":
		return nil, errors.New("minio access key and secret key are required")
	case strings.TrimSpace(cfg.Bucket) == "":
		return nil, errors.New("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioBackend{client: client, bucket: cfg.Bucket}, nil
}

func (m *MinioBackend) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil || exists {
		return err
	}
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
}

// Put uploads media. A negative size streams the body in multipart chunks.
func (m *MinioBackend) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: mediaCacheControl,
	})
	return err
}

// Open stats the object first because GetObject only reports a missing key
// on the first read.
func (m *MinioBackend) Open(ctx context.Context, key string) (*Object, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, minioError(err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, minioError(err)
	}
	return &Object{Body: obj, ContentType: info.ContentType, Size: info.Size}, nil
}

func (m *MinioBackend) Delete(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

func (m *MinioBackend) Bucket() string {
	return m.bucket
}

func minioError(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrObjectNotFound
	}
	return err
}
