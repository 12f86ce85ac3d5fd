package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/bayni/apiserver/config"
	"github.com/bayni/apiserver/internal/ids"
)

// ErrObjectNotFound is returned by Open when the key does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// mediaCacheControl is stored with every upload. Media keys are never
// reused, so objects can be cached indefinitely.
const mediaCacheControl = "public, max-age=31536000, immutable"

// Object is an open stored object. The caller must close Body.
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// Storage keeps post media in an ObjectStorage backend and maps object keys
// to the URLs clients fetch them from.
type Storage struct {
	backend       ObjectStorage
	publicBaseURL string
}

// NewStorage constructs a Storage wrapper for the provided backend.
func NewStorage(backend ObjectStorage, publicBaseURL string) *Storage {
	return &Storage{
		backend:       backend,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// New builds the backend selected by cfg.Backend ("minio" or "gcs") and
// makes sure its bucket exists.
func New(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.Backend {
	case "minio":
		backend, err = NewMinioBackend(cfg.Minio)
	case "gcs":
		backend, err = NewGCSBackend(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return NewStorage(backend, cfg.PublicBaseURL), nil
}

// PutMedia uploads a post attachment for a doctor and returns its object key
// and public URL. The original file name only contributes its extension.
func (s *Storage) PutMedia(ctx context.Context, doctorID, filename string, r io.Reader, size int64, contentType string) (string, string, error) {
	key := MediaKey(doctorID, filename)
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", "", fmt.Errorf("put %s: %w", key, err)
	}
	return key, s.PublicURL(key), nil
}

// PublicURL returns the URL under which key is served.
func (s *Storage) PublicURL(key string) string {
	return s.publicBaseURL + "/" + key
}

// KeyFromURL reverses PublicURL. It reports false for URLs that do not
// point into this storage.
func (s *Storage) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, s.publicBaseURL+"/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Open returns the stored object under key, or ErrObjectNotFound.
func (s *Storage) Open(ctx context.Context, key string) (*Object, error) {
	return s.backend.Open(ctx, key)
}

// Delete removes an object. Deleting a missing object is not an error.
func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

// Bucket returns the configured bucket name.
func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

// MediaKey returns a fresh object key of the form posts/<doctorID>/<id><ext>.
func MediaKey(doctorID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return path.Join("posts", doctorID, ids.New()+ext)
}
