package storage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemBackend() *memBackend {
	return &memBackend{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memBackend) EnsureBucket(context.Context) error { return nil }

func (m *memBackend) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *memBackend) Open(_ context.Context, key string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return &Object{
		Body:        io.NopCloser(bytes.NewReader(data)),
		ContentType: m.types[key],
		Size:        int64(len(data)),
	}, nil
}

func (m *memBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memBackend) Bucket() string { return "test" }

func TestPutMedia(t *testing.T) {
	ctx := context.Background()
	backend := newMemBackend()
	s := NewStorage(backend, "https://cdn.example/media-root/")

	key, url, err := s.PutMedia(ctx, "doc1", "Clip.MP4", strings.NewReader("video-bytes"), 11, "video/mp4")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "posts/doc1/"))
	assert.True(t, strings.HasSuffix(key, ".mp4"))
	assert.Equal(t, "https://cdn.example/media-root/"+key, url)
	assert.Equal(t, "video/mp4", backend.types[key])

	got, ok := s.KeyFromURL(url)
	require.True(t, ok)
	assert.Equal(t, key, got)

	obj, err := s.Open(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
	assert.Equal(t, "video/mp4", obj.ContentType)
	assert.Equal(t, int64(11), obj.Size)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Open(ctx, key)
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestKeyFromForeignURL(t *testing.T) {
	s := NewStorage(newMemBackend(), "/media")

	_, ok := s.KeyFromURL("https://elsewhere.example/a.png")
	assert.False(t, ok)
	_, ok = s.KeyFromURL("/media/")
	assert.False(t, ok)
}

func TestMediaKeyIsUnique(t *testing.T) {
	a := MediaKey("doc1", "a.png")
	b := MediaKey("doc1", "a.png")
	assert.NotEqual(t, a, b)
}
