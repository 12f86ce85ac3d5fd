package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/bayni/apiserver/internal/kv"
	"github.com/bayni/apiserver/internal/storage"
	"github.com/bayni/apiserver/internal/store"
	"github.com/bayni/apiserver/types"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var _ EventPublisher = (*MockEventPublisher)(nil)

// MockEventPublisher is a mock implementation of EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishJSON(ctx context.Context, channel string, v any) (string, error) {
	args := m.Called(ctx, channel, v)
	return args.String(0), args.Error(1)
}

var _ MediaStore = (*fakeMediaStore)(nil)

// fakeMediaStore is a MediaStore whose behaviour is set per test.
type fakeMediaStore struct {
	PutMediaFunc func(ctx context.Context, doctorID, filename string, r io.Reader, size int64, contentType string) (string, string, error)
	OpenFunc     func(ctx context.Context, key string) (*storage.Object, error)

	PutCallCount    int32
	DeleteCallCount int32
	deleted         atomic.Value
}

func (f *fakeMediaStore) PutMedia(ctx context.Context, doctorID, filename string, r io.Reader, size int64, contentType string) (string, string, error) {
	atomic.AddInt32(&f.PutCallCount, 1)
	if f.PutMediaFunc != nil {
		return f.PutMediaFunc(ctx, doctorID, filename, r, size, contentType)
	}
	key := "posts/" + doctorID + "/object" + path.Ext(filename)
	return key, "/media/" + key, nil
}

func (f *fakeMediaStore) Open(ctx context.Context, key string) (*storage.Object, error) {
	if f.OpenFunc != nil {
		return f.OpenFunc(ctx, key)
	}
	return &storage.Object{
		Body:        io.NopCloser(bytes.NewReader([]byte(key))),
		ContentType: "image/png",
		Size:        int64(len(key)),
	}, nil
}

func (f *fakeMediaStore) Delete(_ context.Context, key string) error {
	atomic.AddInt32(&f.DeleteCallCount, 1)
	f.deleted.Store(key)
	return nil
}

func (f *fakeMediaStore) KeyFromURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, "/media/")
	return key, ok && key != ""
}

func (f *fakeMediaStore) lastDeleted() string {
	key, _ := f.deleted.Load().(string)
	return key
}

var errBroker = errors.New("broker unavailable")

type fixture struct {
	kv            *kv.MemoryStore
	users         *store.UserDirectory
	feed          *store.ContentFeed
	consultations *store.ConsultationLog
	schedules     *store.ScheduleBook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := kv.NewMemoryStore()
	return &fixture{
		kv:            mem,
		users:         store.NewUserDirectory(mem, store.WithPasswordCost(bcrypt.MinCost)),
		feed:          store.NewContentFeed(mem),
		consultations: store.NewConsultationLog(mem),
		schedules:     store.NewScheduleBook(mem),
	}
}

func (f *fixture) register(t *testing.T, username string, userType types.UserType) types.User {
	t.Helper()
	user, err := f.users.Register(context.Background(), types.User{
		Username: username,
		Type:     userType,
		Field:    "Pediatrics",
		Avatar:   username + ".png",
	}, "pw")
	require.NoError(t, err)
	return user
}
