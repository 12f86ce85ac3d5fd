package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bayni/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		KV:   config.KVConfig{Backend: "memory"},
		Auth: config.AuthConfig{JWTSecret: "secret"},
	}
}

func TestNewRequiresJWTSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = " "

	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestOpenStoreRejectsUnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.KV.Backend = "etcd"

	_, err := OpenStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestServerRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.MQ.Backend = "local"
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	for _, tc := range []struct {
		path string
		want int
	}{
		{"/healthz", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/session", http.StatusNotFound},
		{"/doctors", http.StatusOK},
		{"/posts", http.StatusUnauthorized},
		{"/consultations", http.StatusUnauthorized},
	} {
		t.Run(tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestLocalBrokerRunsNotifierInProcess(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := testConfig()
	srv, err := New(context.Background(), cfg, logger)
	require.NoError(t, err)
	assert.Nil(t, srv.notifierDone)
	require.NoError(t, srv.Shutdown(context.Background()))

	cfg.MQ.Backend = "local"
	srv, err = New(context.Background(), cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, srv.notifierDone)

	require.NoError(t, srv.Shutdown(context.Background()))
	select {
	case <-srv.notifierDone:
	default:
		t.Fatal("notifier still running after shutdown")
	}
}
