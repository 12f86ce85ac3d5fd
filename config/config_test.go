package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "memory", cfg.KV.Backend)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, "bayni:", cfg.Redis.KeyPrefix)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "", cfg.Storage.Backend)
	assert.Equal(t, "", cfg.MQ.Backend)
	assert.Equal(t, "bayni.events", cfg.MQ.RabbitMQ.Exchange)
	assert.Equal(t, "notifier", cfg.MQ.RabbitMQ.ConsumerGroup)
	assert.True(t, cfg.MigrateLegacyOnStart)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KV_BACKEND", "redis")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("AUTH_TOKEN_TTL", "2h")
	t.Setenv("STORAGE_MINIO_BUCKET", "media")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "redis", cfg.KV.Backend)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "media", cfg.Storage.Minio.Bucket)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
