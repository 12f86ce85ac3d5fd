package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime settings for the bayni server and CLI.
type Config struct {
	Env                  string         `mapstructure:"env"`
	ServerPort           int            `mapstructure:"server_port"`
	Log                  LogConfig      `mapstructure:"log"`
	KV                   KVConfig       `mapstructure:"kv"`
	Database             DatabaseConfig `mapstructure:"database"`
	Redis                RedisConfig    `mapstructure:"redis"`
	Storage              StorageConfig  `mapstructure:"storage"`
	MQ                   MQConfig       `mapstructure:"mq"`
	Auth                 AuthConfig     `mapstructure:"auth"`
	CORS                 CORSConfig     `mapstructure:"cors"`
	MigrateLegacyOnStart bool           `mapstructure:"migrate_legacy_on_start"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

// KVConfig selects the key-value backend: memory, redis or postgres.
type KVConfig struct {
	Backend string `mapstructure:"backend"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	UseSSL   bool   `mapstructure:"use_ssl"`
}

type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selects the object store used for post media.
// An empty Backend disables media uploads.
type StorageConfig struct {
	Backend       string      `mapstructure:"backend"`
	PublicBaseURL string      `mapstructure:"public_base_url"`
	Minio         MinioConfig `mapstructure:"minio"`
	GCS           GCSConfig   `mapstructure:"gcs"`
}

type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// MQConfig selects the broker used for domain events: rabbitmq, pubsub or
// local (in-process).
// An empty Backend disables event publishing.
type MQConfig struct {
	Backend  string         `mapstructure:"backend"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
}

// RabbitMQConfig routes events through a topic exchange. Each consumer
// group gets its own queue per channel, named "<channel>.<group>".
type RabbitMQConfig struct {
	URL             string `mapstructure:"url"`
	Exchange        string `mapstructure:"exchange"`
	ConsumerGroup   string `mapstructure:"consumer_group"`
	PrefetchCount   int    `mapstructure:"prefetch_count"`
	QueueDurable    bool   `mapstructure:"queue_durable"`
	QueueAutoDelete bool   `mapstructure:"queue_auto_delete"`
}

type PubSubConfig struct {
	ProjectID          string `mapstructure:"project_id"`
	CredentialsFile    string `mapstructure:"credentials_file"`
	SubscriptionSuffix string `mapstructure:"subscription_suffix"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoadConfig reads configuration from an optional config.yaml and the
// environment. Environment keys are the config keys upper-cased with dots
// replaced by underscores, e.g. DATABASE_HOST or KV_BACKEND.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "prod")
	v.SetDefault("server_port", 8080)
	v.SetDefault("migrate_legacy_on_start", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("kv.backend", "memory")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "bayni")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "bayni_db")
	v.SetDefault("database.use_ssl", false)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "bayni:")

	v.SetDefault("storage.backend", "")
	v.SetDefault("storage.public_base_url", "/media")
	v.SetDefault("storage.minio.endpoint", "")
	v.SetDefault("storage.minio.access_key", "")
	v.SetDefault("storage.minio.secret_key", "")
	v.SetDefault("storage.minio.bucket", "bayni-media")
	v.SetDefault("storage.minio.use_ssl", false)
	v.SetDefault("storage.gcs.bucket", "")
	v.SetDefault("storage.gcs.project_id", "")
	v.SetDefault("storage.gcs.credentials_file", "")

	v.SetDefault("mq.backend", "")
	v.SetDefault("mq.rabbitmq.url", "")
	v.SetDefault("mq.rabbitmq.exchange", "bayni.events")
	v.SetDefault("mq.rabbitmq.consumer_group", "notifier")
	v.SetDefault("mq.rabbitmq.prefetch_count", 10)
	v.SetDefault("mq.rabbitmq.queue_durable", true)
	v.SetDefault("mq.rabbitmq.queue_auto_delete", false)
	v.SetDefault("mq.pubsub.project_id", "")
	v.SetDefault("mq.pubsub.credentials_file", "")
	v.SetDefault("mq.pubsub.subscription_suffix", "-sub")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:*"})
}
