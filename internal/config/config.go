package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable, e.g. SUPPORTHUB_DATABASE_URL.
const EnvPrefix = "SUPPORTHUB"

// EnvVar returns the full environment variable name for a config key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + key
}

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	LogMode     string `envconfig:"LOG_MODE" default:"development"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	DatabaseURL   string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns    int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns    int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	MigrationsDir string `envconfig:"MIGRATIONS_DIR" default:"migrations"`

	// External vector indexing service. Empty disables the call and every
	// conversion records an indexing failure in the ticket log.
	IndexBaseURL string        `envconfig:"INDEX_BASE_URL"`
	IndexTimeout time.Duration `envconfig:"INDEX_TIMEOUT" default:"10s"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"supporthub-assets"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey          string        `envconfig:"OPENAI_API_KEY"`
	EmbeddingModel        string        `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingPollInterval time.Duration `envconfig:"EMBEDDING_POLL_INTERVAL" default:"10s"`

	// Optional: daily ticket sequence kept in Redis instead of Postgres.
	RedisAddr     string `envconfig:"REDIS_ADDR"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	SentryDSN string `envconfig:"SENTRY_DSN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}

func (c *Config) HasIndexing() bool {
	return c.IndexBaseURL != ""
}

// TracesSampleRate samples everything in development and 10% elsewhere.
func (c *Config) TracesSampleRate() float64 {
	if c.Environment == "development" {
		return 1.0
	}
	return 0.1
}
