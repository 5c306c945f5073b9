package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"archive"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"archive"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`

	// Source CMS (delivery API). Validated at backfill time, not at load:
	// the webhook and worker paths run without them.
	ContentfulSpaceID     string `envconfig:"CONTENTFUL_SPACE_ID"`
	ContentfulDeliveryKey string `envconfig:"CONTENTFUL_DELIVERY_API_KEY"`
	ContentfulEnvironment string `envconfig:"CONTENTFUL_ENVIRONMENT" default:"master"`

	DefaultOwnerID string `envconfig:"DEFAULT_OWNER_ID"`

	// Embedding job queue
	QueueBatchSize         int `envconfig:"QUEUE_BATCH_SIZE" default:"45"`
	QueueVisibilitySeconds int `envconfig:"QUEUE_VISIBILITY_SECONDS" default:"300"`

	// Segmenter bounds (characters)
	MinChunkSize int `envconfig:"MIN_CHUNK_SIZE" default:"500"`
	MaxChunkSize int `envconfig:"MAX_CHUNK_SIZE" default:"2000"`

	// Server
	ServerPort   int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`

	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root.
	// Ignore errors, as env vars might be set in the shell.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.MinChunkSize <= 0 || c.MaxChunkSize <= c.MinChunkSize {
		return fmt.Errorf("%w: chunk size bounds", ErrMissingRequired)
	}
	return nil
}
