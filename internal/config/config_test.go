package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"tickerspark/archive/internal/config"
)

func TestLoadConfig(t *testing.T) {
	// Set env var directly to test envconfig logic
	os.Setenv("DB_HOST", "test-host")
	defer os.Unsetenv("DB_HOST")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "test-host", cfg.DBHost)
}

func TestLoadConfig_FromEnvFile(t *testing.T) {
	// Create a temp .env file
	content := []byte("DB_HOST=loaded-from-file")
	err := os.WriteFile(".env", content, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(".env")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, "loaded-from-file", cfg.DBHost)
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, 45, cfg.QueueBatchSize)
	assert.Equal(t, 300, cfg.QueueVisibilitySeconds)
	assert.Equal(t, 500, cfg.MinChunkSize)
	assert.Equal(t, 2000, cfg.MaxChunkSize)
	assert.Equal(t, "master", cfg.ContentfulEnvironment)
}

func TestLoadConfig_QueueOverrides(t *testing.T) {
	os.Setenv("QUEUE_BATCH_SIZE", "5")
	os.Setenv("QUEUE_VISIBILITY_SECONDS", "60")
	defer os.Unsetenv("QUEUE_BATCH_SIZE")
	defer os.Unsetenv("QUEUE_VISIBILITY_SECONDS")

	cfg, err := config.Load()
	assert.NoError(t, err)
	assert.Equal(t, 5, cfg.QueueBatchSize)
	assert.Equal(t, 60, cfg.QueueVisibilitySeconds)
}
