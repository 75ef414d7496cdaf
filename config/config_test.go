package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost:5432/tutorai?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "8000", cfg.Indexer.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.ChatModel)
	assert.Equal(t, 768, cfg.Gemini.EmbeddingDim)
	assert.Equal(t, 1000, cfg.Indexer.ChunkSize)
	assert.Equal(t, 200, cfg.Indexer.ChunkOverlap)
	assert.Equal(t, time.Minute, cfg.Indexer.EmbedInterval)
	assert.Equal(t, "development", cfg.App.Environment)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://db:5432/tutorai")
	t.Setenv("PORT", "9000")
	t.Setenv("INDEXER_PORT", "9001")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://app.example.com")
	t.Setenv("CHUNK_SIZE", "800")
	t.Setenv("EMBED_INTERVAL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "9001", cfg.Indexer.Port)
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 800, cfg.Indexer.ChunkSize)
	assert.Equal(t, 30*time.Second, cfg.Indexer.EmbedInterval)
}

func TestValidate(t *testing.T) {
	t.Run("missing DSN", func(t *testing.T) {
		t.Setenv("DB_DSN", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_DSN")
	})

	t.Run("jwt secret required in production", func(t *testing.T) {
		t.Setenv("DB_DSN", "postgres://db:5432/tutorai")
		t.Setenv("APP_ENV", "production")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET")
	})

	t.Run("overlap must stay under chunk size", func(t *testing.T) {
		t.Setenv("DB_DSN", "postgres://db:5432/tutorai")
		t.Setenv("CHUNK_SIZE", "100")
		t.Setenv("CHUNK_OVERLAP", "100")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CHUNK_OVERLAP")
	})

	t.Run("bad int falls back to default", func(t *testing.T) {
		t.Setenv("DB_DSN", "postgres://db:5432/tutorai")
		t.Setenv("EMBED_BATCH_SIZE", "lots")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 50, cfg.Indexer.BatchSize)
	})
}
