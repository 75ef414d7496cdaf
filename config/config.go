package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Gemini   GeminiConfig
	Indexer  IndexerConfig
	App      AppConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

type DatabaseConfig struct {
	DSN      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	SessionTTL time.Duration
	BcryptCost int
}

type GeminiConfig struct {
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	EmbeddingDim   int
}

type IndexerConfig struct {
	Port          string // indexer's own listen port
	BaseURL       string // API side: where the indexer service listens
	UploadDir     string // shared between API (writes) and indexer (reads)
	ChunkSize     int
	ChunkOverlap  int
	BatchSize     int
	MaxRetries    int
	EmbedInterval time.Duration
	TopK          int
}

type AppConfig struct {
	Environment string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			CORSOrigins: getEnvAsSlice("CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			TokenTTL:   getEnvAsDuration("TOKEN_TTL", 24*time.Hour),
			SessionTTL: getEnvAsDuration("SESSION_TTL", 7*24*time.Hour),
			BcryptCost: getEnvAsInt("BCRYPT_COST", 10),
		},
		Gemini: GeminiConfig{
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			ChatModel:      getEnv("GEMINI_CHAT_MODEL", "gemini-2.0-flash"),
			EmbeddingModel: getEnv("GEMINI_EMBEDDING_MODEL", "gemini-embedding-001"),
			EmbeddingDim:   getEnvAsInt("GEMINI_EMBEDDING_DIM", 768),
		},
		Indexer: IndexerConfig{
			Port:          getEnv("INDEXER_PORT", "8000"),
			BaseURL:       getEnv("INDEXER_URL", "http://localhost:8000"),
			UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
			ChunkSize:     getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap:  getEnvAsInt("CHUNK_OVERLAP", 200),
			BatchSize:     getEnvAsInt("EMBED_BATCH_SIZE", 50),
			MaxRetries:    getEnvAsInt("EMBED_MAX_RETRIES", 3),
			EmbedInterval: getEnvAsDuration("EMBED_INTERVAL", time.Minute),
			TopK:          getEnvAsInt("RETRIEVE_TOP_K", 5),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	if c.Auth.JWTSecret == "" && c.App.Environment == "production" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	if c.Indexer.ChunkOverlap >= c.Indexer.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be smaller than CHUNK_SIZE")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range splitAndTrim(valueStr, ",") {
		if part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

func splitAndTrim(s, sep string) []string {
	parts := make([]string, 0, 4)
	for _, p := range strings.Split(s, sep) {
		parts = append(parts, strings.TrimSpace(p))
	}
	return parts
}
