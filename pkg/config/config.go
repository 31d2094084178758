package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Storage
	DBDriver    string // "postgres", "sqlite" or "memory"
	DatabaseURL string
	SQLitePath  string

	// Security
	JWTSecret       string
	JWTAccessExpiry time.Duration
	EncryptionKey   string

	// Gmail OAuth client
	GoogleClientID     string
	GoogleClientSecret string

	// AI providers
	AIProvider           string // summaries: "gemini", "ollama" or "auto"
	EmbeddingProvider    string // embeddings: "gemini" or "ollama"
	GeminiApiKey         string
	GeminiEmbeddingModel string
	OllamaBaseURL        string
	OllamaModel          string
	OllamaEmbedModel     string

	// Ingest / enrich tuning
	SyncPageSize     int
	SyncMaxPages     int
	EnrichMaxBatches int
	EnrichInterval   time.Duration
	SummaryWorkers   int

	// Search tuning
	FuzzyThreshold float64
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		DBDriver:             getEnv("DB_DRIVER", "postgres"),
		DatabaseURL:          getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=mailmirror port=5432 sslmode=disable"),
		SQLitePath:           getEnv("SQLITE_PATH", "mailmirror.db"),
		JWTSecret:            getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry:      getEnvDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		EncryptionKey:        getEnv("ENCRYPTION_KEY", ""),
		GoogleClientID:       getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnv("GOOGLE_CLIENT_SECRET", ""),
		AIProvider:           getEnv("AI_PROVIDER", "auto"),
		EmbeddingProvider:    getEnv("EMBEDDING_PROVIDER", "gemini"),
		GeminiApiKey:         getEnv("GEMINI_API_KEY", ""),
		GeminiEmbeddingModel: getEnv("GEMINI_EMBEDDING_MODEL", "text-embedding-004"),
		OllamaBaseURL:        getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:          getEnv("OLLAMA_MODEL", "llama3"),
		OllamaEmbedModel:     getEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
		SyncPageSize:         getEnvInt("SYNC_PAGE_SIZE", 100),
		SyncMaxPages:         getEnvInt("SYNC_MAX_PAGES", 10),
		EnrichMaxBatches:     getEnvInt("ENRICH_MAX_BATCHES", 50),
		EnrichInterval:       getEnvDuration("ENRICH_INTERVAL", 100*time.Millisecond),
		SummaryWorkers:       getEnvInt("SUMMARY_WORKERS", 3),
		FuzzyThreshold:       getEnvFloat("FUZZY_THRESHOLD", 0.1),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed >= 0 && parsed <= 1 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}
