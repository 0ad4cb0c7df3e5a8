// Package config loads process configuration from the environment.
//
// Configuration is read once at startup into an explicit Config value that is
// passed to each component. Every option has a documented default so the site
// runs out of the box with nothing but an API key.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime options. It is built once in main and treated as
// immutable for the process lifetime.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string

	// DatabaseDSN selects the backing store. Empty means SQLite at
	// data/resume.db; a postgres:// URL selects PostgreSQL; anything else is
	// treated as a SQLite file path.
	DatabaseDSN string

	// HuggingFaceAPIKey authenticates embedding and generation calls.
	HuggingFaceAPIKey string

	// EmbeddingModel is the Hugging Face model used for embeddings.
	EmbeddingModel string

	// GenerationModel is the Hugging Face model used for chat responses.
	GenerationModel string

	// MaxTokens bounds the length of generated responses.
	MaxTokens int

	// Temperature is the sampling temperature for generation.
	Temperature float64

	// MaxContextChunks is the number of retrieved chunks fed to the prompt.
	MaxContextChunks int

	// ChunkSize is the chunk budget in characters.
	ChunkSize int

	// ChunkOverlap is the number of trailing characters carried into the
	// next chunk.
	ChunkOverlap int

	// MaxRequestsPerMinute is the per-address chat rate limit.
	MaxRequestsPerMinute int

	// RateLimitingEnabled turns the chat rate limiter on or off.
	RateLimitingEnabled bool

	// RateLimitFailOpen allows requests through when the rate-limit storage
	// fails. Availability over strictness for a low-traffic personal site.
	RateLimitFailOpen bool

	// CacheTTL is how long cached embeddings stay valid.
	CacheTTL time.Duration

	// MaxRetries bounds retry attempts when the embedding API throttles.
	MaxRetries int

	// VectorDimension is the embedding dimension of the configured model.
	VectorDimension int

	// WkhtmltopdfPath is the wkhtmltopdf binary used for PDF export. Empty
	// means look it up on PATH.
	WkhtmltopdfPath string
}

// Load reads .env (if present) and the process environment into a Config.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] No .env file loaded: %v", err)
	}

	return Config{
		ListenAddr:           getEnv("LISTEN_ADDR", ":8080"),
		DatabaseDSN:          getEnv("DATABASE_DSN", ""),
		HuggingFaceAPIKey:    getEnv("HUGGINGFACE_API_KEY", ""),
		EmbeddingModel:       getEnv("RAG_EMBEDDING_MODEL", "sentence-transformers/all-MiniLM-L6-v2"),
		GenerationModel:      getEnv("RAG_LLM_MODEL", "google/flan-t5-base"),
		MaxTokens:            getEnvInt("RAG_MAX_TOKENS", 512),
		Temperature:          getEnvFloat("RAG_TEMPERATURE", 0.7),
		MaxContextChunks:     getEnvInt("RAG_MAX_CONTEXT_CHUNKS", 5),
		ChunkSize:            getEnvInt("CHUNK_SIZE", 500),
		ChunkOverlap:         getEnvInt("CHUNK_OVERLAP", 100),
		MaxRequestsPerMinute: getEnvInt("MAX_REQUESTS_PER_MINUTE", 10),
		RateLimitingEnabled:  getEnvBool("ENABLE_RATE_LIMITING", true),
		RateLimitFailOpen:    getEnvBool("RATE_LIMIT_FAIL_OPEN", true),
		CacheTTL:             time.Duration(getEnvInt("RAG_CACHE_TIME", 3600)) * time.Second,
		MaxRetries:           getEnvInt("RAG_MAX_RETRIES", 3),
		VectorDimension:      getEnvInt("VECTOR_DIMENSION", 384),
		WkhtmltopdfPath:      getEnv("WKHTMLTOPDF_PATH", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] Invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] Invalid %s=%q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] Invalid %s=%q, using %t", key, v, fallback)
		return fallback
	}
	return b
}
