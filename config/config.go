// Package config builds the process configuration from the environment.
// The config object is constructed once at startup and passed into every
// component constructor; nothing reads the environment after that.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration.
type Config struct {
	// DatabaseURL is the Postgres connection string.
	DatabaseURL string

	// MeilisearchHost and MeilisearchAPIKey locate the search engine.
	MeilisearchHost   string
	MeilisearchAPIKey string

	// EmbeddingEndpoint is the remote embedding service URL. Empty means
	// the local deterministic provider is used exclusively.
	EmbeddingEndpoint string
	// EmbeddingDimensions is the expected vector length.
	EmbeddingDimensions int
	// EmbeddingTimeout bounds each embedding HTTP call.
	EmbeddingTimeout time.Duration

	// PollInterval is the scheduler tick interval, minimum 5s.
	PollInterval time.Duration
	// IngestConcurrency bounds per-tick parallel feed ingestion.
	IngestConcurrency int
	// EnrichWorkers is the enrichment pool size.
	EnrichWorkers int

	// FeedFetchTimeout bounds each feed fetch.
	FeedFetchTimeout time.Duration
	// ArticleFetchTimeout bounds each article page fetch.
	ArticleFetchTimeout time.Duration
	// UserAgent identifies outbound HTTP requests.
	UserAgent string

	// QueueBackend selects the article queue: "memory" or "redis".
	QueueBackend string
	// QueueCapacity bounds the in-memory queue.
	QueueCapacity int
	// RedisURL is used when QueueBackend is "redis".
	RedisURL string

	// ClusterThreshold is the base story-membership similarity threshold.
	ClusterThreshold float64
	// ClusterWindow restricts clustering candidates by publication age.
	ClusterWindow time.Duration

	// IndexBatchSize and IndexFlushInterval tune the bulk index queue.
	IndexBatchSize     int
	IndexFlushInterval time.Duration

	// StoryDebounce and StoryBatchThreshold tune the story queue.
	StoryDebounce       time.Duration
	StoryBatchThreshold int
}

// Load reads the configuration from environment variables, applying
// defaults for everything optional.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: getEnvString("DATABASE_URL", ""),

		MeilisearchHost:   getEnvString("MEILISEARCH_HOST", "http://localhost:7700"),
		MeilisearchAPIKey: getEnvString("MEILISEARCH_API_KEY", ""),

		EmbeddingEndpoint:   getEnvString("EMBEDDING_ENDPOINT", ""),
		EmbeddingDimensions: getEnvInt("EMBEDDING_DIMENSIONS", 768),
		EmbeddingTimeout:    getEnvDuration("EMBEDDING_TIMEOUT", 10*time.Second),

		PollInterval:      getEnvDuration("POLL_INTERVAL", time.Minute),
		IngestConcurrency: getEnvInt("INGEST_CONCURRENCY", 4),
		EnrichWorkers:     getEnvInt("ENRICH_WORKERS", 4),

		FeedFetchTimeout:    getEnvDuration("FEED_FETCH_TIMEOUT", 30*time.Second),
		ArticleFetchTimeout: getEnvDuration("ARTICLE_FETCH_TIMEOUT", 30*time.Second),
		UserAgent:           getEnvString("USER_AGENT", "storyhub/1.0"),

		QueueBackend:  getEnvString("QUEUE_BACKEND", "memory"),
		QueueCapacity: getEnvInt("QUEUE_CAPACITY", 1024),
		RedisURL:      getEnvString("REDIS_URL", "redis://localhost:6379"),

		ClusterThreshold: getEnvFloat("CLUSTER_THRESHOLD", 0.75),
		ClusterWindow:    getEnvDuration("CLUSTER_WINDOW", 72*time.Hour),

		IndexBatchSize:     getEnvInt("INDEX_BATCH_SIZE", 64),
		IndexFlushInterval: getEnvDuration("INDEX_FLUSH_INTERVAL", 10*time.Second),

		StoryDebounce:       getEnvDuration("STORY_DEBOUNCE", 5*time.Minute),
		StoryBatchThreshold: getEnvInt("STORY_BATCH_THRESHOLD", 50),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.PollInterval < 5*time.Second {
		return fmt.Errorf("POLL_INTERVAL must be at least 5s, got %s", c.PollInterval)
	}
	if c.IngestConcurrency <= 0 {
		return fmt.Errorf("INGEST_CONCURRENCY must be positive, got %d", c.IngestConcurrency)
	}
	if c.EnrichWorkers <= 0 {
		return fmt.Errorf("ENRICH_WORKERS must be positive, got %d", c.EnrichWorkers)
	}
	if c.QueueBackend != "memory" && c.QueueBackend != "redis" {
		return fmt.Errorf("QUEUE_BACKEND must be memory or redis, got %q", c.QueueBackend)
	}
	if c.ClusterThreshold <= 0 || c.ClusterThreshold >= 1 {
		return fmt.Errorf("CLUSTER_THRESHOLD must be in (0, 1), got %g", c.ClusterThreshold)
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
