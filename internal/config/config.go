package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common contains store parameters shared by every service.
type Common struct {
	TableName string
}

// Loader holds configuration for the batch load job.
type Loader struct {
	Common
	Concurrency int
}

// Query holds configuration for the query CLI.
type Query struct {
	Common
	DefaultLimit int
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr     string
	DefaultLimit int
	MaxLimit     int
}

// Worker holds configuration for the Kafka -> store ingest worker.
type Worker struct {
	Common
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaConsumer  string
	DedupeCapacity int
	DedupeTTL      time.Duration
}

// LoadLoader builds a Loader config from environment variables.
func LoadLoader() (*Loader, error) {
	c := &Loader{
		Common:      loadCommon(),
		Concurrency: getInt("LOADER_CONCURRENCY", 4),
	}

	if c.Concurrency <= 0 {
		return nil, fmt.Errorf("LOADER_CONCURRENCY must be positive")
	}

	return c, nil
}

// LoadQuery builds a Query config from environment variables.
func LoadQuery() (*Query, error) {
	c := &Query{
		Common:       loadCommon(),
		DefaultLimit: getInt("QUERY_DEFAULT_LIMIT", 20),
	}

	if c.DefaultLimit <= 0 {
		return nil, fmt.Errorf("QUERY_DEFAULT_LIMIT must be positive")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	c := &API{
		Common:       loadCommon(),
		BindAddr:     getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		DefaultLimit: getInt("API_DEFAULT_LIMIT", 20),
		MaxLimit:     getInt("API_MAX_LIMIT", 100),
	}

	if c.DefaultLimit <= 0 {
		return nil, fmt.Errorf("API_DEFAULT_LIMIT must be positive")
	}
	if c.MaxLimit <= 0 {
		return nil, fmt.Errorf("API_MAX_LIMIT must be positive")
	}
	if c.DefaultLimit > c.MaxLimit {
		return nil, fmt.Errorf("API_DEFAULT_LIMIT cannot exceed API_MAX_LIMIT")
	}

	return c, nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Common:         loadCommon(),
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "papers_raw"),
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "paper-worker"),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "24h"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}

	return c, nil
}

func loadCommon() Common {
	return Common{
		TableName: getEnv("DYNAMODB_TABLE", "arxiv-papers"),
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
