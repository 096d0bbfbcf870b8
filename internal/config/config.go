package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port     string
	NatsURL  string
	MongoURL string
	MongoDB  string
	MeiliURL string
	MeiliKey string

	// Collection tunables
	ListTimeout       time.Duration // per list-page request
	DetailTimeout     time.Duration // per detail request
	MaxRetries        int           // retries after the first attempt
	RequestDelay      time.Duration // pause between page requests to one source
	BatchDelay        time.Duration // pause between validator batches
	IncrementalPages  int           // page cap for incremental runs
	FullPagesCeiling  int           // safety cap for full runs
	SourceConcurrency int           // sources fetched in parallel per run

	// Validator tunables
	ValidateBatchSize int
	ProbeTimeout      time.Duration
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		NatsURL:  getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		MongoURL: getEnv("MONGO_URL", "mongodb://127.0.0.1:27017"),
		MongoDB:  getEnv("MONGO_DB", "vodhub"),
		MeiliURL: getEnv("MEILI_URL", "http://127.0.0.1:7700"),
		MeiliKey: getEnv("MEILI_KEY", "masterKey"),

		ListTimeout:       parseDuration(getEnv("LIST_TIMEOUT", "8s"), 8*time.Second),
		DetailTimeout:     parseDuration(getEnv("DETAIL_TIMEOUT", "5s"), 5*time.Second),
		MaxRetries:        parseInt(getEnv("MAX_RETRIES", "2"), 2),
		RequestDelay:      parseDuration(getEnv("REQUEST_DELAY", "100ms"), 100*time.Millisecond),
		BatchDelay:        parseDuration(getEnv("BATCH_DELAY", "300ms"), 300*time.Millisecond),
		IncrementalPages:  parseInt(getEnv("INCREMENTAL_PAGES", "20"), 20),
		FullPagesCeiling:  parseInt(getEnv("FULL_PAGES_CEILING", "500"), 500),
		SourceConcurrency: parseInt(getEnv("SOURCE_CONCURRENCY", "3"), 3),

		ValidateBatchSize: parseInt(getEnv("VALIDATE_BATCH_SIZE", "50"), 50),
		ProbeTimeout:      parseDuration(getEnv("PROBE_TIMEOUT", "5s"), 5*time.Second),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
