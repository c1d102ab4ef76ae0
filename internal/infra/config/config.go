package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	StorageMode        string
	MongoURI           string
	MongoDB            string
	HistoryBackend     string
	ScyllaHosts        []string
	ScyllaKeyspace     string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	SMSTopic           string
	NotifyMode         string
	VenueFixtures      string
	CustomerFixtures   string
	LockWait           time.Duration
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:              getEnv("APP_ENV", "dev"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StorageMode:      strings.ToLower(getEnv("STORAGE_MODE", "memory")),
		MongoURI:         os.Getenv("MONGO_URI"),
		MongoDB:          getEnv("MONGO_DB", "tablebook"),
		HistoryBackend:   strings.ToLower(getEnv("HISTORY_BACKEND", "store")),
		ScyllaKeyspace:   getEnv("SCYLLA_KEYSPACE", "tablebook"),
		KafkaTopicPrefix: getEnv("KAFKA_TOPIC_PREFIX", ""),
		SMSTopic:         getEnv("SMS_TOPIC", "notifications.sms"),
		NotifyMode:       strings.ToLower(getEnv("NOTIFY_MODE", "log")),
		VenueFixtures:    getEnv("VENUE_FIXTURES", "data/venues.json"),
		CustomerFixtures: getEnv("CUSTOMER_FIXTURES", "data/customers.json"),
	}
	if hosts := getEnv("SCYLLA_HOSTS", ""); hosts != "" {
		cfg.ScyllaHosts = strings.Split(hosts, ",")
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	lockWait, err := parseDurationEnv("LOCK_WAIT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.LockWait = lockWait

	idempotencyTTL, err := parseDurationEnv("IDEMP_TTL", 168*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.IdempotencyTTL = idempotencyTTL

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}

	switch cfg.StorageMode {
	case "memory":
	case "mongo":
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required when STORAGE_MODE=mongo")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_MODE %q", cfg.StorageMode)
	}
	switch cfg.HistoryBackend {
	case "store":
	case "scylla":
		if len(cfg.ScyllaHosts) == 0 {
			return Config{}, fmt.Errorf("SCYLLA_HOSTS is required when HISTORY_BACKEND=scylla")
		}
	default:
		return Config{}, fmt.Errorf("unknown HISTORY_BACKEND %q", cfg.HistoryBackend)
	}
	switch cfg.NotifyMode {
	case "log":
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return Config{}, fmt.Errorf("KAFKA_BROKERS is required when NOTIFY_MODE=kafka")
		}
	default:
		return Config{}, fmt.Errorf("unknown NOTIFY_MODE %q", cfg.NotifyMode)
	}
	if cfg.StorageMode == "mongo" && len(cfg.KafkaBrokers) == 0 {
		return Config{}, fmt.Errorf("KAFKA_BROKERS is required when STORAGE_MODE=mongo")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}
