// Package config loads engine settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/civisafe/hazardwatch/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaFeedTopic   string
	KafkaIntentTopic string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Notification session settings.
	NotifyRadiusKm   float64
	FallbackLocation domain.Coordinate

	// Routing collaborator settings.
	RoutingURL        string
	RoutingTimeout    time.Duration
	RoadPathCacheSize int

	// Catalog store (hazard + safe-zone reads for the HTTP API).
	PostgresDSN string

	// Optional Redis-backed seen store. Empty addr selects the in-memory store.
	RedisAddr    string
	RedisSeenTTL time.Duration
}

// Load reads configuration from the environment, applying defaults where
// unset. A local .env file is honored when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	flushInterval, err := envDuration("BATCH_FLUSH_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return nil, err
	}
	routingTimeout, err := envDuration("ROUTING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	redisSeenTTL, err := envDuration("REDIS_SEEN_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	batchSize, err := envInt("BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}
	cacheSize, err := envInt("ROAD_PATH_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	radius, err := envFloat("NOTIFY_RADIUS_KM", 5)
	if err != nil {
		return nil, err
	}
	fallbackLat, err := envFloat("FALLBACK_LAT", 17.5747)
	if err != nil {
		return nil, err
	}
	fallbackLng, err := envFloat("FALLBACK_LNG", 120.3869)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:     splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaFeedTopic:   envOrDefault("KAFKA_FEED_TOPIC", "hazard-feed"),
		KafkaIntentTopic: envOrDefault("KAFKA_INTENT_TOPIC", "notification-intents"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "hazard-engine"),
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		NotifyRadiusKm:   radius,
		FallbackLocation: domain.Coordinate{Lat: fallbackLat, Lng: fallbackLng},

		RoutingURL:        envOrDefault("ROUTING_URL", "https://router.project-osrm.org"),
		RoutingTimeout:    routingTimeout,
		RoadPathCacheSize: cacheSize,

		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisSeenTTL: redisSeenTTL,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaFeedTopic == "" {
		return nil, errors.New("KAFKA_FEED_TOPIC is required")
	}
	if cfg.KafkaIntentTopic == "" {
		return nil, errors.New("KAFKA_INTENT_TOPIC is required")
	}
	if cfg.NotifyRadiusKm <= 0 {
		return nil, errors.New("NOTIFY_RADIUS_KM must be positive")
	}
	if !cfg.FallbackLocation.Valid() {
		return nil, errors.New("FALLBACK_LAT/FALLBACK_LNG out of range")
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("BATCH_SIZE must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func splitBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
