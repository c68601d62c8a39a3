package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string

	MySQLDSN      string
	MigrationsDir string

	RedisAddr          string
	CatalogTTL         time.Duration
	CatalogSnapshotTTL time.Duration

	KafkaBrokers []string
	KafkaTopic   string

	EventQueueSize    int
	PublisherWorkers  int
	ReconcileInterval time.Duration
	OrphanMinAge      time.Duration
}

func Load() Config {
	return Config{
		HTTPAddr:           envString("HTTP_ADDR", ":8080"),
		GRPCAddr:           envString("GRPC_ADDR", ":50051"),
		MySQLDSN:           envString("MYSQL_DSN", "root:root@tcp(localhost:3306)/venuepos?parseTime=true"),
		MigrationsDir:      envString("MIGRATIONS_DIR", ""),
		RedisAddr:          envString("REDIS_ADDR", "localhost:6379"),
		CatalogTTL:         envDuration("CATALOG_TTL", 30*time.Second),
		CatalogSnapshotTTL: envDuration("CATALOG_SNAPSHOT_TTL", 60*time.Second),
		KafkaBrokers:       envList("KAFKA_BROKERS", nil),
		KafkaTopic:         envString("KAFKA_TOPIC", "pos-sales"),
		EventQueueSize:     envInt("EVENT_QUEUE_SIZE", 1024),
		PublisherWorkers:   envInt("PUBLISHER_WORKERS", 4),
		ReconcileInterval:  envDuration("RECONCILE_INTERVAL", time.Minute),
		OrphanMinAge:       envDuration("ORPHAN_MIN_AGE", time.Minute),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return def
}
