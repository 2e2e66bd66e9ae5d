package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	LockDriverLocal = "local"
	LockDriverRedis = "redis"
)

type Config struct {
	AppName                       string `env:"APP_NAME" env-default:"clover-api"`
	Version                       string `env:"APP_VERSION" env-default:"dev"`
	Port                          int    `env:"PORT" env-default:"3004"`
	MetricsPort                   int    `env:"METRICS_PORT" env-default:"0"`
	LogLevel                      string `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool   `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int    `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"30"`
	HttpServerReadTimeoutSeconds  int    `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int    `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"60"`
	ShutdownTimeoutSeconds        int    `env:"SHUTDOWN_TIMEOUT_SECONDS" env-default:"15"`
	StartupMaxAttempts            int    `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	StorageDriver string `env:"STORAGE_DRIVER" env-default:"postgres"`

	// PostgreSQL
	DatabaseHost                string        `env:"DB_HOST" env-default:"localhost"`
	DatabasePort                int           `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName            string        `env:"DB_USER" env-default:"postgres"`
	DatabasePassword            string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                string        `env:"DB_NAME" env-default:"clover"`
	DatabaseSSLMode             string        `env:"DB_SSL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns        int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns        int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime     time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"5m"`
	DatabaseMigrationFolderPath string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrateOnStart      bool          `env:"DB_MIGRATE_ON_START" env-default:"true"`

	// Locking
	LockDriver    string        `env:"LOCK_DRIVER" env-default:"local"`
	LockTTL       time.Duration `env:"LOCK_TTL" env-default:"30s"`
	LockTimeout   time.Duration `env:"LOCK_TIMEOUT" env-default:"10s"`
	RedisHost     string        `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string        `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int           `env:"REDIS_DB" env-default:"0"`

	// Kafka Producer settings
	KafkaEnabled      bool          `env:"KAFKA_ENABLED" env-default:"false"`
	KafkaBrokers      []string      `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaTopic        string        `env:"KAFKA_TOPIC" env-default:"clover.resolution-events"`
	KafkaBatchSize    int           `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout time.Duration `env:"KAFKA_BATCH_TIMEOUT" env-default:"100ms"`
	KafkaRequiredAcks int           `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression  string        `env:"KAFKA_COMPRESSION" env-default:"snappy"`

	// Graph Database (Memgraph)
	GraphEnabled    bool   `env:"GRAPH_ENABLED" env-default:"false"`
	GraphDBHost     string `env:"GRAPH_DB_HOST" env-default:"localhost"`
	GraphDBPort     int    `env:"GRAPH_DB_PORT" env-default:"7687"`
	GraphDBUser     string `env:"GRAPH_DB_USER" env-default:""`
	GraphDBPassword string `env:"GRAPH_DB_PASSWORD" env-default:""`

	// Tracing
	TracingEnabled  bool   `env:"TRACING_ENABLED" env-default:"false"`
	TracingEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4318"`
	TracingProtocol string `env:"OTEL_EXPORTER_OTLP_PROTOCOL" env-default:"http"`
	TracingInsecure bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"true"`

	// Resolution
	MatchThresholdsPath        string `env:"MATCH_THRESHOLDS_PATH" env-default:""`
	ScanMaxClusters            int    `env:"SCAN_MAX_CLUSTERS" env-default:"50"`
	ScanMaxTargeted            int    `env:"SCAN_MAX_TARGETED" env-default:"5"`
	SuggestionBulkLimit        int    `env:"SUGGESTION_BULK_LIMIT" env-default:"200"`
	MergeAbortOnPartialFailure bool   `env:"MERGE_ABORT_ON_PARTIAL_FAILURE" env-default:"false"`
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	switch c.LockDriver {
	case LockDriverLocal, LockDriverRedis:
	default:
		errs = append(errs, fmt.Errorf("unknown LOCK_DRIVER %q", c.LockDriver))
	}

	if c.TracingEnabled && c.TracingProtocol != "grpc" && c.TracingProtocol != "http" {
		errs = append(errs, fmt.Errorf("unknown OTEL_EXPORTER_OTLP_PROTOCOL %q", c.TracingProtocol))
	}
	if c.Port <= 0 {
		errs = append(errs, errors.New("PORT must be positive"))
	}
	if c.KafkaEnabled && len(nonEmpty(c.KafkaBrokers)) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is set"))
	}
	if c.KafkaEnabled && c.KafkaTopic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is set"))
	}
	if c.GraphEnabled && c.GraphDBHost == "" {
		errs = append(errs, errors.New("GRAPH_DB_HOST is required when GRAPH_ENABLED is set"))
	}
	if c.LockDriver == LockDriverRedis && c.LockTTL <= 0 {
		errs = append(errs, errors.New("LOCK_TTL must be positive"))
	}
	if c.ScanMaxClusters <= 0 || c.ScanMaxTargeted <= 0 {
		errs = append(errs, errors.New("SCAN_MAX_CLUSTERS and SCAN_MAX_TARGETED must be positive"))
	}
	if c.SuggestionBulkLimit <= 0 {
		errs = append(errs, errors.New("SUGGESTION_BULK_LIMIT must be positive"))
	}

	return errors.Join(errs...)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
