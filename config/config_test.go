package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "clover-api", cfg.AppName)
	assert.Equal(t, StorageDriverPostgres, cfg.StorageDriver)
	assert.Equal(t, LockDriverLocal, cfg.LockDriver)
	assert.Equal(t, 200, cfg.SuggestionBulkLimit)
	assert.Equal(t, 50, cfg.ScanMaxClusters)
	assert.Equal(t, "db/pg", cfg.DatabaseMigrationFolderPath)
	assert.False(t, cfg.MergeAbortOnPartialFailure)
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LOCK_DRIVER", "redis")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("SUGGESTION_BULK_LIMIT", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.Equal(t, LockDriverRedis, cfg.LockDriver)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 50, cfg.SuggestionBulkLimit)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:                8080,
			StorageDriver:       StorageDriverMemory,
			LockDriver:          LockDriverLocal,
			KafkaTopic:          "events",
			ScanMaxClusters:     50,
			ScanMaxTargeted:     5,
			SuggestionBulkLimit: 200,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown storage driver", mutate: func(c *Config) { c.StorageDriver = "mysql" }, wantErr: "STORAGE_DRIVER"},
		{name: "unknown lock driver", mutate: func(c *Config) { c.LockDriver = "etcd" }, wantErr: "LOCK_DRIVER"},
		{name: "kafka without brokers", mutate: func(c *Config) { c.KafkaEnabled = true; c.KafkaBrokers = []string{" "} }, wantErr: "KAFKA_BROKERS"},
		{name: "redis lock without ttl", mutate: func(c *Config) { c.LockDriver = LockDriverRedis }, wantErr: "LOCK_TTL"},
		{name: "zero bulk limit", mutate: func(c *Config) { c.SuggestionBulkLimit = 0 }, wantErr: "SUGGESTION_BULK_LIMIT"},
		{name: "zero scan limit", mutate: func(c *Config) { c.ScanMaxTargeted = 0 }, wantErr: "SCAN_MAX_TARGETED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_TracingProtocol(t *testing.T) {
	cfg := Config{
		Port:                8080,
		StorageDriver:       StorageDriverMemory,
		LockDriver:          LockDriverLocal,
		ScanMaxClusters:     1,
		ScanMaxTargeted:     1,
		SuggestionBulkLimit: 1,
		TracingEnabled:      true,
		TracingProtocol:     "grpc",
	}
	assert.NoError(t, cfg.Validate())

	cfg.TracingProtocol = "thrift"
	assert.ErrorContains(t, cfg.Validate(), "OTEL_EXPORTER_OTLP_PROTOCOL")
}
