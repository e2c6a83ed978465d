// Package config loads runtime configuration from defaults overlaid with
// ADMESH_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ADMESH_"

// Config is the full runtime configuration of the export service.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Store      StoreConfig      `koanf:"store"`
	ClickHouse ClickHouseConfig `koanf:"clickhouse"`
	Export     ExportConfig     `koanf:"export"`
	S3         S3Config         `koanf:"s3"`
	GCS        GCSConfig        `koanf:"gcs"`
	BigQuery   BigQueryConfig   `koanf:"bigquery"`
	Sync       SyncConfig       `koanf:"sync"`
	Log        LogConfig        `koanf:"log"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type StoreConfig struct {
	Path string `koanf:"path"`
}

type ClickHouseConfig struct {
	Addr     string `koanf:"addr"`
	Database string `koanf:"database"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

type ExportConfig struct {
	// Dir is the export working directory, created on startup if missing.
	Dir string `koanf:"dir"`
	// BatchSize bounds row-source batches and therefore peak memory.
	BatchSize int `koanf:"batch_size"`
	// MaxRawRows caps the "all" data type raw dump.
	MaxRawRows int `koanf:"max_raw_rows"`
	// Workers bounds concurrently executing export jobs.
	Workers int `koanf:"workers"`
}

type S3Config struct {
	Enabled  bool   `koanf:"enabled"`
	Region   string `koanf:"region"`
	Endpoint string `koanf:"endpoint"`
}

type GCSConfig struct {
	Enabled bool `koanf:"enabled"`
}

type BigQueryConfig struct {
	Enabled   bool   `koanf:"enabled"`
	ProjectID string `koanf:"project_id"`
}

type SyncConfig struct {
	// TickInterval is how often the sync runner checks for due syncs.
	TickInterval time.Duration `koanf:"tick_interval"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			Path: "admesh.db",
		},
		ClickHouse: ClickHouseConfig{
			Addr:     "localhost:9000",
			Database: "analytics",
			Username: "default",
		},
		Export: ExportConfig{
			Dir:        "exports",
			BatchSize:  1000,
			MaxRawRows: 1_000_000,
			Workers:    4,
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Sync: SyncConfig{
			TickInterval: 5 * time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration: struct defaults first, environment
// variables on top. ADMESH_EXPORT_DIR=/data/exports sets export.dir, and so
// on, with underscores splitting the key path after the prefix.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.Replace(
			strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".", 1)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load config environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
