package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "admesh.db", cfg.Store.Path)
	assert.Equal(t, "localhost:9000", cfg.ClickHouse.Addr)
	assert.Equal(t, "exports", cfg.Export.Dir)
	assert.Equal(t, 1000, cfg.Export.BatchSize)
	assert.Equal(t, 1_000_000, cfg.Export.MaxRawRows)
	assert.Equal(t, 4, cfg.Export.Workers)
	assert.Equal(t, 5*time.Minute, cfg.Sync.TickInterval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.S3.Enabled)
	assert.False(t, cfg.BigQuery.Enabled)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("ADMESH_SERVER_ADDR", ":9999")
	t.Setenv("ADMESH_EXPORT_DIR", "/data/exports")
	t.Setenv("ADMESH_EXPORT_BATCH_SIZE", "250")
	t.Setenv("ADMESH_CLICKHOUSE_ADDR", "ch.internal:9000")
	t.Setenv("ADMESH_S3_ENABLED", "true")
	t.Setenv("ADMESH_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "/data/exports", cfg.Export.Dir)
	assert.Equal(t, 250, cfg.Export.BatchSize)
	assert.Equal(t, "ch.internal:9000", cfg.ClickHouse.Addr)
	assert.True(t, cfg.S3.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}
