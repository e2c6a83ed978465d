package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEnumValidation(t *testing.T) {
	assert.True(t, DataTypeImpressions.Valid())
	assert.True(t, DataTypeAll.Valid())
	assert.False(t, DataType("clicks").Valid())

	assert.True(t, FormatParquet.Valid())
	assert.False(t, Format("xlsx").Valid())

	assert.True(t, DestinationBigQuery.Valid())
	assert.False(t, Destination("ftp").Valid())

	assert.True(t, WarehouseSnowflake.Valid())
	assert.False(t, WarehouseType("mysql").Valid())
}

func TestDataTypeSchemas(t *testing.T) {
	for _, dataType := range []DataType{
		DataTypeImpressions, DataTypeRevenue, DataTypeFraudEvents,
		DataTypeTelemetry, DataTypeAll,
	} {
		schema := dataType.Schema()
		assert.NotEmpty(t, schema, "every data type carries a column contract: %s", dataType)

		seen := map[string]bool{}
		for _, col := range schema {
			assert.False(t, seen[col.Name], "%s: duplicate column %s", dataType, col.Name)
			seen[col.Name] = true
		}
	}

	assert.Nil(t, DataType("clicks").Schema())

	names := DataTypeImpressions.Schema().Names()
	assert.Equal(t, []string{"date", "app_id", "adapter_id", "country",
		"impressions", "avg_latency_ms", "fill_rate"}, names)
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("startDate", "must not be after endDate")
	assert.Equal(t, "invalid startDate: must not be after endDate", err.Error())
	assert.True(t, IsValidation(err))
	assert.True(t, IsValidation(fmt.Errorf("create job: %w", err)), "wrapped errors still match")
	assert.False(t, IsValidation(ErrNotFound))
}

func TestSyncInterval(t *testing.T) {
	sync := &DataWarehouseSync{SyncIntervalHours: 24}
	assert.Equal(t, 24*time.Hour, sync.Interval())
}
