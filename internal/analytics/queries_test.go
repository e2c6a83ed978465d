package analytics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admesh-export/internal/model"
)

func TestBuildQueryWindow(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC)

	query, args := buildQuery(model.DataTypeImpressions, "pub-1", start, end, 100)
	require.NotEmpty(t, query)
	require.Len(t, args, 3)

	assert.Equal(t, "pub-1", args[0])
	assert.Equal(t, start, args[1])
	assert.Equal(t, end.Add(24*time.Hour), args[2], "end date is inclusive")
	assert.Contains(t, query, "timestamp >= ? AND timestamp < ?")
}

func TestBuildQueryColumnsMatchSchemas(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	for _, dataType := range []model.DataType{
		model.DataTypeImpressions,
		model.DataTypeRevenue,
		model.DataTypeFraudEvents,
		model.DataTypeTelemetry,
		model.DataTypeAll,
	} {
		t.Run(string(dataType), func(t *testing.T) {
			query, args := buildQuery(dataType, "pub-1", start, end, 100)
			require.NotEmpty(t, query)
			require.NotEmpty(t, args)

			for _, col := range dataType.Schema() {
				assert.Contains(t, query, col.Name, "query must select every schema column")
			}
		})
	}
}

func TestBuildQueryRawDumpIsCapped(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	query, args := buildQuery(model.DataTypeAll, "pub-1", start, start, 5000)
	assert.Contains(t, query, "LIMIT ?")
	require.Len(t, args, 4)
	assert.Equal(t, 5000, args[3])

	grouped, _ := buildQuery(model.DataTypeImpressions, "pub-1", start, start, 5000)
	assert.NotContains(t, grouped, "LIMIT", "aggregated queries are bounded by grouping")
}

func TestBuildQueryUnknownDataType(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	query, args := buildQuery(model.DataType("clicks"), "pub-1", start, start, 100)
	assert.Empty(t, query)
	assert.Nil(t, args)
}

func TestBuildQueryTenantScoping(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, dataType := range []model.DataType{
		model.DataTypeImpressions,
		model.DataTypeRevenue,
		model.DataTypeFraudEvents,
		model.DataTypeTelemetry,
		model.DataTypeAll,
	} {
		query, _ := buildQuery(dataType, "pub-1", start, start, 100)
		assert.True(t, strings.Contains(query, "publisher_id = ?"),
			"%s query must filter by tenant", dataType)
	}
}
