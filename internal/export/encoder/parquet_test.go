package encoder

import (
	"bytes"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admesh-export/internal/model"
)

func TestParquetEncoder(t *testing.T) {
	schema := model.Schema{
		{Name: "app_id", Kind: model.KindString},
		{Name: "impressions", Kind: model.KindInt64},
		{Name: "fill_rate", Kind: model.KindFloat64},
		{Name: "success", Kind: model.KindBool},
		{Name: "timestamp", Kind: model.KindTime},
	}

	t.Run("round trip", func(t *testing.T) {
		ts := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
		stream := testStream(schema,
			model.Row{"app-1", int64(42), 0.95, true, ts},
			model.Row{"app-2", int64(7), 0.5, false, ts.Add(time.Hour)},
		)

		var buf bytes.Buffer
		rows, err := (&ParquetEncoder{}).Encode(&buf, stream)
		require.NoError(t, err)
		assert.Equal(t, int64(2), rows)

		type record struct {
			AppID       *string  `parquet:"app_id,optional"`
			Impressions *int64   `parquet:"impressions,optional"`
			FillRate    *float64 `parquet:"fill_rate,optional"`
			Success     *bool    `parquet:"success,optional"`
			Timestamp   *int64   `parquet:"timestamp,optional,timestamp(millisecond)"`
		}
		records, err := parquet.Read[record](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		require.NoError(t, err)
		require.Len(t, records, 2)

		require.NotNil(t, records[0].AppID)
		assert.Equal(t, "app-1", *records[0].AppID)
		require.NotNil(t, records[0].Impressions)
		assert.Equal(t, int64(42), *records[0].Impressions)
		require.NotNil(t, records[0].Timestamp)
		assert.Equal(t, ts.UnixMilli(), *records[0].Timestamp)
		require.NotNil(t, records[1].Success)
		assert.False(t, *records[1].Success)
	})

	t.Run("nil values stay absent", func(t *testing.T) {
		stream := testStream(schema, model.Row{"app-1", nil, nil, nil, nil})

		var buf bytes.Buffer
		rows, err := (&ParquetEncoder{}).Encode(&buf, stream)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rows)
	})

	t.Run("type mismatch is a schema violation", func(t *testing.T) {
		stream := testStream(schema, model.Row{"app-1", "not-a-number", 0.5, true, time.Now()})

		var buf bytes.Buffer
		_, err := (&ParquetEncoder{}).Encode(&buf, stream)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "impressions")
		assert.Contains(t, err.Error(), "violates declared schema")
	})

	t.Run("empty stream still produces a valid file", func(t *testing.T) {
		var buf bytes.Buffer
		rows, err := (&ParquetEncoder{}).Encode(&buf, testStream(schema))
		require.NoError(t, err)
		assert.Zero(t, rows)
		assert.NotZero(t, buf.Len(), "footer and schema are always written")
	})
}
