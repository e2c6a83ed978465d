package encoder

import (
	"fmt"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"

	"admesh-export/internal/model"
)

// parquetFlushRows is how many rows are handed to the parquet writer per
// Write call. The writer buffers row groups internally; this only amortizes
// call overhead and keeps memory bounded.
const parquetFlushRows = 512

// ParquetEncoder writes rows against a schema built up front from the data
// type's column contract, never inferred from row zero. A value whose type
// does not match its declared column kind is a schema-violation failure.
type ParquetEncoder struct{}

func (e *ParquetEncoder) Encode(w io.Writer, stream *model.RowStream) (int64, error) {
	schema, err := parquetSchema(stream.Schema)
	if err != nil {
		return 0, err
	}
	pw := parquet.NewGenericWriter[map[string]any](w, schema)

	var written int64
	batch := make([]map[string]any, 0, parquetFlushRows)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := pw.Write(batch); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for row := range stream.Rows {
		record, err := parquetRecord(stream.Schema, row)
		if err != nil {
			return written, err
		}
		batch = append(batch, record)
		written++
		if len(batch) == parquetFlushRows {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}
	if err := pw.Close(); err != nil {
		return written, fmt.Errorf("finalize parquet file: %w", err)
	}
	return written, nil
}

// parquetSchema maps the column contract onto parquet nodes: string -> UTF8,
// int64 -> INT64, float64 -> DOUBLE, bool -> BOOLEAN, time -> TIMESTAMP
// (millis). All columns are optional so absent values stay representable.
func parquetSchema(schema model.Schema) (*parquet.Schema, error) {
	group := parquet.Group{}
	for _, col := range schema {
		var node parquet.Node
		switch col.Kind {
		case model.KindString:
			node = parquet.String()
		case model.KindInt64:
			node = parquet.Int(64)
		case model.KindFloat64:
			node = parquet.Leaf(parquet.DoubleType)
		case model.KindBool:
			node = parquet.Leaf(parquet.BooleanType)
		case model.KindTime:
			node = parquet.Timestamp(parquet.Millisecond)
		default:
			return nil, fmt.Errorf("column %s: unsupported kind", col.Name)
		}
		group[col.Name] = parquet.Optional(node)
	}
	return parquet.NewSchema("export", group), nil
}

func parquetRecord(schema model.Schema, row model.Row) (map[string]any, error) {
	record := make(map[string]any, len(schema))
	for i, col := range schema {
		if i >= len(row) || row[i] == nil {
			continue
		}
		v := row[i]
		switch col.Kind {
		case model.KindString:
			if _, ok := v.(string); !ok {
				return nil, schemaViolation(col, v)
			}
			record[col.Name] = v
		case model.KindInt64:
			if _, ok := v.(int64); !ok {
				return nil, schemaViolation(col, v)
			}
			record[col.Name] = v
		case model.KindFloat64:
			if _, ok := v.(float64); !ok {
				return nil, schemaViolation(col, v)
			}
			record[col.Name] = v
		case model.KindBool:
			if _, ok := v.(bool); !ok {
				return nil, schemaViolation(col, v)
			}
			record[col.Name] = v
		case model.KindTime:
			t, ok := v.(time.Time)
			if !ok {
				return nil, schemaViolation(col, v)
			}
			record[col.Name] = t.UTC().UnixMilli()
		}
	}
	return record, nil
}

func schemaViolation(col model.Column, v any) error {
	return fmt.Errorf("column %s: value of type %T violates declared schema", col.Name, v)
}
