package encoder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"admesh-export/internal/model"
)

// JSONEncoder emits a single JSON array incrementally: open bracket, one
// streamed object per row, close bracket. Rows are never buffered, so the
// bounded-memory guarantee holds for JSON the same as for CSV and Parquet.
//
// With Lines set the encoder writes newline-delimited objects instead of an
// array. Warehouse load jobs expect NDJSON, not a single array document.
//
// Objects keep the schema's column order; nil values serialize as null.
type JSONEncoder struct {
	Lines bool
}

func (e *JSONEncoder) Encode(w io.Writer, stream *model.RowStream) (int64, error) {
	bw := bufio.NewWriter(w)
	if !e.Lines {
		if err := bw.WriteByte('['); err != nil {
			return 0, err
		}
	}

	var written int64
	for row := range stream.Rows {
		if written > 0 && !e.Lines {
			if err := bw.WriteByte(','); err != nil {
				return written, err
			}
		}
		if err := writeObject(bw, stream.Schema, row); err != nil {
			return written, fmt.Errorf("write json row: %w", err)
		}
		if e.Lines {
			if err := bw.WriteByte('\n'); err != nil {
				return written, err
			}
		}
		written++
	}

	if !e.Lines {
		if err := bw.WriteByte(']'); err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}

// writeObject assembles the object by hand so the field order follows the
// schema instead of Go's randomized map iteration.
func writeObject(bw *bufio.Writer, schema model.Schema, row model.Row) error {
	if err := bw.WriteByte('{'); err != nil {
		return err
	}
	for i, col := range schema {
		if i > 0 {
			if err := bw.WriteByte(','); err != nil {
				return err
			}
		}
		name, err := json.Marshal(col.Name)
		if err != nil {
			return err
		}
		var value []byte
		if i < len(row) {
			value, err = json.Marshal(row[i])
		} else {
			value = []byte("null")
		}
		if err != nil {
			return err
		}
		if _, err := bw.Write(name); err != nil {
			return err
		}
		if err := bw.WriteByte(':'); err != nil {
			return err
		}
		if _, err := bw.Write(value); err != nil {
			return err
		}
	}
	return bw.WriteByte('}')
}
