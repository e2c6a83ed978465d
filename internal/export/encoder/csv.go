package encoder

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"admesh-export/internal/model"
)

// CSVEncoder writes the schema header followed by one line per row. Strings
// are always quoted with internal quotes doubled; numbers and booleans are
// written bare; nil becomes an empty field; times become ISO-8601 strings.
//
// This quoting contract is stricter than encoding/csv (which quotes only
// when required), so the lines are assembled by hand.
type CSVEncoder struct{}

// Encode writes the stream as CSV. Returns model.ErrNoData when the stream
// yields zero rows: a header-only file is never produced.
func (e *CSVEncoder) Encode(w io.Writer, stream *model.RowStream) (int64, error) {
	bw := bufio.NewWriter(w)
	names := stream.Schema.Names()

	var written int64
	for row := range stream.Rows {
		if written == 0 {
			if _, err := bw.WriteString(strings.Join(names, ",") + "\n"); err != nil {
				return 0, fmt.Errorf("write csv header: %w", err)
			}
		}
		fields := make([]string, len(row))
		for i, v := range row {
			fields[i] = csvField(v)
		}
		if _, err := bw.WriteString(strings.Join(fields, ",") + "\n"); err != nil {
			return written, fmt.Errorf("write csv row: %w", err)
		}
		written++
	}

	if written == 0 {
		return 0, model.ErrNoData
	}
	return written, bw.Flush()
}

func csvField(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return `"` + strings.ReplaceAll(val, `"`, `""`) + `"`
	case time.Time:
		return `"` + val.UTC().Format(time.RFC3339) + `"`
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}
