// Package encoder holds the per-format streaming serializers for export
// artifacts. Encoders consume a row stream exactly once and write as they
// go; none of them materializes the full result set.
package encoder

import (
	"fmt"
	"io"

	"admesh-export/internal/model"
)

// Encoder serializes a row stream to w and returns the number of rows
// written. The stream's fetch error, if any, is the caller's to check after
// Encode returns.
type Encoder interface {
	Encode(w io.Writer, stream *model.RowStream) (int64, error)
}

// New returns the encoder for a format.
func New(format model.Format) (Encoder, error) {
	switch format {
	case model.FormatCSV:
		return &CSVEncoder{}, nil
	case model.FormatJSON:
		return &JSONEncoder{}, nil
	case model.FormatParquet:
		return &ParquetEncoder{}, nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// Extension returns the artifact file extension for a format, including the
// gzip suffix when compression applies. Parquet is already compressed
// internally and never gets the gzip layer.
func Extension(format model.Format, compression bool) string {
	ext := "." + string(format)
	if compression && format != model.FormatParquet {
		ext += ".gz"
	}
	return ext
}
