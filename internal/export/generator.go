package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"

	"admesh-export/internal/export/encoder"
	"admesh-export/internal/model"
)

// Generator drives a row stream through the selected format encoder into a
// temp file under the export directory. It counts rows written; the caller
// reads the artifact size from disk.
type Generator struct {
	dir    string
	logger zerolog.Logger
}

// NewGenerator creates the export working directory if it is missing.
func NewGenerator(dir string, logger zerolog.Logger) (*Generator, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory %s: %w", dir, err)
	}
	return &Generator{dir: dir, logger: logger}, nil
}

// Generate streams the rows into a deterministic temp file named from the
// data type, publisher and a timestamp. On any failure the partial file is
// removed and the underlying error returned; a fetch failure from the stream
// takes precedence over the encoder's view of it.
func (g *Generator) Generate(ctx context.Context, job *model.ExportJob, stream *model.RowStream) (string, int64, error) {
	enc, err := encoder.New(job.Format)
	if err != nil {
		drain(stream)
		return "", 0, err
	}
	if job.Format == model.FormatJSON && job.Destination == model.DestinationBigQuery {
		// BigQuery load jobs ingest newline-delimited JSON, not an array.
		enc = &encoder.JSONEncoder{Lines: true}
	}

	ext := encoder.Extension(job.Format, job.Config.Compression)
	name := fmt.Sprintf("%s_%s_%d%s", job.DataType, job.PublisherID, time.Now().Unix(), ext)
	path := filepath.Join(g.dir, name)

	f, err := os.Create(path)
	if err != nil {
		drain(stream)
		return "", 0, fmt.Errorf("create export file: %w", err)
	}

	var w io.Writer = f
	var gz *gzip.Writer
	if job.Config.Compression && job.Format != model.FormatParquet {
		gz = gzip.NewWriter(f)
		w = gz
	}

	rows, encErr := enc.Encode(w, stream)

	if gz != nil {
		if err := gz.Close(); err != nil && encErr == nil {
			encErr = fmt.Errorf("flush gzip stream: %w", err)
		}
	}
	if err := f.Close(); err != nil && encErr == nil {
		encErr = fmt.Errorf("close export file: %w", err)
	}

	// The encoder may have bailed before exhausting the stream; drain so the
	// producer can finish and report its own error.
	drain(stream)
	if fetchErr := stream.Err(); fetchErr != nil {
		g.discard(path)
		return "", 0, fmt.Errorf("fetch rows: %w", fetchErr)
	}
	if encErr != nil {
		g.discard(path)
		return "", 0, encErr
	}

	g.logger.Debug().Str("job_id", job.ID).Str("path", path).Int64("rows", rows).
		Msg("export file generated")
	return path, rows, nil
}

func (g *Generator) discard(path string) {
	if err := os.Remove(path); err != nil {
		g.logger.Warn().Err(err).Str("path", path).Msg("could not remove partial export file")
	}
}

func drain(stream *model.RowStream) {
	for range stream.Rows {
	}
}
