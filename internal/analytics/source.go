// Package analytics reads aggregate rows out of the ClickHouse analytical
// store. It is the only package that knows the store's schema; everything
// downstream consumes model.RowStream.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog"

	"admesh-export/internal/model"
)

// RowSource yields a tenant- and date-scoped aggregation result as a finite,
// single-pass stream. Implementations must bound memory to batch size, not
// result size.
type RowSource interface {
	Fetch(ctx context.Context, dataType model.DataType, publisherID string, startDate, endDate time.Time) (*model.RowStream, error)
}

// Options configures the ClickHouse connection and streaming behavior.
type Options struct {
	Addr     string
	Database string
	Username string
	Password string

	// BatchSize bounds the rows channel; the generator consumes and writes
	// before the source is unblocked to scan further.
	BatchSize int

	// MaxRawRows caps the "all" raw dump.
	MaxRawRows int
}

// ClickHouseSource is the production RowSource over the analytics cluster.
type ClickHouseSource struct {
	conn       driver.Conn
	batchSize  int
	maxRawRows int
	logger     zerolog.Logger
}

// NewClickHouseSource connects to ClickHouse and verifies the connection.
func NewClickHouseSource(opts Options, logger zerolog.Logger) (*ClickHouseSource, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	if opts.MaxRawRows <= 0 {
		opts.MaxRawRows = 1_000_000
	}

	logger.Info().Str("addr", opts.Addr).Str("database", opts.Database).
		Msg("connected to clickhouse")

	return &ClickHouseSource{
		conn:       conn,
		batchSize:  opts.BatchSize,
		maxRawRows: opts.MaxRawRows,
		logger:     logger,
	}, nil
}

// Close closes the ClickHouse connection.
func (s *ClickHouseSource) Close() error {
	return s.conn.Close()
}

// Fetch issues the aggregation query for dataType and streams the result.
// The returned stream is finite and not restartable; rows are scanned from
// the driver on demand so peak memory stays O(batch size).
func (s *ClickHouseSource) Fetch(ctx context.Context, dataType model.DataType, publisherID string, startDate, endDate time.Time) (*model.RowStream, error) {
	schema := dataType.Schema()
	if schema == nil {
		return nil, model.NewValidationError("dataType", fmt.Sprintf("unknown data type %q", dataType))
	}

	query, args := buildQuery(dataType, publisherID, startDate, endDate, s.maxRawRows)

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s for publisher %s: %w", dataType, publisherID, err)
	}

	out := make(chan model.Row, s.batchSize)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(out)
		defer rows.Close()

		count := int64(0)
		for rows.Next() {
			row, err := scanRow(rows, schema)
			if err != nil {
				errc <- fmt.Errorf("scan %s row: %w", dataType, err)
				return
			}
			select {
			case out <- row:
				count++
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		if err := rows.Err(); err != nil {
			errc <- fmt.Errorf("iterate %s rows: %w", dataType, err)
			return
		}
		s.logger.Debug().Str("data_type", string(dataType)).
			Str("publisher_id", publisherID).Int64("rows", count).
			Msg("row stream exhausted")
	}()

	return model.NewRowStream(schema, out, errc), nil
}

// CountEvents counts impressions for a publisher in a half-open time window.
// The warehouse sync transfer uses it to size each incremental pass.
func (s *ClickHouseSource) CountEvents(ctx context.Context, publisherID string, since, until time.Time) (int64, error) {
	var count int64
	row := s.conn.QueryRow(ctx, `
		SELECT toInt64(count(*))
		FROM impressions
		WHERE publisher_id = ? AND timestamp >= ? AND timestamp < ?`,
		publisherID, since, until)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count events for publisher %s: %w", publisherID, err)
	}
	return count, nil
}

// scanRow scans the current driver row into a value slice aligned with the
// schema. Pointers are typed from the column kind so driver type mismatches
// surface as scan errors instead of silent coercions.
func scanRow(rows driver.Rows, schema model.Schema) (model.Row, error) {
	ptrs := make([]any, len(schema))
	for i, col := range schema {
		switch col.Kind {
		case model.KindString:
			ptrs[i] = new(string)
		case model.KindInt64:
			ptrs[i] = new(int64)
		case model.KindFloat64:
			ptrs[i] = new(float64)
		case model.KindBool:
			ptrs[i] = new(bool)
		case model.KindTime:
			ptrs[i] = new(time.Time)
		}
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	row := make(model.Row, len(schema))
	for i, col := range schema {
		switch col.Kind {
		case model.KindString:
			row[i] = *(ptrs[i].(*string))
		case model.KindInt64:
			row[i] = *(ptrs[i].(*int64))
		case model.KindFloat64:
			row[i] = *(ptrs[i].(*float64))
		case model.KindBool:
			row[i] = *(ptrs[i].(*bool))
		case model.KindTime:
			row[i] = *(ptrs[i].(*time.Time))
		}
	}
	return row, nil
}
