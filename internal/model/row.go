package model

// ColumnKind is the closed set of value types the pipeline moves between the
// analytical store and the format encoders.
type ColumnKind int

const (
	KindString ColumnKind = iota
	KindInt64
	KindFloat64
	KindBool
	KindTime
)

// Column is one field of a row schema.
type Column struct {
	Name string
	Kind ColumnKind
}

// Schema is the fixed, ordered column contract of a data type. Encoders
// derive headers and type mappings from it up front instead of inferring
// them from the accidental shape of the first row.
type Schema []Column

// Names returns the column names in schema order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Row is a value slice aligned with its schema's column order. A nil element
// is an absent optional value; encoders normalize it to the format's empty
// representation.
type Row []any

// RowStream is a finite, single-pass sequence of rows pulled from the
// analytical store in bounded batches. Rows must be drained before Err is
// consulted; the producer closes Rows first, then reports at most one error.
type RowStream struct {
	Schema Schema
	Rows   <-chan Row

	errc <-chan error
}

// NewRowStream wires a stream for a producer. The producer must close rows
// when exhausted and then close errc, sending at most one error before the
// close.
func NewRowStream(schema Schema, rows <-chan Row, errc <-chan error) *RowStream {
	return &RowStream{Schema: schema, Rows: rows, errc: errc}
}

// Err blocks until the producer has finished and returns its error, if any.
// Valid only after Rows has been drained.
func (s *RowStream) Err() error {
	return <-s.errc
}

// Schema returns the fixed column contract for a data type.
func (d DataType) Schema() Schema {
	switch d {
	case DataTypeImpressions:
		return Schema{
			{Name: "date", Kind: KindString},
			{Name: "app_id", Kind: KindString},
			{Name: "adapter_id", Kind: KindString},
			{Name: "country", Kind: KindString},
			{Name: "impressions", Kind: KindInt64},
			{Name: "avg_latency_ms", Kind: KindFloat64},
			{Name: "fill_rate", Kind: KindFloat64},
		}
	case DataTypeRevenue:
		return Schema{
			{Name: "date", Kind: KindString},
			{Name: "app_id", Kind: KindString},
			{Name: "adapter_id", Kind: KindString},
			{Name: "revenue", Kind: KindFloat64},
			{Name: "impressions", Kind: KindInt64},
			{Name: "ecpm", Kind: KindFloat64},
		}
	case DataTypeFraudEvents:
		return Schema{
			{Name: "date", Kind: KindString},
			{Name: "fraud_type", Kind: KindString},
			{Name: "risk_level", Kind: KindString},
			{Name: "events", Kind: KindInt64},
			{Name: "blocked_revenue", Kind: KindFloat64},
		}
	case DataTypeTelemetry:
		return Schema{
			{Name: "date", Kind: KindString},
			{Name: "app_id", Kind: KindString},
			{Name: "sdk_version", Kind: KindString},
			{Name: "sessions", Kind: KindInt64},
			{Name: "crashes", Kind: KindInt64},
			{Name: "anrs", Kind: KindInt64},
		}
	case DataTypeAll:
		return Schema{
			{Name: "event_id", Kind: KindString},
			{Name: "publisher_id", Kind: KindString},
			{Name: "app_id", Kind: KindString},
			{Name: "adapter_id", Kind: KindString},
			{Name: "ad_format", Kind: KindString},
			{Name: "country", Kind: KindString},
			{Name: "revenue", Kind: KindFloat64},
			{Name: "latency_ms", Kind: KindInt64},
			{Name: "success", Kind: KindBool},
			{Name: "timestamp", Kind: KindTime},
		}
	}
	return nil
}
