package model

import "time"

// DataType selects which aggregation query and row schema an export uses.
type DataType string

const (
	DataTypeImpressions DataType = "impressions"
	DataTypeRevenue     DataType = "revenue"
	DataTypeFraudEvents DataType = "fraud_events"
	DataTypeTelemetry   DataType = "telemetry"
	DataTypeAll         DataType = "all"
)

func (d DataType) Valid() bool {
	switch d {
	case DataTypeImpressions, DataTypeRevenue, DataTypeFraudEvents, DataTypeTelemetry, DataTypeAll:
		return true
	}
	return false
}

// Format is the output serialization format of an export.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

func (f Format) Valid() bool {
	switch f {
	case FormatCSV, FormatJSON, FormatParquet:
		return true
	}
	return false
}

// Destination names where the generated artifact is delivered.
type Destination string

const (
	DestinationLocal    Destination = "local"
	DestinationS3       Destination = "object-storage-s3"
	DestinationGCS      Destination = "object-storage-gcs"
	DestinationBigQuery Destination = "warehouse-bigquery"
)

func (d Destination) Valid() bool {
	switch d {
	case DestinationLocal, DestinationS3, DestinationGCS, DestinationBigQuery:
		return true
	}
	return false
}

// JobStatus is the export job state machine. Transitions are monotonic:
// pending -> running -> completed|failed, never backwards.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// ExportConfig mirrors the `config` object of the create-export request.
// Bucket/Path apply to object-storage destinations, Dataset/Table to
// warehouse loads.
type ExportConfig struct {
	Format      Format      `json:"format"`
	Compression bool        `json:"compression"`
	Destination Destination `json:"destination"`
	Bucket      string      `json:"bucket,omitempty"`
	Path        string      `json:"path,omitempty"`
	Dataset     string      `json:"dataset,omitempty"`
	Table       string      `json:"table,omitempty"`
}

// ExportJob is a one-time, asynchronous request to materialize an analytical
// result set as a file and optionally deliver it to a remote destination.
// The persisted record is the single source of truth for job state; nothing
// holds job state in memory across requests.
type ExportJob struct {
	ID           string       `json:"id"`
	PublisherID  string       `json:"publisherId"`
	DataType     DataType     `json:"dataType"`
	Format       Format       `json:"format"`
	Destination  Destination  `json:"destination"`
	Status       JobStatus    `json:"status"`
	StartDate    time.Time    `json:"startDate"`
	EndDate      time.Time    `json:"endDate"`
	RowsExported int64        `json:"rowsExported"`
	FileSize     int64        `json:"fileSize"`
	Location     string       `json:"location,omitempty"`
	Error        string       `json:"error,omitempty"`
	Config       ExportConfig `json:"config"`
	CreatedAt    time.Time    `json:"createdAt"`
	CompletedAt  *time.Time   `json:"completedAt,omitempty"`
}
