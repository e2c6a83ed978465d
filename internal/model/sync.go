package model

import "time"

// WarehouseType names the external warehouse a recurring sync targets.
type WarehouseType string

const (
	WarehouseBigQuery  WarehouseType = "bigquery"
	WarehouseRedshift  WarehouseType = "redshift"
	WarehouseSnowflake WarehouseType = "snowflake"
)

func (w WarehouseType) Valid() bool {
	switch w {
	case WarehouseBigQuery, WarehouseRedshift, WarehouseSnowflake:
		return true
	}
	return false
}

// SyncStatus is the warehouse sync record state. Unlike jobs, syncs have no
// terminal state: they cycle between active/error until explicitly paused.
// SyncRunning is a transient claim marker preventing two schedulers from
// executing the same sync concurrently.
type SyncStatus string

const (
	SyncActive  SyncStatus = "active"
	SyncPaused  SyncStatus = "paused"
	SyncError   SyncStatus = "error"
	SyncRunning SyncStatus = "running"
)

// DataWarehouseSync is a recurring configuration describing periodic transfer
// of aggregate data into an external warehouse.
type DataWarehouseSync struct {
	ID                string        `json:"id"`
	PublisherID       string        `json:"publisherId"`
	WarehouseType     WarehouseType `json:"warehouseType"`
	Status            SyncStatus    `json:"status"`
	SyncIntervalHours int           `json:"syncInterval"`
	LastSyncTime      time.Time     `json:"lastSyncTime"`
	NextSyncTime      time.Time     `json:"nextSyncTime"`
	RowsSynced        int64         `json:"rowsSynced"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// Interval returns the sync interval as a duration.
func (s *DataWarehouseSync) Interval() time.Duration {
	return time.Duration(s.SyncIntervalHours) * time.Hour
}
