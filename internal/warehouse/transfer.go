package warehouse

import (
	"context"
	"time"

	"admesh-export/internal/model"
)

// EventCounter is the analytics capability the default transfer needs.
// Satisfied by *analytics.ClickHouseSource.
type EventCounter interface {
	CountEvents(ctx context.Context, publisherID string, since, until time.Time) (int64, error)
}

// AggregateTransfer is the default Transfer: it sizes the incremental window
// since the last run and hands the aggregate off to the warehouse-specific
// loader owned by the destination layer. The row count is what the sync
// record accumulates.
type AggregateTransfer struct {
	counter EventCounter
}

func NewAggregateTransfer(counter EventCounter) *AggregateTransfer {
	return &AggregateTransfer{counter: counter}
}

func (t *AggregateTransfer) Sync(ctx context.Context, sync *model.DataWarehouseSync, since, until time.Time) (int64, error) {
	return t.counter.CountEvents(ctx, sync.PublisherID, since, until)
}
