// Package warehouse manages recurring synchronization of aggregate data into
// external warehouses. Sync records are independent of one-off export jobs
// and cycle indefinitely until paused.
package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"admesh-export/internal/model"
)

// SyncStore is the slice of the repository the scheduler needs. Satisfied by
// *store.Store.
type SyncStore interface {
	CreateSync(sync *model.DataWarehouseSync) error
	GetSync(syncID string) (*model.DataWarehouseSync, error)
	ClaimSync(syncID string) (bool, error)
	FinishSyncRun(syncID string, lastSync, nextSync time.Time, rowsDelta int64, status model.SyncStatus) error
	ReleaseStaleClaims(cutoff time.Time) (int64, error)
	ListDueSyncs(now time.Time) ([]*model.DataWarehouseSync, error)
}

// staleClaimAge is how far past its scheduled time a claimed sync may sit
// before the claim is considered leaked by a dead process and released.
const staleClaimAge = time.Hour

// Transfer performs the warehouse-specific data movement for one sync pass
// and reports how many rows moved. The production implementation is wired in
// main; tests substitute fakes.
type Transfer interface {
	Sync(ctx context.Context, sync *model.DataWarehouseSync, since, until time.Time) (int64, error)
}

// Scheduler owns warehouse sync records and executes sync passes.
type Scheduler struct {
	store    SyncStore
	transfer Transfer
	logger   zerolog.Logger
}

func NewScheduler(store SyncStore, transfer Transfer, logger zerolog.Logger) *Scheduler {
	return &Scheduler{store: store, transfer: transfer, logger: logger}
}

// ScheduleWarehouseSync creates an active sync record whose first run is due
// one interval from now.
func (s *Scheduler) ScheduleWarehouseSync(publisherID string, warehouseType model.WarehouseType, intervalHours int) (*model.DataWarehouseSync, error) {
	if publisherID == "" {
		return nil, model.NewValidationError("publisherId", "required")
	}
	if !warehouseType.Valid() {
		return nil, model.NewValidationError("warehouseType", fmt.Sprintf("unknown value %q", warehouseType))
	}
	if intervalHours <= 0 {
		return nil, model.NewValidationError("syncInterval", "must be a positive number of hours")
	}

	now := time.Now().UTC()
	sync := &model.DataWarehouseSync{
		ID:                uuid.New().String(),
		PublisherID:       publisherID,
		WarehouseType:     warehouseType,
		Status:            model.SyncActive,
		SyncIntervalHours: intervalHours,
		LastSyncTime:      now,
		NextSyncTime:      now.Add(time.Duration(intervalHours) * time.Hour),
		CreatedAt:         now,
	}
	if err := s.store.CreateSync(sync); err != nil {
		return nil, fmt.Errorf("persist warehouse sync: %w", err)
	}
	return sync, nil
}

// GetWarehouseSync fetches a sync record; model.ErrNotFound for unknown ids.
func (s *Scheduler) GetWarehouseSync(syncID string) (*model.DataWarehouseSync, error) {
	return s.store.GetSync(syncID)
}

// ExecuteWarehouseSync runs one sync pass. The claim guard rejects
// concurrent executions of the same id. Whatever the transfer outcome, the
// sync clock advances: a failed pass records status=error and retries from a
// clean window at the next scheduled time.
func (s *Scheduler) ExecuteWarehouseSync(ctx context.Context, syncID string) (*model.DataWarehouseSync, error) {
	sync, err := s.store.GetSync(syncID)
	if err != nil {
		return nil, err
	}
	if sync.Status == model.SyncPaused {
		return nil, model.NewValidationError("status", "sync is paused")
	}

	claimed, err := s.store.ClaimSync(syncID)
	if err != nil {
		return nil, fmt.Errorf("claim sync %s: %w", syncID, err)
	}
	if !claimed {
		return nil, model.ErrSyncBusy
	}

	logger := s.logger.With().
		Str("sync_id", sync.ID).
		Str("publisher_id", sync.PublisherID).
		Str("warehouse", string(sync.WarehouseType)).
		Logger()

	now := time.Now().UTC()
	rows, transferErr := s.transfer.Sync(ctx, sync, sync.LastSyncTime, now)

	next := now.Add(sync.Interval())
	status := model.SyncActive
	if transferErr != nil {
		status = model.SyncError
		rows = 0
		logger.Error().Err(transferErr).Msg("warehouse sync pass failed")
	} else {
		logger.Info().Int64("rows", rows).Time("next_sync", next).
			Msg("warehouse sync pass completed")
	}

	if err := s.store.FinishSyncRun(syncID, now, next, rows, status); err != nil {
		return nil, fmt.Errorf("finish sync run %s: %w", syncID, err)
	}
	if transferErr != nil {
		return nil, fmt.Errorf("sync transfer: %w", transferErr)
	}
	return s.store.GetSync(syncID)
}

// RunDue executes every sync whose next run time has passed. Errors are
// logged per sync; one failing record does not stop the pass. Claims leaked
// by a crashed run are released first so those records become due again.
func (s *Scheduler) RunDue(ctx context.Context) {
	now := time.Now().UTC()

	if n, err := s.store.ReleaseStaleClaims(now.Add(-staleClaimAge)); err != nil {
		s.logger.Error().Err(err).Msg("could not release stale sync claims")
	} else if n > 0 {
		s.logger.Warn().Int64("count", n).Msg("released stale sync claims")
	}

	due, err := s.store.ListDueSyncs(now)
	if err != nil {
		s.logger.Error().Err(err).Msg("could not list due syncs")
		return
	}
	for _, sync := range due {
		if _, err := s.ExecuteWarehouseSync(ctx, sync.ID); err != nil {
			s.logger.Error().Err(err).Str("sync_id", sync.ID).Msg("scheduled sync failed")
		}
	}
}

// Run ticks at the given interval and executes due syncs until the context
// is canceled. This is the cron-like trigger for deployments without an
// external scheduler.
func (s *Scheduler) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	s.logger.Info().Dur("tick", tick).Msg("warehouse sync runner started")
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("warehouse sync runner stopped")
			return
		case <-ticker.C:
			s.RunDue(ctx)
		}
	}
}
