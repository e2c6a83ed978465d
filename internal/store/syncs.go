package store

import (
	"database/sql"
	"errors"
	"time"

	"admesh-export/internal/model"
)

// CreateSync persists a new warehouse sync record.
func (s *Store) CreateSync(sync *model.DataWarehouseSync) error {
	_, err := s.db.Exec(`
		INSERT INTO warehouse_syncs
			(id, publisher_id, warehouse_type, status, sync_interval_hours,
			 last_sync_time, next_sync_time, rows_synced, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sync.ID, sync.PublisherID, string(sync.WarehouseType), string(sync.Status),
		sync.SyncIntervalHours, sync.LastSyncTime, sync.NextSyncTime,
		sync.RowsSynced, sync.CreatedAt,
	)
	return err
}

// GetSync fetches one sync record. Returns model.ErrNotFound for unknown ids.
func (s *Store) GetSync(syncID string) (*model.DataWarehouseSync, error) {
	row := s.db.QueryRow(`
		SELECT id, publisher_id, warehouse_type, status, sync_interval_hours,
		       last_sync_time, next_sync_time, rows_synced, created_at
		FROM warehouse_syncs WHERE id = ?`, syncID)

	sync, err := scanSync(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return sync, err
}

// ClaimSync flips an idle sync record into the transient running state.
// Returns false when the record is paused or a run is already in flight,
// so concurrent schedulers cannot double-execute one sync id.
func (s *Store) ClaimSync(syncID string) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE warehouse_syncs SET status = ?
		WHERE id = ? AND status IN (?, ?)`,
		string(model.SyncRunning), syncID,
		string(model.SyncActive), string(model.SyncError))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// FinishSyncRun releases the claim, advances the sync clock and accumulates
// the rows moved by the run.
func (s *Store) FinishSyncRun(syncID string, lastSync, nextSync time.Time, rowsDelta int64, status model.SyncStatus) error {
	_, err := s.db.Exec(`
		UPDATE warehouse_syncs
		SET status = ?, last_sync_time = ?, next_sync_time = ?,
		    rows_synced = rows_synced + ?
		WHERE id = ?`,
		string(status), lastSync, nextSync, rowsDelta, syncID)
	return err
}

// ReleaseStaleClaims moves running syncs whose scheduled time is older than
// cutoff back to error, making them claimable again. A claim leaks when the
// process dies between ClaimSync and FinishSyncRun.
func (s *Store) ReleaseStaleClaims(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`
		UPDATE warehouse_syncs SET status = ?
		WHERE status = ? AND next_sync_time <= ?`,
		string(model.SyncError), string(model.SyncRunning), cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListDueSyncs returns syncs whose next run time has passed and which are not
// paused or already claimed.
func (s *Store) ListDueSyncs(now time.Time) ([]*model.DataWarehouseSync, error) {
	rows, err := s.db.Query(`
		SELECT id, publisher_id, warehouse_type, status, sync_interval_hours,
		       last_sync_time, next_sync_time, rows_synced, created_at
		FROM warehouse_syncs
		WHERE status IN (?, ?) AND next_sync_time <= ?
		ORDER BY next_sync_time`,
		string(model.SyncActive), string(model.SyncError), now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var syncs []*model.DataWarehouseSync
	for rows.Next() {
		sync, err := scanSync(rows)
		if err != nil {
			return nil, err
		}
		syncs = append(syncs, sync)
	}
	return syncs, rows.Err()
}

func scanSync(r rowScanner) (*model.DataWarehouseSync, error) {
	var sync model.DataWarehouseSync
	err := r.Scan(
		&sync.ID, &sync.PublisherID, &sync.WarehouseType, &sync.Status,
		&sync.SyncIntervalHours, &sync.LastSyncTime, &sync.NextSyncTime,
		&sync.RowsSynced, &sync.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sync, nil
}
