package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"admesh-export/internal/model"
)

// CreateJob persists a new export job. The caller sets ID, status and
// timestamps; the record is written exactly as given.
func (s *Store) CreateJob(job *model.ExportJob) error {
	configJSON, err := json.Marshal(job.Config)
	if err != nil {
		return fmt.Errorf("marshal job config: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO export_jobs
			(id, publisher_id, data_type, format, destination, status,
			 start_date, end_date, rows_exported, file_size, location, error,
			 config, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.PublisherID, string(job.DataType), string(job.Format),
		string(job.Destination), string(job.Status),
		job.StartDate, job.EndDate, job.RowsExported, job.FileSize,
		job.Location, job.Error, string(configJSON), job.CreatedAt, job.CompletedAt,
	)
	return err
}

// GetJob fetches one job by id. Returns model.ErrNotFound for unknown ids.
func (s *Store) GetJob(jobID string) (*model.ExportJob, error) {
	row := s.db.QueryRow(`
		SELECT id, publisher_id, data_type, format, destination, status,
		       start_date, end_date, rows_exported, file_size, location, error,
		       config, created_at, completed_at
		FROM export_jobs WHERE id = ?`, jobID)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return job, err
}

// ListJobs returns jobs for one publisher, newest first.
func (s *Store) ListJobs(publisherID string, limit int) ([]*model.ExportJob, error) {
	rows, err := s.db.Query(`
		SELECT id, publisher_id, data_type, format, destination, status,
		       start_date, end_date, rows_exported, file_size, location, error,
		       config, created_at, completed_at
		FROM export_jobs
		WHERE publisher_id = ?
		ORDER BY created_at DESC
		LIMIT ?`, publisherID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*model.ExportJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkJobRunning transitions pending -> running. A WHERE guard keeps the
// state machine monotonic even if two executors race on the same id.
func (s *Store) MarkJobRunning(jobID string) error {
	return s.transition(jobID, `
		UPDATE export_jobs SET status = ?
		WHERE id = ? AND status = ?`,
		string(model.JobRunning), jobID, string(model.JobPending))
}

// MarkJobCompleted transitions running -> completed and records the result
// counters and artifact location.
func (s *Store) MarkJobCompleted(jobID string, rowsExported, fileSize int64, location string) error {
	now := time.Now().UTC()
	return s.transition(jobID, `
		UPDATE export_jobs
		SET status = ?, rows_exported = ?, file_size = ?, location = ?, completed_at = ?
		WHERE id = ? AND status = ?`,
		string(model.JobCompleted), rowsExported, fileSize, location, now,
		jobID, string(model.JobRunning))
}

// MarkJobFailed moves a non-terminal job to failed with the captured error.
func (s *Store) MarkJobFailed(jobID, message string) error {
	now := time.Now().UTC()
	return s.transition(jobID, `
		UPDATE export_jobs
		SET status = ?, error = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		string(model.JobFailed), message, now,
		jobID, string(model.JobPending), string(model.JobRunning))
}

func (s *Store) transition(jobID, query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("job %s: no matching state for transition", jobID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (*model.ExportJob, error) {
	var (
		job         model.ExportJob
		configJSON  string
		completedAt sql.NullTime
	)
	err := r.Scan(
		&job.ID, &job.PublisherID, &job.DataType, &job.Format, &job.Destination,
		&job.Status, &job.StartDate, &job.EndDate, &job.RowsExported,
		&job.FileSize, &job.Location, &job.Error, &configJSON,
		&job.CreatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(configJSON), &job.Config); err != nil {
		return nil, fmt.Errorf("unmarshal job config: %w", err)
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return &job, nil
}
