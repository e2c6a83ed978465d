package export

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"admesh-export/internal/analytics"
	"admesh-export/internal/destination"
	"admesh-export/internal/model"
)

// JobStore is the slice of the repository the manager needs. Satisfied by
// *store.Store.
type JobStore interface {
	CreateJob(job *model.ExportJob) error
	GetJob(jobID string) (*model.ExportJob, error)
	ListJobs(publisherID string, limit int) ([]*model.ExportJob, error)
	MarkJobRunning(jobID string) error
	MarkJobCompleted(jobID string, rowsExported, fileSize int64, location string) error
	MarkJobFailed(jobID, message string) error
}

// Resolver maps a destination enum to its upload adapter.
type Resolver interface {
	For(dest model.Destination) (destination.Uploader, error)
}

// DefaultListLimit bounds job listings when the caller does not pass one.
const DefaultListLimit = 50

// Manager owns the export job lifecycle: it validates input, persists the
// job, launches supervised background execution and reports results. All
// collaborators are injected; the manager holds no job state of its own.
type Manager struct {
	store  JobStore
	source analytics.RowSource
	gen    *Generator
	dests  Resolver
	logger zerolog.Logger

	sem chan struct{}
	wg  sync.WaitGroup
}

// NewManager wires a manager. maxConcurrent bounds how many exports run at
// once so a burst of jobs cannot saturate the analytical store.
func NewManager(store JobStore, source analytics.RowSource, gen *Generator, dests Resolver, maxConcurrent int, logger zerolog.Logger) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Manager{
		store:  store,
		source: source,
		gen:    gen,
		dests:  dests,
		logger: logger,
		sem:    make(chan struct{}, maxConcurrent),
	}
}

// CreateExportJob validates the request, persists a pending job and launches
// background execution. It returns the pending record immediately; callers
// observe progress by polling GetExportJob.
func (m *Manager) CreateExportJob(publisherID string, dataType model.DataType, startDate, endDate time.Time, cfg model.ExportConfig) (*model.ExportJob, error) {
	if publisherID == "" {
		return nil, model.NewValidationError("publisherId", "required")
	}
	if !dataType.Valid() {
		return nil, model.NewValidationError("dataType", fmt.Sprintf("unknown value %q", dataType))
	}
	if !cfg.Format.Valid() {
		return nil, model.NewValidationError("config.format", fmt.Sprintf("unknown value %q", cfg.Format))
	}
	if !cfg.Destination.Valid() {
		return nil, model.NewValidationError("config.destination", fmt.Sprintf("unknown value %q", cfg.Destination))
	}
	if startDate.After(endDate) {
		return nil, model.NewValidationError("startDate", "must not be after endDate")
	}
	switch cfg.Destination {
	case model.DestinationS3, model.DestinationGCS:
		if cfg.Bucket == "" {
			return nil, model.NewValidationError("config.bucket", "required for object storage destinations")
		}
	case model.DestinationBigQuery:
		if cfg.Dataset == "" || cfg.Table == "" {
			return nil, model.NewValidationError("config.dataset", "dataset and table required for warehouse loads")
		}
	}

	job := &model.ExportJob{
		ID:          uuid.New().String(),
		PublisherID: publisherID,
		DataType:    dataType,
		Format:      cfg.Format,
		Destination: cfg.Destination,
		Status:      model.JobPending,
		StartDate:   startDate,
		EndDate:     endDate,
		Config:      cfg,
		CreatedAt:   time.Now().UTC(),
	}

	if err := m.store.CreateJob(job); err != nil {
		return nil, fmt.Errorf("persist export job: %w", err)
	}

	m.wg.Add(1)
	go m.execute(job)

	return job, nil
}

// GetExportJob fetches a job by id; model.ErrNotFound for unknown ids.
func (m *Manager) GetExportJob(jobID string) (*model.ExportJob, error) {
	return m.store.GetJob(jobID)
}

// ListExportJobs returns the publisher's jobs, newest first.
func (m *Manager) ListExportJobs(publisherID string, limit int) ([]*model.ExportJob, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return m.store.ListJobs(publisherID, limit)
}

// LocalArtifact validates that a job's artifact is downloadable and returns
// its path. Only a completed job with a local destination qualifies.
func (m *Manager) LocalArtifact(jobID string) (string, error) {
	job, err := m.store.GetJob(jobID)
	if err != nil {
		return "", err
	}
	if job.Status != model.JobCompleted || job.Destination != model.DestinationLocal {
		return "", model.ErrNotCompleted
	}
	return job.Location, nil
}

// Wait blocks until all launched executions have finished. Used on shutdown
// and in tests; callers of CreateExportJob never wait on it per request.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// execute is the supervised background task. Every failure path, panics
// included, ends in MarkJobFailed: nothing else observes a background error,
// so the persisted record must.
func (m *Manager) execute(job *model.ExportJob) {
	defer m.wg.Done()

	m.sem <- struct{}{}
	defer func() { <-m.sem }()

	logger := m.logger.With().
		Str("job_id", job.ID).
		Str("publisher_id", job.PublisherID).
		Str("data_type", string(job.DataType)).
		Str("format", string(job.Format)).
		Str("destination", string(job.Destination)).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("export executor panicked")
			m.fail(job.ID, fmt.Sprintf("export panicked: %v", r), logger)
		}
	}()

	// Detached from the request context on purpose: the originating request
	// has already returned.
	ctx := context.Background()

	// fail is best effort here; the record must not stay pending forever.
	if err := m.store.MarkJobRunning(job.ID); err != nil {
		m.fail(job.ID, fmt.Sprintf("could not start export: %v", err), logger)
		return
	}
	logger.Info().Msg("export started")

	stream, err := m.source.Fetch(ctx, job.DataType, job.PublisherID, job.StartDate, job.EndDate)
	if err != nil {
		m.fail(job.ID, fmt.Sprintf("query failed: %v", err), logger)
		return
	}

	path, rows, err := m.gen.Generate(ctx, job, stream)
	if err != nil {
		m.fail(job.ID, fmt.Sprintf("file generation failed: %v", err), logger)
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		m.fail(job.ID, fmt.Sprintf("stat export file: %v", err), logger)
		return
	}
	size := info.Size()

	location := path
	if job.Destination != model.DestinationLocal {
		uploader, err := m.dests.For(job.Destination)
		if err != nil {
			m.removeTemp(path, logger)
			m.fail(job.ID, fmt.Sprintf("upload failed: %v", err), logger)
			return
		}
		remote, uploadErr := uploader.Upload(ctx, path, job.Config)
		// The temp file is removed whatever the upload outcome; repeated
		// failures must not accumulate orphans on disk.
		m.removeTemp(path, logger)
		if uploadErr != nil {
			m.fail(job.ID, fmt.Sprintf("upload failed: %v", uploadErr), logger)
			return
		}
		location = remote
	}

	if err := m.store.MarkJobCompleted(job.ID, rows, size, location); err != nil {
		logger.Error().Err(err).Msg("could not transition job to completed")
		return
	}
	logger.Info().Int64("rows", rows).Int64("bytes", size).Str("location", location).
		Msg("export completed")
}

// removeTemp deletes the local artifact after a remote upload attempt.
// Deletion failure is logged, never fatal: the job outcome stands.
func (m *Manager) removeTemp(path string, logger zerolog.Logger) {
	if err := os.Remove(path); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("could not remove local temp file")
	}
}

func (m *Manager) fail(jobID, message string, logger zerolog.Logger) {
	logger.Error().Str("reason", message).Msg("export failed")
	if err := m.store.MarkJobFailed(jobID, message); err != nil {
		logger.Error().Err(err).Msg("could not persist job failure")
	}
}
