package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"admesh-export/internal/model"
	"admesh-export/pkg/utils"
)

// ExportService is the export manager surface the handlers need.
type ExportService interface {
	CreateExportJob(publisherID string, dataType model.DataType, startDate, endDate time.Time, cfg model.ExportConfig) (*model.ExportJob, error)
	GetExportJob(jobID string) (*model.ExportJob, error)
	ListExportJobs(publisherID string, limit int) ([]*model.ExportJob, error)
	LocalArtifact(jobID string) (string, error)
}

// SyncService is the warehouse scheduler surface the handlers need.
type SyncService interface {
	ScheduleWarehouseSync(publisherID string, warehouseType model.WarehouseType, intervalHours int) (*model.DataWarehouseSync, error)
	GetWarehouseSync(syncID string) (*model.DataWarehouseSync, error)
	ExecuteWarehouseSync(ctx context.Context, syncID string) (*model.DataWarehouseSync, error)
}

// Handler carries the HTTP handlers for the export and sync APIs.
type Handler struct {
	exports ExportService
	syncs   SyncService
	logger  zerolog.Logger
}

func New(exports ExportService, syncs SyncService, logger zerolog.Logger) *Handler {
	return &Handler{exports: exports, syncs: syncs, logger: logger}
}

// publisherHeader carries the authenticated tenant id, set by the auth layer
// in front of this service.
const publisherHeader = "X-Publisher-ID"

type createExportRequest struct {
	DataType  string             `json:"dataType"`
	StartDate string             `json:"startDate"`
	EndDate   string             `json:"endDate"`
	Config    model.ExportConfig `json:"config"`
}

type scheduleSyncRequest struct {
	WarehouseType string `json:"warehouseType"`
	SyncInterval  int    `json:"syncInterval"`
}

// CreateExportJob creates a new export job
// @Summary Create an export job
// @Description Create an asynchronous export of aggregate analytics data for the calling publisher
// @Tags exports
// @Accept json
// @Produce json
// @Param X-Publisher-ID header string true "Publisher ID"
// @Param export body createExportRequest true "Export configuration"
// @Success 201 {object} model.ExportJob "Job created in pending state"
// @Failure 400 {object} map[string]string "Invalid date range or enum value"
// @Router /export/jobs [post]
func (h *Handler) CreateExportJob(w http.ResponseWriter, r *http.Request) {
	publisherID := r.Header.Get(publisherHeader)
	if publisherID == "" {
		writeError(w, http.StatusBadRequest, "missing "+publisherHeader+" header")
		return
	}

	var req createExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	startDate, err := utils.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "startDate must be YYYY-MM-DD")
		return
	}
	endDate, err := utils.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "endDate must be YYYY-MM-DD")
		return
	}

	job, err := h.exports.CreateExportJob(publisherID, model.DataType(req.DataType), startDate, endDate, req.Config)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// GetExportJob retrieves one export job
// @Summary Get export job
// @Tags exports
// @Produce json
// @Param X-Publisher-ID header string true "Publisher ID"
// @Param id path string true "Job ID"
// @Success 200 {object} model.ExportJob
// @Failure 403 {object} map[string]string "Job belongs to another publisher"
// @Failure 404 {object} map[string]string "Unknown job id"
// @Router /export/jobs/{id} [get]
func (h *Handler) GetExportJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// ListExportJobs lists the caller's export jobs
// @Summary List export jobs
// @Tags exports
// @Produce json
// @Param X-Publisher-ID header string true "Publisher ID"
// @Param limit query int false "Maximum jobs returned (default 50)"
// @Success 200 {array} model.ExportJob
// @Router /export/jobs [get]
func (h *Handler) ListExportJobs(w http.ResponseWriter, r *http.Request) {
	publisherID := r.Header.Get(publisherHeader)
	if publisherID == "" {
		writeError(w, http.StatusBadRequest, "missing "+publisherHeader+" header")
		return
	}

	limit := utils.QueryInt(r, "limit", 0)
	jobs, err := h.exports.ListExportJobs(publisherID, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*model.ExportJob{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// DownloadExport serves a completed local export artifact
// @Summary Download export artifact
// @Description Only valid for completed jobs with a local destination
// @Tags exports
// @Produce octet-stream
// @Param X-Publisher-ID header string true "Publisher ID"
// @Param id path string true "Job ID"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string "Export not completed or not local"
// @Failure 404 {object} map[string]string "Unknown job id"
// @Router /export/jobs/{id}/download [get]
func (h *Handler) DownloadExport(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownedJob(w, r)
	if !ok {
		return
	}

	path, err := h.exports.LocalArtifact(job.ID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", "attachment")
	http.ServeFile(w, r, path)
}

// ScheduleWarehouseSync creates a recurring warehouse sync
// @Summary Schedule a warehouse sync
// @Tags warehouse
// @Accept json
// @Produce json
// @Param X-Publisher-ID header string true "Publisher ID"
// @Param sync body scheduleSyncRequest true "Sync configuration"
// @Success 201 {object} model.DataWarehouseSync
// @Failure 400 {object} map[string]string "Unknown warehouse type or bad interval"
// @Router /warehouse/sync [post]
func (h *Handler) ScheduleWarehouseSync(w http.ResponseWriter, r *http.Request) {
	publisherID := r.Header.Get(publisherHeader)
	if publisherID == "" {
		writeError(w, http.StatusBadRequest, "missing "+publisherHeader+" header")
		return
	}

	var req scheduleSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	sync, err := h.syncs.ScheduleWarehouseSync(publisherID, model.WarehouseType(req.WarehouseType), req.SyncInterval)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sync)
}

// GetWarehouseSync retrieves one sync record
// @Summary Get warehouse sync
// @Tags warehouse
// @Produce json
// @Param X-Publisher-ID header string true "Publisher ID"
// @Param id path string true "Sync ID"
// @Success 200 {object} model.DataWarehouseSync
// @Failure 404 {object} map[string]string "Unknown sync id"
// @Router /warehouse/sync/{id} [get]
func (h *Handler) GetWarehouseSync(w http.ResponseWriter, r *http.Request) {
	sync, err := h.syncs.GetWarehouseSync(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sync)
}

// ExecuteWarehouseSync triggers one sync pass
// @Summary Execute warehouse sync
// @Description External-scheduler trigger for one synchronization pass
// @Tags warehouse
// @Produce json
// @Param X-Publisher-ID header string true "Publisher ID"
// @Param id path string true "Sync ID"
// @Success 200 {object} model.DataWarehouseSync
// @Failure 404 {object} map[string]string "Unknown sync id"
// @Failure 409 {object} map[string]string "A run is already in flight"
// @Router /warehouse/sync/{id}/execute [post]
func (h *Handler) ExecuteWarehouseSync(w http.ResponseWriter, r *http.Request) {
	sync, err := h.syncs.ExecuteWarehouseSync(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sync)
}

// Health reports service liveness
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ownedJob loads the job from the path id and enforces tenant ownership.
func (h *Handler) ownedJob(w http.ResponseWriter, r *http.Request) (*model.ExportJob, bool) {
	publisherID := r.Header.Get(publisherHeader)
	if publisherID == "" {
		writeError(w, http.StatusBadRequest, "missing "+publisherHeader+" header")
		return nil, false
	}

	job, err := h.exports.GetExportJob(chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return nil, false
	}
	if job.PublisherID != publisherID {
		writeError(w, http.StatusForbidden, "job belongs to another publisher")
		return nil, false
	}
	return job, true
}

// writeServiceError maps the pipeline error taxonomy onto status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case model.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, model.ErrNotCompleted):
		writeError(w, http.StatusBadRequest, model.ErrNotCompleted.Error())
	case errors.Is(err, model.ErrSyncBusy):
		writeError(w, http.StatusConflict, model.ErrSyncBusy.Error())
	default:
		h.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
