package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"admesh-export/internal/api"
	"admesh-export/internal/api/handler"
	"admesh-export/internal/model"
)

// fakeExports is an in-memory ExportService.
type fakeExports struct {
	jobs     map[string]*model.ExportJob
	artifact string
}

func (f *fakeExports) CreateExportJob(publisherID string, dataType model.DataType, startDate, endDate time.Time, cfg model.ExportConfig) (*model.ExportJob, error) {
	if !dataType.Valid() {
		return nil, model.NewValidationError("dataType", "unknown value")
	}
	if startDate.After(endDate) {
		return nil, model.NewValidationError("startDate", "must not be after endDate")
	}
	job := &model.ExportJob{
		ID:          "job-1",
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
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeExports) GetExportJob(jobID string) (*model.ExportJob, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return job, nil
}

func (f *fakeExports) ListExportJobs(publisherID string, _ int) ([]*model.ExportJob, error) {
	var jobs []*model.ExportJob
	for _, j := range f.jobs {
		if j.PublisherID == publisherID {
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}

func (f *fakeExports) LocalArtifact(jobID string) (string, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return "", model.ErrNotFound
	}
	if job.Status != model.JobCompleted || job.Destination != model.DestinationLocal {
		return "", model.ErrNotCompleted
	}
	return f.artifact, nil
}

// fakeSyncs is an in-memory SyncService.
type fakeSyncs struct {
	syncs map[string]*model.DataWarehouseSync
	busy  bool
}

func (f *fakeSyncs) ScheduleWarehouseSync(publisherID string, warehouseType model.WarehouseType, intervalHours int) (*model.DataWarehouseSync, error) {
	if !warehouseType.Valid() {
		return nil, model.NewValidationError("warehouseType", "unknown value")
	}
	if intervalHours <= 0 {
		return nil, model.NewValidationError("syncInterval", "must be a positive number of hours")
	}
	now := time.Now().UTC()
	sync := &model.DataWarehouseSync{
		ID:                "sync-1",
		PublisherID:       publisherID,
		WarehouseType:     warehouseType,
		Status:            model.SyncActive,
		SyncIntervalHours: intervalHours,
		LastSyncTime:      now,
		NextSyncTime:      now.Add(time.Duration(intervalHours) * time.Hour),
		CreatedAt:         now,
	}
	f.syncs[sync.ID] = sync
	return sync, nil
}

func (f *fakeSyncs) GetWarehouseSync(syncID string) (*model.DataWarehouseSync, error) {
	sync, ok := f.syncs[syncID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return sync, nil
}

func (f *fakeSyncs) ExecuteWarehouseSync(_ context.Context, syncID string) (*model.DataWarehouseSync, error) {
	sync, ok := f.syncs[syncID]
	if !ok {
		return nil, model.ErrNotFound
	}
	if f.busy {
		return nil, model.ErrSyncBusy
	}
	return sync, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeExports, *fakeSyncs) {
	t.Helper()
	exports := &fakeExports{jobs: map[string]*model.ExportJob{}}
	syncs := &fakeSyncs{syncs: map[string]*model.DataWarehouseSync{}}
	h := handler.New(exports, syncs, zerolog.Nop())
	srv := httptest.NewServer(api.NewRouter(h, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, exports, syncs
}

func doRequest(t *testing.T, method, url, publisherID, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if publisherID != "" {
		req.Header.Set("X-Publisher-ID", publisherID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCreateExportJob(t *testing.T) {
	srv, _, _ := newTestServer(t)
	body := `{
		"dataType": "impressions",
		"startDate": "2024-03-01",
		"endDate": "2024-03-07",
		"config": {"format": "csv", "destination": "local"}
	}`

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/export/jobs", "pub-1", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	job := decodeBody[model.ExportJob](t, resp)
	assert.Equal(t, "pub-1", job.PublisherID)
	assert.Equal(t, model.JobPending, job.Status)
	assert.Equal(t, model.DataTypeImpressions, job.DataType)
}

func TestCreateExportJobRejections(t *testing.T) {
	srv, _, _ := newTestServer(t)
	url := srv.URL + "/api/v1/export/jobs"
	valid := `{"dataType": "impressions", "startDate": "2024-03-01", "endDate": "2024-03-07",
		"config": {"format": "csv", "destination": "local"}}`

	t.Run("missing publisher header", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, url, "", valid)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, url, "pub-1", "{not json")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad date format", func(t *testing.T) {
		body := strings.Replace(valid, "2024-03-01", "March 1st", 1)
		resp := doRequest(t, http.MethodPost, url, "pub-1", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		msg := decodeBody[map[string]string](t, resp)
		assert.Contains(t, msg["error"], "YYYY-MM-DD")
	})

	t.Run("inverted date range", func(t *testing.T) {
		body := `{"dataType": "impressions", "startDate": "2024-03-07", "endDate": "2024-03-01",
			"config": {"format": "csv", "destination": "local"}}`
		resp := doRequest(t, http.MethodPost, url, "pub-1", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown data type", func(t *testing.T) {
		body := strings.Replace(valid, "impressions", "clicks", 1)
		resp := doRequest(t, http.MethodPost, url, "pub-1", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetExportJobTenancy(t *testing.T) {
	srv, exports, _ := newTestServer(t)
	exports.jobs["job-1"] = &model.ExportJob{
		ID: "job-1", PublisherID: "pub-1", Status: model.JobPending,
	}

	t.Run("owner reads the job", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/export/jobs/job-1", "pub-1", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("other tenant is rejected", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/export/jobs/job-1", "pub-2", "")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/export/jobs/nope", "pub-1", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestListExportJobs(t *testing.T) {
	srv, exports, _ := newTestServer(t)

	t.Run("empty list is an array", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/export/jobs", "pub-1", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		jobs := decodeBody[[]model.ExportJob](t, resp)
		assert.NotNil(t, jobs)
		assert.Empty(t, jobs)
	})

	t.Run("scoped to the caller", func(t *testing.T) {
		exports.jobs["a"] = &model.ExportJob{ID: "a", PublisherID: "pub-1"}
		exports.jobs["b"] = &model.ExportJob{ID: "b", PublisherID: "pub-2"}

		resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/export/jobs", "pub-1", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		jobs := decodeBody[[]model.ExportJob](t, resp)
		require.Len(t, jobs, 1)
		assert.Equal(t, "a", jobs[0].ID)
	})
}

func TestDownloadExport(t *testing.T) {
	srv, exports, _ := newTestServer(t)

	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,impressions\n\"2024-03-01\",5\n"), 0o644))
	exports.artifact = path

	exports.jobs["done"] = &model.ExportJob{
		ID: "done", PublisherID: "pub-1",
		Status: model.JobCompleted, Destination: model.DestinationLocal,
		Location: path,
	}
	exports.jobs["pending"] = &model.ExportJob{
		ID: "pending", PublisherID: "pub-1",
		Status: model.JobPending, Destination: model.DestinationLocal,
	}

	t.Run("completed local job streams the file", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/export/jobs/done/download", "pub-1", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "attachment", resp.Header.Get("Content-Disposition"))
	})

	t.Run("pending job is rejected", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/export/jobs/pending/download", "pub-1", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestScheduleWarehouseSync(t *testing.T) {
	srv, _, _ := newTestServer(t)
	url := srv.URL + "/api/v1/warehouse/sync"

	t.Run("created", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, url, "pub-1", `{"warehouseType": "bigquery", "syncInterval": 24}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		sync := decodeBody[model.DataWarehouseSync](t, resp)
		assert.Equal(t, model.SyncActive, sync.Status)
		assert.Equal(t, sync.LastSyncTime.Add(24*time.Hour), sync.NextSyncTime)
	})

	t.Run("unknown warehouse type", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, url, "pub-1", `{"warehouseType": "mysql", "syncInterval": 24}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("non-positive interval", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, url, "pub-1", `{"warehouseType": "bigquery", "syncInterval": 0}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestExecuteWarehouseSync(t *testing.T) {
	srv, _, syncs := newTestServer(t)
	syncs.syncs["sync-1"] = &model.DataWarehouseSync{
		ID: "sync-1", PublisherID: "pub-1", Status: model.SyncActive,
	}

	t.Run("executes", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/warehouse/sync/sync-1/execute", "pub-1", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("busy maps to conflict", func(t *testing.T) {
		syncs.busy = true
		defer func() { syncs.busy = false }()

		resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/warehouse/sync/sync-1/execute", "pub-1", "")
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/warehouse/sync/nope/execute", "pub-1", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestHealth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "healthy", body["status"])
}
