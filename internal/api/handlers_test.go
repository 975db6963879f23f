package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/models"
	"github.com/clipforge/clipforge/internal/render"
)

func newTestHandler() (*Handler, *render.MemoryStore) {
	store := render.NewMemoryStore()
	return NewHandler(store, nil, nil, nil), store
}

// failingQueue rejects every enqueue, standing in for a lost Redis connection.
type failingQueue struct{}

func (failingQueue) EnqueueRender(context.Context, uuid.UUID, *uuid.UUID, models.Composition) error {
	return errors.New("connection refused")
}

func (failingQueue) GetQueueLength(context.Context, string) (int64, error) {
	return 0, nil
}

func TestCreateRenderRejectsInvalidComposition(t *testing.T) {
	h, _ := newTestHandler()

	body := `{"composition":{"clips":[],"width":1080,"height":1920,"fps":30,"duration_frames":60}}`
	req := httptest.NewRequest("POST", "/v1/renders", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateRender(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if !strings.Contains(resp["error"], "clip") {
		t.Errorf("error should name the missing clips: %q", resp["error"])
	}
}

func TestCreateRenderFailsJobWhenEnqueueFails(t *testing.T) {
	store := render.NewMemoryStore()
	h := NewHandler(store, failingQueue{}, nil, nil)

	jobID := uuid.New()
	body := fmt.Sprintf(
		`{"job_id":%q,"composition":{"clips":[{"locator":"a.mp4","start_ms":0,"end_ms":1000,"volume":1}],"width":1080,"height":1920,"fps":30,"duration_frames":30}}`,
		jobID,
	)
	req := httptest.NewRequest("POST", "/v1/renders", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.CreateRender(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	// The record must not stay RENDERING: nothing was queued, so no worker
	// will ever advance it.
	job, err := store.GetRenderJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("job record missing after failed enqueue: %v", err)
	}
	if job.Status != models.RenderStatusFailed {
		t.Errorf("status = %s, want FAILED", job.Status)
	}
	if job.ErrorMessage == nil || !strings.Contains(*job.ErrorMessage, "never queued") {
		t.Errorf("error message should record the lost enqueue, got %v", job.ErrorMessage)
	}
}

func TestGetRenderUnknownIDIs404(t *testing.T) {
	h, _ := newTestHandler()
	router := NewRouter(h, RouterConfig{})

	req := httptest.NewRequest("GET", "/v1/renders/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetRenderReturnsRecord(t *testing.T) {
	h, store := newTestHandler()
	router := NewRouter(h, RouterConfig{})

	jobID := uuid.New()
	msg := "renderer exploded"
	store.SaveRenderJob(context.Background(), &models.RenderJob{
		ID:           jobID,
		Status:       models.RenderStatusFailed,
		Progress:     40,
		ErrorMessage: &msg,
		Timestamp:    time.Now(),
	})

	req := httptest.NewRequest("GET", "/v1/renders/"+jobID.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var job models.RenderJob
	if err := json.NewDecoder(rec.Body).Decode(&job); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if job.Status != models.RenderStatusFailed || job.ErrorMessage == nil || *job.ErrorMessage != msg {
		t.Errorf("record = %+v, want the stored FAILED snapshot", job)
	}
}

func TestListRendersOrdersAndFilters(t *testing.T) {
	h, store := newTestHandler()
	router := NewRouter(h, RouterConfig{})

	now := time.Now()
	oldest := &models.RenderJob{ID: uuid.New(), Status: models.RenderStatusRendering, Timestamp: now.Add(-2 * time.Minute)}
	failed := &models.RenderJob{ID: uuid.New(), Status: models.RenderStatusFailed, Timestamp: now.Add(-time.Minute)}
	newest := &models.RenderJob{ID: uuid.New(), Status: models.RenderStatusDone, Timestamp: now}
	for _, job := range []*models.RenderJob{oldest, failed, newest} {
		store.SaveRenderJob(context.Background(), job)
	}

	req := httptest.NewRequest("GET", "/v1/renders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var jobs []models.RenderJob
	if err := json.NewDecoder(rec.Body).Decode(&jobs); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("listed %d jobs, want 3", len(jobs))
	}
	if jobs[0].ID != newest.ID || jobs[2].ID != oldest.ID {
		t.Error("jobs should come back newest first")
	}

	// Status filter
	req = httptest.NewRequest("GET", "/v1/renders?status=FAILED", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	jobs = nil
	if err := json.NewDecoder(rec.Body).Decode(&jobs); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != failed.ID {
		t.Errorf("FAILED filter returned %+v, want just the failed job", jobs)
	}

	// Unknown filter values are rejected rather than silently empty.
	req = httptest.NewRequest("GET", "/v1/renders?status=EXPLODED", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown status filter = %d, want 400", rec.Code)
	}
}

func TestRegistriesServeTheSharedTables(t *testing.T) {
	h, _ := newTestHandler()
	router := NewRouter(h, RouterConfig{})

	for _, path := range []string{
		"/v1/registries/transitions",
		"/v1/registries/animations",
		"/v1/registries/filters",
	} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
			continue
		}
		var entries []map[string]interface{}
		if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
			t.Errorf("%s: bad response body: %v", path, err)
			continue
		}
		if len(entries) == 0 {
			t.Errorf("%s returned an empty registry", path)
		}
	}
}

func TestAPIKeyAuthGuardsV1(t *testing.T) {
	h, _ := newTestHandler()
	router := NewRouter(h, RouterConfig{BackendAPIKey: "secret"})

	// No key
	req := httptest.NewRequest("GET", "/v1/registries/filters", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing key status = %d, want 401", rec.Code)
	}

	// Wrong key
	req = httptest.NewRequest("GET", "/v1/registries/filters", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("wrong key status = %d, want 403", rec.Code)
	}

	// Bearer form
	req = httptest.NewRequest("GET", "/v1/registries/filters", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid bearer key status = %d, want 200", rec.Code)
	}

	// Health stays public
	req = httptest.NewRequest("GET", "/health", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}
}
