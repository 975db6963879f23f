package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/compositor"
	"github.com/clipforge/clipforge/internal/cutter"
	"github.com/clipforge/clipforge/internal/models"
	"github.com/clipforge/clipforge/internal/overlay"
	"github.com/clipforge/clipforge/internal/queue"
	"github.com/clipforge/clipforge/internal/render"
	"github.com/clipforge/clipforge/internal/storage"
	"github.com/clipforge/clipforge/internal/timeline"
	"github.com/clipforge/clipforge/internal/transitions"
)

const downloadURLTTLSeconds = 3600

// RenderQueue is the queue surface the handlers depend on. *queue.Queue
// satisfies it.
type RenderQueue interface {
	EnqueueRender(ctx context.Context, jobID uuid.UUID, userID *uuid.UUID, comp models.Composition) error
	GetQueueLength(ctx context.Context, queueName string) (int64, error)
}

type Handler struct {
	store   render.JobStore
	queue   RenderQueue
	storage *storage.Storage // nil when object storage is not configured
	cutter  *cutter.Cutter
}

func NewHandler(store render.JobStore, q RenderQueue, stor *storage.Storage, cut *cutter.Cutter) *Handler {
	return &Handler{
		store:   store,
		queue:   q,
		storage: stor,
		cutter:  cut,
	}
}

// CreateRender handles POST /v1/renders. It records the initial state,
// enqueues the composition, and returns immediately; progress is observed
// only by polling GET /v1/renders/{id}.
func (h *Handler) CreateRender(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := compositor.ValidateComposition(&req.Composition); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Multi-clip compositions without explicit transitions get the
	// auto-generated boundary set.
	if len(req.Composition.Transitions) == 0 && len(req.Composition.Clips) > 1 {
		req.Composition.Transitions = transitions.AutoGenerate(len(req.Composition.Clips))
	}

	jobID := uuid.New()
	if req.JobID != nil {
		jobID = *req.JobID
	}

	job := &models.RenderJob{
		ID:        jobID,
		UserID:    req.UserID,
		Status:    models.RenderStatusRendering,
		Progress:  0,
		Timestamp: time.Now(),
	}

	if err := h.store.SaveRenderJob(r.Context(), job); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create render job")
		return
	}

	if err := h.queue.EnqueueRender(r.Context(), jobID, req.UserID, req.Composition); err != nil {
		// The record was already saved as RENDERING; without a queue entry no
		// worker will ever advance it, so fail it here rather than strand a
		// permanently non-terminal job.
		msg := fmt.Sprintf("render was never queued: %v", err)
		job.Status = models.RenderStatusFailed
		job.ErrorMessage = &msg
		job.Timestamp = time.Now()
		if serr := h.store.SaveRenderJob(r.Context(), job); serr != nil {
			log.Printf("[API] Job %s enqueue failure not recorded: %v", jobID, serr)
		}
		respondError(w, http.StatusInternalServerError, "Failed to enqueue render job")
		return
	}

	respondJSON(w, http.StatusAccepted, models.CreateRenderResponse{
		JobID:  jobID,
		Status: job.Status,
	})
}

// GetRender handles GET /v1/renders/{id}. It never errors for a known id;
// FAILED status plus error_message is the only user-visible failure signal.
func (h *Handler) GetRender(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid render job ID")
		return
	}

	job, err := h.store.GetRenderJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, render.ErrJobNotFound) {
			respondError(w, http.StatusNotFound, "Render job not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to get render job")
		return
	}

	respondJSON(w, http.StatusOK, job)
}

// ListRenders handles GET /v1/renders?status=&limit=&offset=. Jobs come back
// newest first.
func (h *Handler) ListRenders(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	switch models.RenderStatus(status) {
	case "", models.RenderStatusRendering, models.RenderStatusDone, models.RenderStatusFailed:
	default:
		respondError(w, http.StatusBadRequest, "Unknown status filter")
		return
	}

	limit := queryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	jobs, err := h.store.ListRenderJobs(r.Context(), status, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list render jobs")
		return
	}
	if jobs == nil {
		jobs = []models.RenderJob{}
	}

	respondJSON(w, http.StatusOK, jobs)
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// GetRenderDownload handles GET /v1/renders/{id}/download with a redirect to
// a temporary signed URL once the render is DONE.
func (h *Handler) GetRenderDownload(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid render job ID")
		return
	}

	job, err := h.store.GetRenderJob(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "Render job not found")
		return
	}

	if job.Status != models.RenderStatusDone {
		respondError(w, http.StatusNotFound, "Render not ready")
		return
	}

	if job.RemoteURL == nil || h.storage == nil {
		respondError(w, http.StatusNotFound, "Output not in durable storage")
		return
	}

	objectPath, ok := h.storage.ObjectPathFromPublicURL(*job.RemoteURL)
	if !ok {
		respondError(w, http.StatusNotFound, "Output not in durable storage")
		return
	}

	signedURL, err := h.storage.GetSignedURL(r.Context(), objectPath, downloadURLTTLSeconds)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate download URL")
		return
	}

	http.Redirect(w, r, signedURL, http.StatusTemporaryRedirect)
}

// CutClip handles POST /v1/clips/cut: source locator + keep segments to
// output locator + new duration.
func (h *Handler) CutClip(w http.ResponseWriter, r *http.Request) {
	var req models.CutClipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Input == "" || req.Output == "" {
		respondError(w, http.StatusBadRequest, "Input and output locators are required")
		return
	}

	if err := h.cutter.CutVideoSegments(r.Context(), req.Input, req.KeepSegments, req.Output); err != nil {
		var verr *cutter.ValidationError
		if errors.As(err, &verr) {
			respondError(w, http.StatusBadRequest, verr.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, models.CutClipResponse{
		Output:      req.Output,
		DurationMs:  timeline.TotalDuration(req.KeepSegments),
		Transitions: transitions.SuggestForKeepSegments(req.ClipIndex, req.KeepSegments),
	})
}

// ListTransitions handles GET /v1/registries/transitions
func (h *Handler) ListTransitions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, transitions.Definitions())
}

// ListAnimations handles GET /v1/registries/animations
func (h *Handler) ListAnimations(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, overlay.Animations())
}

// ListFilters handles GET /v1/registries/filters
func (h *Handler) ListFilters(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, compositor.Filters())
}

// QueueDebug handles GET /v1/debug/queue
func (h *Handler) QueueDebug(w http.ResponseWriter, r *http.Request) {
	length, err := h.queue.GetQueueLength(r.Context(), queue.QueueRender)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to get queue length")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"queued": length})
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
