// Package render tracks export jobs through their RENDERING/DONE/FAILED
// lifecycle and executes them on a local or farm backend. Callers never
// block on a render; all reporting flows through the durable job store.
package render

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/models"
)

// DefaultTimeout is the wall-clock budget for one render attempt.
const DefaultTimeout = 5 * time.Minute

// Result is a backend's terminal output descriptor.
type Result struct {
	OutputURL string
	RemoteURL *string
	SizeBytes int64
}

// Backend executes one render job, reporting progress as a 0-100 value.
// Backends own their retry policy for throttling; any returned error is
// fatal to the job.
type Backend interface {
	Render(ctx context.Context, jobID uuid.UUID, comp *models.Composition, progress func(int)) (*Result, error)
}

// Orchestrator runs render jobs to a terminal state. All job-store writes
// go through update, which rejects writes to terminal jobs and keeps
// progress monotonic, so pollers see a consistent record regardless of
// backend.
type Orchestrator struct {
	store   JobStore
	backend Backend
	timeout time.Duration

	mu sync.Mutex
}

func NewOrchestrator(store JobStore, backend Backend) *Orchestrator {
	return &Orchestrator{
		store:   store,
		backend: backend,
		timeout: DefaultTimeout,
	}
}

// Execute runs one job to DONE or FAILED. It is called from the worker as a
// detached task; errors are reported only through the job record.
func (o *Orchestrator) Execute(ctx context.Context, jobID uuid.UUID, userID *uuid.UUID, comp *models.Composition) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	log.Printf("[Orchestrator] Job %s starting (%d clips, %d frames)", jobID, len(comp.Clips), comp.DurationFrames)

	if err := o.update(jobID, func(job *models.RenderJob) {
		job.UserID = userID
		job.Status = models.RenderStatusRendering
	}); err != nil {
		log.Printf("[Orchestrator] Job %s not started: %v", jobID, err)
		return
	}

	result, err := o.backend.Render(ctx, jobID, comp, func(p int) {
		if uerr := o.update(jobID, func(job *models.RenderJob) {
			job.Progress = p
		}); uerr != nil {
			log.Printf("[Orchestrator] Job %s progress update dropped: %v", jobID, uerr)
		}
	})

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w (%v): %v", ErrRenderTimeout, o.timeout, err)
		}
		log.Printf("[Orchestrator] Job %s failed after %v: %v", jobID, time.Since(start).Round(time.Millisecond), err)

		msg := err.Error()
		if uerr := o.update(jobID, func(job *models.RenderJob) {
			job.Status = models.RenderStatusFailed
			job.ErrorMessage = &msg
		}); uerr != nil {
			log.Printf("[Orchestrator] Job %s failure not recorded: %v", jobID, uerr)
		}
		return
	}

	log.Printf("[Orchestrator] Job %s done in %v (%d bytes)", jobID, time.Since(start).Round(time.Millisecond), result.SizeBytes)

	if uerr := o.update(jobID, func(job *models.RenderJob) {
		job.Status = models.RenderStatusDone
		job.Progress = 100
		job.OutputURL = &result.OutputURL
		job.RemoteURL = result.RemoteURL
		job.SizeBytes = &result.SizeBytes
	}); uerr != nil {
		log.Printf("[Orchestrator] Job %s completion not recorded: %v", jobID, uerr)
	}
}

// update applies one state change. Terminal jobs reject further writes and
// progress never moves backwards within a job. Store writes use a fresh
// context so terminal records land even when the job context has expired.
func (o *Orchestrator) update(jobID uuid.UUID, mutate func(*models.RenderJob)) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	job, err := o.store.GetRenderJob(ctx, jobID)
	if err != nil {
		if !errors.Is(err, ErrJobNotFound) {
			return fmt.Errorf("failed to load job: %w", err)
		}
		job = &models.RenderJob{ID: jobID, Status: models.RenderStatusRendering}
	}

	if job.Status.Terminal() {
		return fmt.Errorf("job %s is %s, no further updates accepted", jobID, job.Status)
	}

	prevProgress := job.Progress
	mutate(job)

	if job.Progress < prevProgress {
		job.Progress = prevProgress
	}
	if job.Progress > 100 {
		job.Progress = 100
	}
	job.Timestamp = time.Now()

	return o.store.SaveRenderJob(ctx, job)
}
