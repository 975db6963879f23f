package render

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/models"
)

type fakeBackend struct {
	render func(ctx context.Context, jobID uuid.UUID, comp *models.Composition, progress func(int)) (*Result, error)
}

func (f *fakeBackend) Render(ctx context.Context, jobID uuid.UUID, comp *models.Composition, progress func(int)) (*Result, error) {
	return f.render(ctx, jobID, comp, progress)
}

func testComp() *models.Composition {
	return &models.Composition{
		Clips:          []models.Clip{{Locator: "a.mp4", StartMs: 0, EndMs: 2000, Volume: 1}},
		Width:          1080,
		Height:         1920,
		FPS:            30,
		DurationFrames: 60,
	}
}

func TestExecuteSuccessReachesDone(t *testing.T) {
	store := NewMemoryStore()
	remote := "https://cdn.example.com/out.mp4"
	backend := &fakeBackend{
		render: func(_ context.Context, _ uuid.UUID, _ *models.Composition, progress func(int)) (*Result, error) {
			progress(40)
			return &Result{OutputURL: remote, RemoteURL: &remote, SizeBytes: 1234}, nil
		},
	}

	o := NewOrchestrator(store, backend)
	jobID := uuid.New()
	o.Execute(context.Background(), jobID, nil, testComp())

	job, err := store.GetRenderJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("job not recorded: %v", err)
	}
	if job.Status != models.RenderStatusDone {
		t.Errorf("status = %s, want DONE", job.Status)
	}
	if job.Progress != 100 {
		t.Errorf("progress = %d, want 100", job.Progress)
	}
	if job.OutputURL == nil || *job.OutputURL != remote {
		t.Errorf("output URL = %v, want %s", job.OutputURL, remote)
	}
	if job.SizeBytes == nil || *job.SizeBytes != 1234 {
		t.Errorf("size = %v, want 1234", job.SizeBytes)
	}
}

func TestExecuteFailureReachesFailed(t *testing.T) {
	store := NewMemoryStore()
	backend := &fakeBackend{
		render: func(context.Context, uuid.UUID, *models.Composition, func(int)) (*Result, error) {
			return nil, errors.New("renderer exploded")
		},
	}

	o := NewOrchestrator(store, backend)
	jobID := uuid.New()
	o.Execute(context.Background(), jobID, nil, testComp())

	job, err := store.GetRenderJob(context.Background(), jobID)
	if err != nil {
		t.Fatalf("job not recorded: %v", err)
	}
	if job.Status != models.RenderStatusFailed {
		t.Errorf("status = %s, want FAILED", job.Status)
	}
	if job.ErrorMessage == nil || !strings.Contains(*job.ErrorMessage, "renderer exploded") {
		t.Errorf("error message = %v, want the backend failure", job.ErrorMessage)
	}
}

func TestExecuteTimeoutReportsBudget(t *testing.T) {
	store := NewMemoryStore()
	backend := &fakeBackend{
		render: func(ctx context.Context, _ uuid.UUID, _ *models.Composition, _ func(int)) (*Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	o := NewOrchestrator(store, backend)
	o.timeout = 20 * time.Millisecond
	jobID := uuid.New()
	o.Execute(context.Background(), jobID, nil, testComp())

	job, _ := store.GetRenderJob(context.Background(), jobID)
	if job.Status != models.RenderStatusFailed {
		t.Fatalf("status = %s, want FAILED", job.Status)
	}
	if job.ErrorMessage == nil || !strings.Contains(*job.ErrorMessage, ErrRenderTimeout.Error()) {
		t.Errorf("error message = %v, want a wall-clock budget failure", job.ErrorMessage)
	}
}

func TestUpdateKeepsProgressMonotonic(t *testing.T) {
	store := NewMemoryStore()
	o := NewOrchestrator(store, &fakeBackend{})
	jobID := uuid.New()

	for _, p := range []int{50, 30} {
		if err := o.update(jobID, func(job *models.RenderJob) { job.Progress = p }); err != nil {
			t.Fatalf("update failed: %v", err)
		}
	}

	job, _ := store.GetRenderJob(context.Background(), jobID)
	if job.Progress != 50 {
		t.Errorf("progress = %d, regressions must be clamped to 50", job.Progress)
	}
}

func TestUpdateRejectsTerminalJobs(t *testing.T) {
	store := NewMemoryStore()
	o := NewOrchestrator(store, &fakeBackend{})
	jobID := uuid.New()

	if err := o.update(jobID, func(job *models.RenderJob) {
		job.Status = models.RenderStatusDone
	}); err != nil {
		t.Fatalf("initial update failed: %v", err)
	}

	err := o.update(jobID, func(job *models.RenderJob) { job.Progress = 10 })
	if err == nil {
		t.Fatal("update on a DONE job must be rejected")
	}

	job, _ := store.GetRenderJob(context.Background(), jobID)
	if job.Status != models.RenderStatusDone || job.Progress == 10 {
		t.Errorf("terminal record mutated: %+v", job)
	}
}
