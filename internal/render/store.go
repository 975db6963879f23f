package render

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/models"
)

// JobStore is the durable record behind the poll endpoints. The design only
// needs read-your-writes consistency per job id.
type JobStore interface {
	SaveRenderJob(ctx context.Context, job *models.RenderJob) error
	GetRenderJob(ctx context.Context, id uuid.UUID) (*models.RenderJob, error)
	ListRenderJobs(ctx context.Context, status string, limit, offset int) ([]models.RenderJob, error)
}

// MemoryStore is an in-process JobStore for tests and single-node setups.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]models.RenderJob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[uuid.UUID]models.RenderJob)}
}

func (s *MemoryStore) SaveRenderJob(_ context.Context, job *models.RenderJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryStore) GetRenderJob(_ context.Context, id uuid.UUID) (*models.RenderJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}

// ListRenderJobs returns jobs newest first, optionally filtered by status.
func (s *MemoryStore) ListRenderJobs(_ context.Context, status string, limit, offset int) ([]models.RenderJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]models.RenderJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		if status != "" && string(job.Status) != status {
			continue
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Timestamp.After(jobs[j].Timestamp) })

	if offset >= len(jobs) {
		return nil, nil
	}
	jobs = jobs[offset:]
	if limit > 0 && limit < len(jobs) {
		jobs = jobs[:limit]
	}
	return jobs, nil
}
