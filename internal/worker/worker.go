// Package worker consumes queued render jobs and drives them to a terminal
// state through the orchestrator.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/clipforge/clipforge/internal/queue"
	"github.com/clipforge/clipforge/internal/render"
)

type Worker struct {
	queue        *queue.Queue
	orchestrator *render.Orchestrator
}

func New(q *queue.Queue, orch *render.Orchestrator) *Worker {
	return &Worker{queue: q, orchestrator: orch}
}

// Start begins processing render jobs. Concurrency bounds how many renders
// run at once on this node; within a job the local backend has its own pool.
func (w *Worker) Start(ctx context.Context, concurrency int) {
	log.Printf("Worker started with concurrency: %d", concurrency)

	for i := 0; i < concurrency; i++ {
		go w.processQueue(ctx)
	}

	<-ctx.Done()
	log.Println("Worker shutting down...")
}

func (w *Worker) processQueue(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.queue.Dequeue(ctx, queue.QueueRender, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[Worker] Dequeue error: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue // No job available
		}

		log.Printf("[Worker] Picked up render job %s", job.ID)
		w.orchestrator.Execute(ctx, job.ID, job.UserID, &job.Composition)
	}
}
