// Package queue hands render jobs from the API to the worker over Redis.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/models"
)

const QueueRender = "queue:render"

type Queue struct {
	client *redis.Client
}

// Job is the queued render request. The full composition travels with the
// job so the worker needs no second lookup before it can start.
type Job struct {
	ID          uuid.UUID          `json:"id"`
	UserID      *uuid.UUID         `json:"user_id,omitempty"`
	Composition models.Composition `json:"composition"`
	CreatedAt   time.Time          `json:"created_at"`
}

func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func (q *Queue) Enqueue(ctx context.Context, queueName string, job *Job) error {
	job.CreatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	return q.client.RPush(ctx, queueName, data).Err()
}

func (q *Queue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, queueName).Result()
	if err == redis.Nil {
		return nil, nil // No job available
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

func (q *Queue) GetQueueLength(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, queueName).Result()
}

// EnqueueRender enqueues a render job carrying its composition.
func (q *Queue) EnqueueRender(ctx context.Context, jobID uuid.UUID, userID *uuid.UUID, comp models.Composition) error {
	job := &Job{
		ID:          jobID,
		UserID:      userID,
		Composition: comp,
	}
	return q.Enqueue(ctx, QueueRender, job)
}
