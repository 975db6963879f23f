package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/models"
	"github.com/clipforge/clipforge/internal/render"
)

// SaveRenderJob upserts the full job snapshot. The orchestrator writes whole
// records on every status change, so the row always reflects the latest
// snapshot.
func (db *DB) SaveRenderJob(ctx context.Context, job *models.RenderJob) error {
	query := `
		INSERT INTO render_jobs (
			id, user_id, status, progress, output_url, remote_url,
			size_bytes, error_message, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			progress = EXCLUDED.progress,
			output_url = EXCLUDED.output_url,
			remote_url = EXCLUDED.remote_url,
			size_bytes = EXCLUDED.size_bytes,
			error_message = EXCLUDED.error_message,
			updated_at = EXCLUDED.updated_at
	`

	_, err := db.ExecContext(
		ctx, query,
		job.ID, job.UserID, job.Status, job.Progress, job.OutputURL,
		job.RemoteURL, job.SizeBytes, job.ErrorMessage, job.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save render job: %w", err)
	}
	return nil
}

func (db *DB) GetRenderJob(ctx context.Context, id uuid.UUID) (*models.RenderJob, error) {
	query := `
		SELECT
			id, user_id, status, progress, output_url, remote_url,
			size_bytes, error_message, updated_at
		FROM render_jobs
		WHERE id = $1
	`

	job := &models.RenderJob{}
	err := db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.UserID, &job.Status, &job.Progress, &job.OutputURL,
		&job.RemoteURL, &job.SizeBytes, &job.ErrorMessage, &job.Timestamp,
	)

	if err == sql.ErrNoRows {
		return nil, render.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get render job: %w", err)
	}

	return job, nil
}

// ListRenderJobs returns recent jobs, newest first, optionally filtered by
// status.
func (db *DB) ListRenderJobs(ctx context.Context, status string, limit, offset int) ([]models.RenderJob, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseSelect := `
		SELECT
			id, user_id, status, progress, output_url, remote_url,
			size_bytes, error_message, updated_at
		FROM render_jobs
	`

	if status != "" {
		query := baseSelect + ` WHERE status = $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
		rows, err = db.QueryContext(ctx, query, status, limit, offset)
	} else {
		query := baseSelect + ` ORDER BY updated_at DESC LIMIT $1 OFFSET $2`
		rows, err = db.QueryContext(ctx, query, limit, offset)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to list render jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.RenderJob
	for rows.Next() {
		var job models.RenderJob
		if err := rows.Scan(
			&job.ID, &job.UserID, &job.Status, &job.Progress, &job.OutputURL,
			&job.RemoteURL, &job.SizeBytes, &job.ErrorMessage, &job.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan render job: %w", err)
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}
