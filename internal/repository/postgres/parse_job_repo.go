package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"freightrates/internal/domain"
	"freightrates/internal/port"
)

type parseJobRepo struct {
	db *sqlx.DB
}

// NewParseJobRepo creates a new PostgreSQL-backed ParseJobRepository.
func NewParseJobRepo(db *sqlx.DB) port.ParseJobRepository {
	return &parseJobRepo{db: db}
}

func (r *parseJobRepo) Create(ctx context.Context, job *domain.ParseJob) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx, `INSERT INTO parse_jobs (
		id, source, source_name, html, file_key, content_type,
		strategy, cluster, include_text, status, attempts, error_message,
		created_at, updated_at
	) VALUES (
		:id, :source, :source_name, :html, :file_key, :content_type,
		:strategy, :cluster, :include_text, :status, :attempts, :error_message,
		:created_at, :updated_at
	)`, job)
	if err != nil {
		return fmt.Errorf("parseJobRepo.Create: %w", err)
	}
	return nil
}

func (r *parseJobRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ParseJob, error) {
	var job domain.ParseJob
	err := r.db.GetContext(ctx, &job, "SELECT * FROM parse_jobs WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("parseJobRepo.GetByID: %w", err)
	}
	return &job, nil
}

// List returns jobs newest first. An empty status lists every job.
func (r *parseJobRepo) List(ctx context.Context, status domain.JobStatus, offset, limit int) ([]domain.ParseJob, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM parse_jobs WHERE ($1 = '' OR status = $1)", string(status))
	if err != nil {
		return nil, 0, fmt.Errorf("parseJobRepo.List count: %w", err)
	}

	jobs := []domain.ParseJob{}
	err = r.db.SelectContext(ctx, &jobs,
		`SELECT * FROM parse_jobs WHERE ($1 = '' OR status = $1)
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		string(status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("parseJobRepo.List: %w", err)
	}
	return jobs, total, nil
}

func (r *parseJobRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.ParseJob, error) {
	var jobs []domain.ParseJob
	err := r.db.SelectContext(ctx, &jobs,
		`UPDATE parse_jobs SET status = $1, attempts = attempts + 1, updated_at = NOW()
		 WHERE id IN (
			SELECT id FROM parse_jobs
			WHERE status = $2 AND (retry_after IS NULL OR retry_after <= NOW())
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		 )
		 RETURNING *`,
		domain.JobStatusProcessing, domain.JobStatusQueued, limit)
	if err != nil {
		return nil, fmt.Errorf("parseJobRepo.ClaimQueued: %w", err)
	}
	return jobs, nil
}

func (r *parseJobRepo) Claim(ctx context.Context, id uuid.UUID) (*domain.ParseJob, error) {
	var job domain.ParseJob
	err := r.db.GetContext(ctx, &job,
		`UPDATE parse_jobs SET status = $1, attempts = attempts + 1, updated_at = NOW()
		 WHERE id = $2 AND status = $3
		 RETURNING *`,
		domain.JobStatusProcessing, id, domain.JobStatusQueued)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("parseJobRepo.Claim: %w", err)
	}
	return &job, nil
}

func (r *parseJobRepo) MarkCompleted(ctx context.Context, job *domain.ParseJob) error {
	now := time.Now().UTC()
	job.Status = domain.JobStatusCompleted
	job.ErrorMessage = ""
	job.RetryAfter = nil
	job.CompletedAt = &now
	job.UpdatedAt = now

	result, err := r.db.ExecContext(ctx,
		`UPDATE parse_jobs SET
			status = $1, error_message = '', result = $2, stats = $3, model_used = $4,
			retry_after = NULL, completed_at = $5, updated_at = $5
		 WHERE id = $6`,
		job.Status, job.Result, job.Stats, job.ModelUsed, now, job.ID)
	if err != nil {
		return fmt.Errorf("parseJobRepo.MarkCompleted: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *parseJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE parse_jobs SET status = $1, error_message = $2, retry_after = NULL, updated_at = NOW()
		 WHERE id = $3`,
		domain.JobStatusFailed, errMsg, id)
	if err != nil {
		return fmt.Errorf("parseJobRepo.MarkFailed: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *parseJobRepo) Requeue(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE parse_jobs SET status = $1, error_message = $2, retry_after = $3, updated_at = NOW()
		 WHERE id = $4`,
		domain.JobStatusQueued, errMsg, retryAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("parseJobRepo.Requeue: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *parseJobRepo) RecoverStale(ctx context.Context, before time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE parse_jobs SET status = $1, error_message = 'recovered after interrupted processing', updated_at = NOW()
		 WHERE status = $2 AND updated_at < $3`,
		domain.JobStatusQueued, domain.JobStatusProcessing, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("parseJobRepo.RecoverStale: %w", err)
	}
	rows, _ := result.RowsAffected()
	return int(rows), nil
}
