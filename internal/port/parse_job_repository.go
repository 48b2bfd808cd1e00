package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"freightrates/internal/domain"
)

// ParseJobRepository defines the contract for parse job persistence.
type ParseJobRepository interface {
	Create(ctx context.Context, job *domain.ParseJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ParseJob, error)
	List(ctx context.Context, status domain.JobStatus, offset, limit int) ([]domain.ParseJob, int, error)
	// ClaimQueued atomically moves up to limit queued jobs whose retry time has
	// passed to processing and increments their attempt counters.
	ClaimQueued(ctx context.Context, limit int) ([]domain.ParseJob, error)
	// Claim moves a single queued job to processing, as ClaimQueued does.
	Claim(ctx context.Context, id uuid.UUID) (*domain.ParseJob, error)
	MarkCompleted(ctx context.Context, job *domain.ParseJob) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	// Requeue returns a job to the queue; it is not claimed again before retryAt.
	Requeue(ctx context.Context, id uuid.UUID, errMsg string, retryAt time.Time) error
	// RecoverStale requeues processing jobs not updated since before.
	RecoverStale(ctx context.Context, before time.Time) (int, error)
}
