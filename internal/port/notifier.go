package port

import (
	"context"

	"freightrates/internal/domain"
)

// JobNotifier alerts operators about parse jobs that failed permanently.
type JobNotifier interface {
	NotifyJobFailed(ctx context.Context, job *domain.ParseJob) error
}
