package noop

import (
	"context"
	"log"

	"freightrates/internal/domain"
	"freightrates/internal/port"
)

type noopNotifier struct {
	dashboardURL string
}

// NewNotifier creates a JobNotifier that only logs failures.
func NewNotifier(dashboardURL string) port.JobNotifier {
	return &noopNotifier{dashboardURL: dashboardURL}
}

func (n *noopNotifier) NotifyJobFailed(_ context.Context, job *domain.ParseJob) error {
	log.Printf("[NOOP NOTIFY] parse job %s (%s) failed after %d attempt(s): %s %s/jobs/%s",
		job.ID, job.SourceName, job.Attempts, job.ErrorMessage, n.dashboardURL, job.ID)
	return nil
}
