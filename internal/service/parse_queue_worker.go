package service

import (
	"context"
	"log"
	"sync"
	"time"

	"freightrates/internal/port"
)

// ParseQueueConfig holds settings for the parse queue worker.
type ParseQueueConfig struct {
	PollInterval   time.Duration
	MaxRetries     int
	Concurrency    int
	ProcessTimeout time.Duration
}

// ParseQueueWorker polls for queued parse jobs and dispatches them for processing.
type ParseQueueWorker struct {
	jobRepo    port.ParseJobRepository
	jobService ParseJobService
	cfg        ParseQueueConfig
	wg         sync.WaitGroup
}

// NewParseQueueWorker creates a new ParseQueueWorker.
func NewParseQueueWorker(jobRepo port.ParseJobRepository, jobService ParseJobService, cfg ParseQueueConfig) *ParseQueueWorker {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = 5 * time.Minute
	}
	return &ParseQueueWorker{
		jobRepo:    jobRepo,
		jobService: jobService,
		cfg:        cfg,
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight jobs have finished.
func (w *ParseQueueWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	log.Printf("parseQueueWorker: started (poll=%s, concurrency=%d, maxRetries=%d)",
		w.cfg.PollInterval, w.cfg.Concurrency, w.cfg.MaxRetries)

	// Jobs left in processing by a crashed instance are older than any live timeout.
	if n, err := w.jobRepo.RecoverStale(ctx, time.Now().Add(-2*w.cfg.ProcessTimeout)); err != nil {
		log.Printf("parseQueueWorker: RecoverStale error: %v", err)
	} else if n > 0 {
		log.Printf("parseQueueWorker: requeued %d stale jobs", n)
	}

	for {
		select {
		case <-ctx.Done():
			log.Printf("parseQueueWorker: shutting down, waiting for in-flight jobs...")
			w.wg.Wait()
			log.Printf("parseQueueWorker: shutdown complete")
			return
		case <-ticker.C:
			w.poll(ctx, sem)
		}
	}
}

func (w *ParseQueueWorker) poll(ctx context.Context, sem chan struct{}) {
	available := w.cfg.Concurrency - len(sem)
	if available <= 0 {
		return
	}

	jobs, err := w.jobRepo.ClaimQueued(ctx, available)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("parseQueueWorker: ClaimQueued error: %v", err)
		}
		return
	}

	for i := range jobs {
		job := jobs[i]

		sem <- struct{}{}
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-sem }()

			// Detached from the poll context so in-flight jobs finish during shutdown.
			jobCtx, cancel := context.WithTimeout(context.Background(), w.cfg.ProcessTimeout)
			defer cancel()

			log.Printf("parseQueueWorker: dispatching job %s (attempt %d)", job.ID, job.Attempts)
			w.jobService.Process(jobCtx, &job, w.cfg.MaxRetries)
		}()
	}
}
