package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"freightrates/internal/domain"
	"freightrates/internal/extractor"
	"freightrates/internal/port"
)

// ParseJobConfig holds settings for job submission and processing.
type ParseJobConfig struct {
	QueueEnabled    bool
	MaxAttempts     int
	MaxFileSizeMB   int64
	PresignExpiry   time.Duration
	ProcessTimeout  time.Duration
	DefaultStrategy domain.BatchStrategy
	// Notifier, when set, is told about every permanent failure.
	Notifier port.JobNotifier
}

// SubmitEmailInput is the DTO for e-mail body submissions.
type SubmitEmailInput struct {
	HTML    string
	Subject string
	Options domain.ParseOptions
}

// SubmitFileInput is the DTO for document uploads that need recognition.
type SubmitFileInput struct {
	File    multipart.File
	Header  *multipart.FileHeader
	Options domain.ParseOptions
}

// ParseJobService defines the parse job contract.
type ParseJobService interface {
	SubmitEmail(ctx context.Context, input SubmitEmailInput) (*domain.ParseJob, error)
	SubmitFile(ctx context.Context, input SubmitFileInput) (*domain.ParseJob, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.ParseJob, error)
	List(ctx context.Context, status domain.JobStatus, offset, limit int) ([]domain.ParseJob, int, error)
	Retry(ctx context.Context, id uuid.UUID) (*domain.ParseJob, error)
	Result(ctx context.Context, id uuid.UUID) (*domain.ExtractionResult, error)
	// Process runs a claimed job to completion, failure, or requeue.
	Process(ctx context.Context, job *domain.ParseJob, maxAttempts int)
}

type parseJobService struct {
	repo       port.ParseJobRepository
	storage    port.ObjectStorage
	recognizer port.DocumentRecognizer
	pipeline   PipelineService
	cfg        ParseJobConfig
}

// NewParseJobService creates a new ParseJobService implementation.
// storage and recognizer may be nil, in which case file submissions fail.
func NewParseJobService(
	repo port.ParseJobRepository,
	storage port.ObjectStorage,
	recognizer port.DocumentRecognizer,
	pipeline PipelineService,
	cfg ParseJobConfig,
) ParseJobService {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = 5 * time.Minute
	}
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = time.Hour
	}
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = domain.StrategyRisk
	}
	return &parseJobService{
		repo:       repo,
		storage:    storage,
		recognizer: recognizer,
		pipeline:   pipeline,
		cfg:        cfg,
	}
}

func (s *parseJobService) normalizeOptions(opts domain.ParseOptions) (domain.ParseOptions, error) {
	if opts.Strategy == "" {
		opts.Strategy = s.cfg.DefaultStrategy
	}
	if !opts.Strategy.Valid() {
		return opts, fmt.Errorf("%w: %q", domain.ErrInvalidStrategy, opts.Strategy)
	}
	return opts, nil
}

func (s *parseJobService) SubmitEmail(ctx context.Context, input SubmitEmailInput) (*domain.ParseJob, error) {
	opts, err := s.normalizeOptions(input.Options)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.HTML) == "" {
		return nil, domain.ErrEmptyDocument
	}

	job := &domain.ParseJob{
		ID:          uuid.New(),
		Source:      domain.JobSourceEmail,
		SourceName:  input.Subject,
		HTML:        input.HTML,
		ContentType: "text/html",
		Strategy:    opts.Strategy,
		Cluster:     opts.Cluster,
		IncludeText: opts.IncludeText,
		Status:      domain.JobStatusQueued,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("creating parse job: %w", err)
	}

	log.Printf("parseJobService.SubmitEmail: job %s queued (%d bytes, strategy=%s, cluster=%v)",
		job.ID, len(input.HTML), job.Strategy, job.Cluster)
	s.dispatch(job.ID)
	return job, nil
}

func (s *parseJobService) SubmitFile(ctx context.Context, input SubmitFileInput) (*domain.ParseJob, error) {
	opts, err := s.normalizeOptions(input.Options)
	if err != nil {
		return nil, err
	}
	if s.storage == nil {
		return nil, domain.ErrUploadFailed
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Header.Filename), "."))
	if _, ok := domain.AllowedExtensions[ext]; !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	maxBytes := s.cfg.MaxFileSizeMB * 1024 * 1024
	if maxBytes > 0 && input.Header.Size > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	// Sniff the first 512 bytes rather than trusting the client's header.
	buf := make([]byte, 512)
	n, err := input.File.Read(buf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading file header: %w", err)
	}
	contentType, _, _ := mime.ParseMediaType(http.DetectContentType(buf[:n]))
	if _, ok := domain.AllowedContentTypes[contentType]; !ok {
		return nil, domain.ErrUnsupportedFileType
	}
	if _, err := input.File.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seeking file: %w", err)
	}

	jobID := uuid.New()
	key := fmt.Sprintf("uploads/%s/%s", jobID, filepath.Base(input.Header.Filename))

	log.Printf("parseJobService.SubmitFile: uploading %s (%s, %d bytes) for job %s",
		input.Header.Filename, contentType, input.Header.Size, jobID)

	if _, err := s.storage.Upload(ctx, port.UploadInput{
		Key:         key,
		Body:        input.File,
		ContentType: contentType,
		Size:        input.Header.Size,
	}); err != nil {
		log.Printf("parseJobService.SubmitFile: upload failed for job %s: %v", jobID, err)
		return nil, domain.ErrUploadFailed
	}

	job := &domain.ParseJob{
		ID:          jobID,
		Source:      domain.JobSourceFile,
		SourceName:  input.Header.Filename,
		FileKey:     key,
		ContentType: contentType,
		Strategy:    opts.Strategy,
		Cluster:     opts.Cluster,
		IncludeText: opts.IncludeText,
		Status:      domain.JobStatusQueued,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("creating parse job: %w", err)
	}

	s.dispatch(job.ID)
	return job, nil
}

func (s *parseJobService) Get(ctx context.Context, id uuid.UUID) (*domain.ParseJob, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *parseJobService) List(ctx context.Context, status domain.JobStatus, offset, limit int) ([]domain.ParseJob, int, error) {
	return s.repo.List(ctx, status, offset, limit)
}

func (s *parseJobService) Retry(ctx context.Context, id uuid.UUID) (*domain.ParseJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusFailed {
		return nil, domain.ErrJobNotRetryable
	}
	if err := s.repo.Requeue(ctx, id, job.ErrorMessage, time.Now()); err != nil {
		return nil, fmt.Errorf("requeueing parse job: %w", err)
	}

	log.Printf("parseJobService.Retry: job %s requeued after %d attempts", id, job.Attempts)
	job.Status = domain.JobStatusQueued
	s.dispatch(id)
	return job, nil
}

func (s *parseJobService) Result(ctx context.Context, id uuid.UUID) (*domain.ExtractionResult, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, domain.ErrJobNotFinished
	}
	result := domain.NewExtractionResult()
	if len(job.Result) > 0 {
		if err := json.Unmarshal(job.Result, result); err != nil {
			return nil, fmt.Errorf("decoding stored result: %w", err)
		}
	}
	return result, nil
}

// dispatch processes a job in the background when no queue worker runs.
func (s *parseJobService) dispatch(id uuid.UUID) {
	if s.cfg.QueueEnabled {
		return
	}
	go s.processInBackground(id)
}

func (s *parseJobService) processInBackground(id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ProcessTimeout)
	defer cancel()

	job, err := s.repo.Claim(ctx, id)
	if err != nil {
		log.Printf("parseJobService.processInBackground: failed to claim job %s: %v", id, err)
		return
	}
	// Without a worker a requeued job would never run again, so one attempt is final.
	s.Process(ctx, job, job.Attempts)
}

func (s *parseJobService) Process(ctx context.Context, job *domain.ParseJob, maxAttempts int) {
	html, err := s.loadMarkup(ctx, job)
	if err != nil {
		s.handleError(ctx, job, err, maxAttempts)
		return
	}

	outcome, err := s.pipeline.Run(ctx, html, domain.ParseOptions{
		Strategy:    job.Strategy,
		Cluster:     job.Cluster,
		IncludeText: job.IncludeText,
	})
	if err != nil {
		s.handleError(ctx, job, err, maxAttempts)
		return
	}

	resultJSON, err := json.Marshal(outcome.Result)
	if err != nil {
		s.handleError(ctx, job, fmt.Errorf("encoding result: %w", err), maxAttempts)
		return
	}
	statsJSON, _ := json.Marshal(outcome.Stats)
	job.Result = resultJSON
	job.Stats = statsJSON
	job.ModelUsed = outcome.ModelUsed

	// The run may have used up the job's deadline; saving must still happen.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.repo.MarkCompleted(saveCtx, job); err != nil {
		log.Printf("parseJobService.Process: failed to save results for %s: %v", job.ID, err)
		return
	}
	log.Printf("parseJobService.Process: job %s completed (%d records, attempt %d)",
		job.ID, outcome.Result.Total(), job.Attempts)
}

func (s *parseJobService) loadMarkup(ctx context.Context, job *domain.ParseJob) (string, error) {
	if job.Source == domain.JobSourceEmail {
		return job.HTML, nil
	}
	if s.storage == nil {
		return "", fmt.Errorf("%w: no object storage configured", domain.ErrRecognitionFailed)
	}

	if job.ContentType == "text/html" {
		body, err := s.storage.Download(ctx, job.FileKey)
		if err != nil {
			return "", fmt.Errorf("downloading file: %w", err)
		}
		return string(body), nil
	}

	if s.recognizer == nil {
		return "", fmt.Errorf("%w: no recognizer configured", domain.ErrRecognitionFailed)
	}
	url, err := s.storage.PresignGet(ctx, job.FileKey, s.cfg.PresignExpiry)
	if err != nil {
		return "", fmt.Errorf("presigning file: %w", err)
	}
	return s.recognizer.Recognize(ctx, url)
}

// handleError requeues transient failures while attempts remain and marks
// everything else as permanently failed.
func (s *parseJobService) handleError(ctx context.Context, job *domain.ParseJob, procErr error, maxAttempts int) {
	if retryAt, ok := retryTime(job, procErr); ok && job.Attempts < maxAttempts {
		msg := fmt.Sprintf("attempt %d failed, queued for retry: %v", job.Attempts, procErr)
		if err := s.repo.Requeue(ctx, job.ID, msg, retryAt); err != nil {
			log.Printf("parseJobService.handleError: failed to requeue job %s: %v", job.ID, err)
		} else {
			log.Printf("parseJobService.handleError: job %s requeued until %s: %v", job.ID, retryAt.Format(time.RFC3339), procErr)
		}
		return
	}

	log.Printf("parseJobService.handleError: job %s failed: %v", job.ID, procErr)
	// The processing context may be spent; persist the failure regardless.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.repo.MarkFailed(saveCtx, job.ID, procErr.Error()); err != nil {
		log.Printf("parseJobService.handleError: failed to mark job %s failed: %v", job.ID, err)
		return
	}

	if s.cfg.Notifier != nil {
		job.Status = domain.JobStatusFailed
		job.ErrorMessage = procErr.Error()
		if err := s.cfg.Notifier.NotifyJobFailed(saveCtx, job); err != nil {
			log.Printf("parseJobService.handleError: failure alert for job %s not sent: %v", job.ID, err)
		}
	}
}

// retryTime reports when a transient failure may be retried.
func retryTime(job *domain.ParseJob, err error) (time.Time, bool) {
	var rlErr *extractor.RateLimitError
	switch {
	case errors.As(err, &rlErr):
		return time.Now().Add(rlErr.RetryAfter), true
	case errors.Is(err, domain.ErrRecognitionFailed), errors.Is(err, context.DeadlineExceeded):
		return time.Now().Add(time.Duration(job.Attempts) * 30 * time.Second), true
	default:
		return time.Time{}, false
	}
}
