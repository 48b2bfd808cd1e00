package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"freightrates/internal/cartesian"
	"freightrates/internal/config"
	"freightrates/internal/domain"
	"freightrates/internal/extractor"
	"freightrates/internal/port"
)

// maxRateLimitWait caps how long a provider's Retry-After may hold one batch.
const maxRateLimitWait = time.Minute

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleeper is the default Sleeper backed by a timer.
func ContextSleeper(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Report summarises one execution.
type Report struct {
	Batches       int
	FailedBatches int
	ModelUsed     string
	// RateLimited counts failed batches whose last attempt was rate limited.
	RateLimited int
	// LastRateLimit is the most recent rate-limit error among those batches.
	LastRateLimit *extractor.RateLimitError
}

// AllRateLimited reports whether every batch failed on a provider rate limit.
func (r Report) AllRateLimited() bool {
	return r.Batches > 0 && r.RateLimited == r.Batches
}

// Executor sends section rows to the extraction service in batches and
// accumulates the replies into prices, surcharges and remarks.
type Executor struct {
	svc   port.ExtractionService
	risk  *cartesian.Classifier
	cfg   config.BatchConfig
	sleep Sleeper
}

// Option configures an Executor.
type Option func(*Executor)

// WithSleeper replaces the retry backoff sleeper.
func WithSleeper(s Sleeper) Option {
	return func(e *Executor) { e.sleep = s }
}

// NewExecutor creates an Executor.
func NewExecutor(svc port.ExtractionService, cfg *config.BatchConfig, opts ...Option) *Executor {
	e := &Executor{
		svc:   svc,
		risk:  cartesian.NewClassifier(cfg),
		cfg:   *cfg,
		sleep: ContextSleeper,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the selected batching strategy over the sections.
func (e *Executor) Execute(ctx context.Context, strategy domain.BatchStrategy, sections []domain.Section) (*domain.ExtractionResult, Report, error) {
	switch strategy {
	case domain.StrategyRisk:
		return e.ExecuteSections(ctx, sections)
	case domain.StrategyFixed:
		return e.ExecuteFixed(ctx, sections)
	default:
		return nil, Report{}, fmt.Errorf("%w: %q", domain.ErrInvalidStrategy, strategy)
	}
}

// ExecuteSections batches rows by cartesian risk. High-risk rows are
// expanded into their single-valued combinations before batching. A failed
// batch contributes nothing; only cancellation stops the run.
func (e *Executor) ExecuteSections(ctx context.Context, sections []domain.Section) (*domain.ExtractionResult, Report, error) {
	acc := domain.NewExtractionResult()
	var report Report

	for si := range sections {
		sec := &sections[si]
		if len(sec.DataRows) == 0 {
			continue
		}

		entries := e.risk.Strategy(sec.DataRows)
		var pending []domain.Row
		start := 0
		for i, entry := range entries {
			if entry.Level == cartesian.LevelHighRisk {
				expanded := cartesian.ExpandRow(entry.Row)
				log.Printf("executor.ExecuteSections: %s row %d expanded into %d rows (cartesian count %d)",
					sec.ID, entry.RowIndex+1, len(expanded), entry.CartesianCount)
				pending = append(pending, expanded...)
			} else {
				pending = append(pending, entry.Row)
			}

			if len(pending) >= entry.BatchSize || i == len(entries)-1 {
				if err := e.flush(ctx, acc, &report, sec, pending, start, i+1); err != nil {
					return acc, report, err
				}
				pending = nil
				start = i + 1
			}
		}
	}
	return acc, report, nil
}

// ExecuteFixed sends data rows in fixed-size batches without risk analysis.
func (e *Executor) ExecuteFixed(ctx context.Context, sections []domain.Section) (*domain.ExtractionResult, Report, error) {
	acc := domain.NewExtractionResult()
	var report Report
	size := e.cfg.FixedSize

	for si := range sections {
		sec := &sections[si]
		for start := 0; start < len(sec.DataRows); start += size {
			end := start + size
			if end > len(sec.DataRows) {
				end = len(sec.DataRows)
			}
			if err := e.flush(ctx, acc, &report, sec, sec.DataRows[start:end], start, end); err != nil {
				return acc, report, err
			}
		}
	}
	return acc, report, nil
}

// flush sends one batch and routes its reply. rows [from, to) are the
// section's data-row positions, used only for logging.
func (e *Executor) flush(ctx context.Context, acc *domain.ExtractionResult, report *Report, sec *domain.Section, batch []domain.Row, from, to int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	began := time.Now()
	report.Batches++
	text := BuildContext(sec.Type, sec.HeaderRows, batch)

	result, model, err := e.callWithRetry(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		report.FailedBatches++
		var rlErr *extractor.RateLimitError
		if errors.As(err, &rlErr) {
			report.RateLimited++
			report.LastRateLimit = rlErr
		}
		log.Printf("executor.flush: %s rows %d-%d failed after %d attempts: %v", sec.ID, from+1, to, e.cfg.MaxRetries, err)
		return nil
	}

	report.ModelUsed = model
	route(acc, sec.Type, result)
	log.Printf("executor.flush: %s rows %d-%d processed in %s (%d prices, %d surcharges, %d remarks)",
		sec.ID, from+1, to, time.Since(began).Round(time.Millisecond),
		len(result.Prices), len(result.SurchargeItems), len(result.OtherRemarks))
	return nil
}

// callWithRetry invokes the service up to MaxRetries times. Transport errors
// and unrecoverable replies both count as failed attempts; attempt i waits
// BaseInterval * 2^i before the next one, or the provider's Retry-After when
// that is longer (capped at maxRateLimitWait).
func (e *Executor) callWithRetry(ctx context.Context, text string) (*domain.ExtractionResult, string, error) {
	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		out, err := e.svc.Extract(ctx, port.ExtractInput{Task: port.TaskExtractRates, Context: text})
		if err == nil {
			result, decodeErr := decodeResponse(out.Content)
			if decodeErr == nil {
				return result, out.ModelUsed, nil
			}
			err = decodeErr
		}
		lastErr = err
		log.Printf("executor.callWithRetry: attempt %d/%d failed: %v", attempt+1, e.cfg.MaxRetries, err)

		if attempt < e.cfg.MaxRetries-1 {
			wait := e.cfg.BaseInterval * time.Duration(1<<attempt)
			var rlErr *extractor.RateLimitError
			if errors.As(err, &rlErr) && rlErr.RetryAfter > wait {
				wait = min(rlErr.RetryAfter, maxRateLimitWait)
			}
			if err := e.sleep(ctx, wait); err != nil {
				return nil, "", err
			}
		}
	}
	return nil, "", lastErr
}
