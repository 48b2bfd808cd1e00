package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"freightrates/internal/cartesian"
	"freightrates/internal/classify"
	"freightrates/internal/config"
	"freightrates/internal/domain"
	"freightrates/internal/executor"
	"freightrates/internal/markup"
	"freightrates/internal/port"
	"freightrates/internal/section"
)

// PipelineService turns one marked-up document into extracted rate records.
type PipelineService interface {
	// Run executes the full pipeline and expands multi-value port fields.
	Run(ctx context.Context, html string, opts domain.ParseOptions) (*domain.ParseOutcome, error)
	// Sections runs everything up to classification, without batch extraction.
	Sections(ctx context.Context, html string, opts domain.ParseOptions) ([]domain.Section, *domain.ParseStats, error)
}

type pipelineService struct {
	splitter        *section.Splitter
	classifier      *classify.Classifier
	executor        *executor.Executor
	clusterer       *TableClusterer
	defaultStrategy domain.BatchStrategy
}

// NewPipelineService creates a PipelineService backed by the given extraction service.
func NewPipelineService(
	svc port.ExtractionService,
	tableCfg *config.TableConfig,
	batchCfg *config.BatchConfig,
	opts ...executor.Option,
) PipelineService {
	return &pipelineService{
		splitter:        section.NewSplitter(tableCfg),
		classifier:      classify.NewClassifier(tableCfg),
		executor:        executor.NewExecutor(svc, batchCfg, opts...),
		clusterer:       NewTableClusterer(svc),
		defaultStrategy: domain.BatchStrategy(batchCfg.DefaultStrategy),
	}
}

func (s *pipelineService) Run(ctx context.Context, html string, opts domain.ParseOptions) (*domain.ParseOutcome, error) {
	began := time.Now()

	sections, stats, err := s.Sections(ctx, html, opts)
	if err != nil {
		return nil, err
	}

	outcome := &domain.ParseOutcome{Result: domain.NewExtractionResult()}
	if len(sections) > 0 {
		result, report, err := s.executor.Execute(ctx, stats.Strategy, sections)
		if err != nil {
			return nil, err
		}
		if report.AllRateLimited() {
			return nil, fmt.Errorf("all %d batches rate limited: %w", report.Batches, report.LastRateLimit)
		}
		outcome.Result = cartesian.ExpandResult(result)
		outcome.ModelUsed = report.ModelUsed
		stats.Batches = report.Batches
		stats.FailedBatches = report.FailedBatches
	}

	stats.ElapsedMS = time.Since(began).Milliseconds()
	outcome.Stats = *stats

	log.Printf("pipelineService.Run: %d sections, %d batches (%d failed), %d prices, %d surcharges, %d remarks in %dms",
		stats.Sections, stats.Batches, stats.FailedBatches,
		len(outcome.Result.Prices), len(outcome.Result.SurchargeItems), len(outcome.Result.OtherRemarks), stats.ElapsedMS)
	return outcome, nil
}

func (s *pipelineService) Sections(ctx context.Context, html string, opts domain.ParseOptions) ([]domain.Section, *domain.ParseStats, error) {
	strategy := opts.Strategy
	if strategy == "" {
		strategy = s.defaultStrategy
	}
	if !strategy.Valid() {
		return nil, nil, fmt.Errorf("%w: %q", domain.ErrInvalidStrategy, strategy)
	}
	stats := &domain.ParseStats{Strategy: strategy, SectionsByType: map[domain.TableType]int{}}

	if strings.TrimSpace(html) == "" {
		return nil, stats, nil
	}

	doc, err := markup.Parse(markup.TruncateThread(html))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing markup: %w", err)
	}
	stats.Tables = len(doc.Tables)
	stats.TextBlocks = len(doc.Texts)

	var sections []domain.Section
	if opts.Cluster && len(doc.Tables) > 0 {
		clustered, err := s.clusterer.Cluster(ctx, doc.Tables)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			log.Printf("pipelineService.Sections: clustering failed, using split sections: %v", err)
		} else {
			sections = clustered
			stats.Clustered = true
			// Clustered rows are already grouped; risk expansion would split them again.
			stats.Strategy = domain.StrategyFixed
		}
	}
	if !stats.Clustered {
		for _, t := range doc.Tables {
			for j, sec := range s.splitter.Split(t.Grid) {
				sec.ID = fmt.Sprintf("table_%d_%d", t.Index, j)
				sections = append(sections, sec)
			}
		}
	}

	for i := range sections {
		sec := &sections[i]
		label := sec.Type
		sec.Type = s.classifier.Classify(sec).Type
		if sec.Type == domain.TableTypeUnknown && label != "" && label != domain.TableTypeUnknown {
			sec.Type = label
		}
	}

	if opts.IncludeText && len(doc.Texts) > 0 {
		rows := make([]domain.Row, len(doc.Texts))
		for i, text := range doc.Texts {
			rows[i] = domain.Row{text}
		}
		sections = append(sections, domain.Section{ID: "text_0", DataRows: rows, Type: domain.TableTypeRemark})
	}

	for _, sec := range sections {
		stats.SectionsByType[sec.Type]++
	}
	stats.Sections = len(sections)
	return sections, stats, nil
}
