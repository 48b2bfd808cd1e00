package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"freightrates/internal/auth"
	"freightrates/internal/config"
	"freightrates/internal/domain"
	"freightrates/internal/extractor"
	"freightrates/internal/extractor/providers"
	"freightrates/internal/handler"
	"freightrates/internal/notify/noop"
	sesnotify "freightrates/internal/notify/ses"
	"freightrates/internal/port"
	"freightrates/internal/recognizer/textin"
	"freightrates/internal/repository/postgres"
	"freightrates/internal/router"
	"freightrates/internal/service"
	s3storage "freightrates/internal/storage/s3"
)

// @title Freight Rates API
// @version 1.0
// @description Extracts ocean freight prices, surcharges and remarks from carrier rate e-mails.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the token.
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLogger(&cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	jobRepo := postgres.NewParseJobRepo(db)

	// Initialize storage
	var storage port.ObjectStorage
	if cfg.S3.Bucket != "" {
		s3Client, err := s3storage.NewClient(ctx, &cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		storage = s3Client
	}

	var recognizer port.DocumentRecognizer
	if cfg.Recognizer.AppID != "" {
		recognizer = textin.NewRecognizer(&cfg.Recognizer)
	} else {
		log.Printf("server: recognizer not configured; PDF and image uploads will fail")
	}

	notifier, err := newNotifier(ctx, &cfg.Notify)
	if err != nil {
		return err
	}

	// Initialize extraction providers
	providers.RegisterAll()
	extractSvc, err := extractor.NewFromConfig(&cfg.Extractor)
	if err != nil {
		return fmt.Errorf("failed to initialize extraction service: %w", err)
	}

	// Initialize services
	pipelineSvc := service.NewPipelineService(extractSvc, &cfg.Table, &cfg.Batch)
	jobSvc := service.NewParseJobService(jobRepo, storage, recognizer, pipelineSvc, service.ParseJobConfig{
		QueueEnabled:    cfg.Queue.Enabled,
		MaxAttempts:     cfg.Queue.MaxRetries,
		MaxFileSizeMB:   cfg.S3.MaxFileSizeMB,
		PresignExpiry:   time.Duration(cfg.S3.PresignExpiry) * time.Second,
		ProcessTimeout:  cfg.Server.RequestTimeout,
		DefaultStrategy: domain.BatchStrategy(cfg.Batch.DefaultStrategy),
		Notifier:        notifier,
	})

	// Start the queue worker
	workerDone := make(chan struct{})
	if cfg.Queue.Enabled {
		worker := service.NewParseQueueWorker(jobRepo, jobSvc, service.ParseQueueConfig{
			PollInterval:   time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
			MaxRetries:     cfg.Queue.MaxRetries,
			Concurrency:    cfg.Queue.Concurrency,
			ProcessTimeout: cfg.Server.RequestTimeout,
		})
		go func() {
			worker.Start(ctx)
			close(workerDone)
		}()
	} else {
		close(workerDone)
	}

	var validator auth.TokenValidator
	if cfg.Auth.Enabled {
		validator = auth.NewTokenService(&cfg.Auth)
	}

	// Initialize handlers
	parseH := handler.NewParseHandler(pipelineSvc, jobSvc)
	jobH := handler.NewJobHandler(jobSvc)
	healthH := handler.NewHealthHandler(db)

	r := router.Setup(cfg, validator, parseH, jobH, healthH)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s (extractor mode=%s, queue=%v, auth=%v)",
			cfg.Server.Port, cfg.Extractor.Mode, cfg.Queue.Enabled, cfg.Auth.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			stop()
			<-workerDone
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Printf("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: graceful shutdown failed: %v", err)
	}
	<-workerDone
	return nil
}

func newNotifier(ctx context.Context, cfg *config.NotifyConfig) (port.JobNotifier, error) {
	switch cfg.Provider {
	case "ses":
		n, err := sesnotify.NewNotifier(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SES notifier: %w", err)
		}
		return n, nil
	case "log":
		return noop.NewNotifier(cfg.DashboardURL), nil
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown notify.provider %q", cfg.Provider)
	}
}

// setupLogger installs a slog default handler; the standard log package
// writes through it afterwards.
func setupLogger(cfg *config.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}
