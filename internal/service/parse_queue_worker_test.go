package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"freightrates/internal/domain"
	"freightrates/internal/service"
	"freightrates/mocks"
)

func runWorker(worker *service.ParseQueueWorker, d time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()
	time.Sleep(d)
	cancel()
	<-done
}

func TestParseQueueWorker_PollsAndDispatchesJobs(t *testing.T) {
	jobRepo := new(mocks.MockParseJobRepo)
	jobSvc := new(mocks.MockParseJobService)

	job := domain.ParseJob{
		ID:       uuid.New(),
		Source:   domain.JobSourceEmail,
		Status:   domain.JobStatusProcessing,
		Attempts: 1,
	}

	jobRepo.On("RecoverStale", mock.Anything, mock.AnythingOfType("time.Time")).Return(0, nil)
	jobRepo.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.ParseJob{job}, nil).Once()
	jobRepo.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.ParseJob{}, nil).Maybe()
	jobSvc.On("Process", mock.Anything, mock.AnythingOfType("*domain.ParseJob"), 5).Return().Maybe()

	worker := service.NewParseQueueWorker(jobRepo, jobSvc, service.ParseQueueConfig{
		PollInterval: 50 * time.Millisecond,
		MaxRetries:   5,
		Concurrency:  2,
	})
	runWorker(worker, 200*time.Millisecond)

	jobRepo.AssertCalled(t, "RecoverStale", mock.Anything, mock.AnythingOfType("time.Time"))
	jobRepo.AssertCalled(t, "ClaimQueued", mock.Anything, mock.AnythingOfType("int"))
	jobSvc.AssertCalled(t, "Process", mock.Anything, mock.MatchedBy(func(j *domain.ParseJob) bool {
		return j.ID == job.ID && j.Attempts == 1
	}), 5)
}

func TestParseQueueWorker_RespectsConcurrencyCap(t *testing.T) {
	jobRepo := new(mocks.MockParseJobRepo)
	jobSvc := new(mocks.MockParseJobService)

	cfg := service.ParseQueueConfig{
		PollInterval: 50 * time.Millisecond,
		MaxRetries:   5,
		Concurrency:  2,
	}

	jobRepo.On("RecoverStale", mock.Anything, mock.Anything).Return(0, nil)
	jobRepo.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.ParseJob{}, nil).Maybe()

	runWorker(service.NewParseQueueWorker(jobRepo, jobSvc, cfg), 150*time.Millisecond)

	for _, call := range jobRepo.Calls {
		if call.Method == "ClaimQueued" {
			limit := call.Arguments.Get(1).(int)
			assert.LessOrEqual(t, limit, cfg.Concurrency)
		}
	}
}

func TestParseQueueWorker_ContinuesAfterErrors(t *testing.T) {
	jobRepo := new(mocks.MockParseJobRepo)
	jobSvc := new(mocks.MockParseJobService)

	jobRepo.On("RecoverStale", mock.Anything, mock.Anything).Return(0, errors.New("db down"))
	jobRepo.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return(nil, errors.New("db down")).Twice()
	jobRepo.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.ParseJob{}, nil).Maybe()

	worker := service.NewParseQueueWorker(jobRepo, jobSvc, service.ParseQueueConfig{
		PollInterval: 30 * time.Millisecond,
		MaxRetries:   3,
		Concurrency:  1,
	})
	runWorker(worker, 200*time.Millisecond)

	claims := 0
	for _, call := range jobRepo.Calls {
		if call.Method == "ClaimQueued" {
			claims++
		}
	}
	assert.GreaterOrEqual(t, claims, 3)
	jobSvc.AssertNotCalled(t, "Process", mock.Anything, mock.Anything, mock.Anything)
}

func TestParseQueueWorker_WaitsForInFlightJobs(t *testing.T) {
	jobRepo := new(mocks.MockParseJobRepo)
	jobSvc := new(mocks.MockParseJobService)

	jobRepo.On("RecoverStale", mock.Anything, mock.Anything).Return(0, nil)
	jobRepo.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.ParseJob{{ID: uuid.New(), Attempts: 1}}, nil).Once()
	jobRepo.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.ParseJob{}, nil).Maybe()

	finished := make(chan struct{})
	jobSvc.On("Process", mock.Anything, mock.Anything, 3).
		Run(func(mock.Arguments) {
			time.Sleep(150 * time.Millisecond)
			close(finished)
		}).Return()

	worker := service.NewParseQueueWorker(jobRepo, jobSvc, service.ParseQueueConfig{
		PollInterval: 20 * time.Millisecond,
		MaxRetries:   3,
		Concurrency:  1,
	})
	runWorker(worker, 60*time.Millisecond)

	select {
	case <-finished:
	default:
		t.Fatal("Start returned before the in-flight job finished")
	}
}
