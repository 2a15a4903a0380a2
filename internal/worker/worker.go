// Package worker consumes confirmation jobs from RabbitMQ and executes them
// on a pool of goroutines via the confirm runner.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/cuongbtq/orders-service/internal/confirm"
	"github.com/cuongbtq/orders-service/shared/rabbitmq"
)

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Runner        *confirm.Runner
	Concurrency   int
	PrefetchCount int
}

// jobMessage is one consumed delivery: the job to run plus the delivery tag
// needed to ack or nack it.
type jobMessage struct {
	JobID       string
	DeliveryTag uint64
}

// Worker represents the confirmation worker service
type Worker struct {
	logger        *slog.Logger
	rabbitClient  *rabbitmq.Client
	runner        *confirm.Runner
	concurrency   int
	prefetchCount int
	workerID      string
	jobsChan      chan *jobMessage
	wg            sync.WaitGroup
	stopChan      chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}

	return &Worker{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		runner:        cfg.Runner,
		concurrency:   concurrency,
		prefetchCount: prefetch,
		workerID:      fmt.Sprintf("confirm-worker-%s", uuid.New().String()[:8]),
		jobsChan:      make(chan *jobMessage),
		stopChan:      make(chan struct{}),
	}
}

// Start consumes deliveries and processes them until the context is
// cancelled. It blocks for the lifetime of the worker.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Int("prefetch_count", w.prefetchCount),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to set up consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
