package confirm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cuongbtq/orders-service/shared/rabbitmq"
)

// Dispatcher hands a queued job to the confirmation worker. The confirm
// endpoint only dispatches and returns; completion is observable solely by
// polling the job resource.
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID string) error
	Close() error
}

// jobMessage is the wire shape of a dispatched job.
type jobMessage struct {
	JobID string `json:"job_id"`
}

// LocalDispatcher runs confirmations on an in-process worker pool. It backs
// the embedded dispatch mode, where the API service is the only binary.
type LocalDispatcher struct {
	runner *Runner
	logger *slog.Logger
	jobs   chan string
	group  *errgroup.Group

	closeOnce sync.Once
	closeErr  error
}

// NewLocalDispatcher starts poolSize worker goroutines draining the dispatch
// channel.
func NewLocalDispatcher(runner *Runner, poolSize int, logger *slog.Logger) *LocalDispatcher {
	if poolSize <= 0 {
		poolSize = 1
	}

	d := &LocalDispatcher{
		runner: runner,
		logger: logger,
		jobs:   make(chan string, poolSize*2),
		group:  &errgroup.Group{},
	}

	for i := 0; i < poolSize; i++ {
		d.group.Go(d.workerLoop)
	}

	logger.Info("Local confirmation pool started",
		slog.Int("pool_size", poolSize),
	)
	return d
}

func (d *LocalDispatcher) workerLoop() error {
	for jobID := range d.jobs {
		// Detached from the request context on purpose: a dispatched job
		// runs to completion even after the confirm response was sent.
		if err := d.runner.Run(context.Background(), jobID); err != nil {
			d.logger.Warn("Dispatched job was not processed",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// Dispatch enqueues the job for the pool.
func (d *LocalDispatcher) Dispatch(ctx context.Context, jobID string) error {
	select {
	case d.jobs <- jobID:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to dispatch job %s: %w", jobID, ctx.Err())
	}
}

// Close drains the pool and waits for in-flight confirmations to finish.
func (d *LocalDispatcher) Close() error {
	d.closeOnce.Do(func() {
		close(d.jobs)
		d.closeErr = d.group.Wait()
	})
	return d.closeErr
}

// QueueDispatcher publishes jobs to RabbitMQ for the worker service.
type QueueDispatcher struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewQueueDispatcher creates a dispatcher on an established RabbitMQ client.
func NewQueueDispatcher(client *rabbitmq.Client, logger *slog.Logger) *QueueDispatcher {
	return &QueueDispatcher{
		client: client,
		logger: logger,
	}
}

// Dispatch publishes the job ID with the client's retry/backoff policy.
func (d *QueueDispatcher) Dispatch(ctx context.Context, jobID string) error {
	body, err := json.Marshal(jobMessage{JobID: jobID})
	if err != nil {
		return fmt.Errorf("failed to marshal job message: %w", err)
	}

	if err := d.client.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to dispatch job %s: %w", jobID, err)
	}

	d.logger.Debug("Job dispatched to queue",
		slog.String("job_id", jobID),
	)
	return nil
}

// Close is a no-op; the RabbitMQ client is owned by the caller.
func (d *QueueDispatcher) Close() error {
	return nil
}
