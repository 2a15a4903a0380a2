package confirm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/orders-service/internal/domain"
	"github.com/cuongbtq/orders-service/internal/storage"
)

// Runner executes one confirmation job end to end: claim the job, run the
// Confirmer, then record the outcome in both the job registry and the order
// store. Outcomes are always recorded; business failures and panics end up as
// job FAILED + order FAILED, never as corrupted records.
type Runner struct {
	store     storage.Store
	confirmer Confirmer
	logger    *slog.Logger
	timeout   time.Duration
}

// NewRunner creates a Runner. timeout bounds a single confirmation attempt;
// zero means no bound.
func NewRunner(store storage.Store, confirmer Confirmer, logger *slog.Logger, timeout time.Duration) *Runner {
	return &Runner{
		store:     store,
		confirmer: confirmer,
		logger:    logger,
		timeout:   timeout,
	}
}

// Run processes the job with the given ID. It returns an error only when the
// job could not be claimed (unknown ID, or already claimed by another
// worker); once claimed, every path records a terminal outcome and returns
// nil so the caller can acknowledge the message.
func (r *Runner) Run(ctx context.Context, jobID string) error {
	job, err := r.store.ClaimJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyClaimed) || errors.Is(err, domain.ErrJobNotFound) {
			return err
		}
		// Transient claim failure, e.g. the database was unreachable. The
		// job is still QUEUED, so a redelivery can pick it up.
		return domain.NewRetryableError(fmt.Errorf("failed to claim job: %w", err))
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Confirmation panicked",
				slog.String("job_id", job.ID),
				slog.Int64("order_id", job.OrderID),
				slog.Any("panic", rec),
			)
			r.recordFailure(ctx, job, domain.JobResultInternalError)
		}
	}()

	order, err := r.store.GetOrder(ctx, job.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			r.finishJob(ctx, job.ID, domain.JobStatusFailed, domain.JobResultOrderNotFound)
			return nil
		}
		r.recordFailure(ctx, job, domain.JobResultInternalError)
		return nil
	}

	if order.State != domain.OrderStateConfirming {
		// The confirm endpoint moved the order to CONFIRMING before queueing
		// this job, so anything else means the order was mutated out of band.
		r.finishJob(ctx, job.ID, domain.JobStatusFailed, domain.JobResultInvalidState)
		return nil
	}

	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	if err := r.confirmer.Confirm(runCtx, order); err != nil {
		r.logger.Error("Confirmation failed",
			slog.String("job_id", job.ID),
			slog.Int64("order_id", job.OrderID),
			slog.String("error", err.Error()),
		)
		r.recordFailure(ctx, job, err.Error())
		return nil
	}

	if _, err := r.store.TransitionOrder(ctx, job.OrderID, domain.OrderStateConfirming, domain.OrderStateConfirmed); err != nil {
		r.finishJob(ctx, job.ID, domain.JobStatusFailed, domain.JobResultInvalidState)
		return nil
	}
	r.appendLog(ctx, job.OrderID, domain.OrderStateConfirming, domain.OrderStateConfirmed)

	r.finishJob(ctx, job.ID, domain.JobStatusSucceeded, fmt.Sprintf("/orders/%d", job.OrderID))

	r.logger.Info("Order confirmed",
		slog.String("job_id", job.ID),
		slog.Int64("order_id", job.OrderID),
	)
	return nil
}

// recordFailure marks the job FAILED and moves the order CONFIRMING -> FAILED.
func (r *Runner) recordFailure(ctx context.Context, job *domain.Job, result string) {
	r.finishJob(ctx, job.ID, domain.JobStatusFailed, result)

	if _, err := r.store.TransitionOrder(ctx, job.OrderID, domain.OrderStateConfirming, domain.OrderStateFailed); err != nil {
		if !errors.Is(err, domain.ErrConflict) && !errors.Is(err, domain.ErrOrderNotFound) {
			r.logger.Error("Failed to mark order as failed",
				slog.Int64("order_id", job.OrderID),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	r.appendLog(ctx, job.OrderID, domain.OrderStateConfirming, domain.OrderStateFailed)
}

func (r *Runner) finishJob(ctx context.Context, jobID, status, result string) {
	if err := r.store.SetJobStatus(ctx, jobID, status, result); err != nil {
		r.logger.Error("Failed to record job outcome",
			slog.String("job_id", jobID),
			slog.String("status", status),
			slog.String("error", err.Error()),
		)
	}
}

func (r *Runner) appendLog(ctx context.Context, orderID int64, from, to string) {
	entry := &domain.TransitionLog{
		OrderID:   orderID,
		FromState: from,
		ToState:   to,
	}
	if err := r.store.AppendLog(ctx, entry); err != nil {
		r.logger.Error("Failed to append transition log",
			slog.Int64("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
}
