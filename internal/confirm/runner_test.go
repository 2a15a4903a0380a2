package confirm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/orders-service/internal/domain"
	"github.com/cuongbtq/orders-service/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// confirmingOrder creates an order, moves it to CONFIRMING and registers a
// queued job for it, mirroring what the confirm endpoint does before dispatch.
func confirmingOrder(t *testing.T, store *memory.Store) (*domain.Order, *domain.Job) {
	t.Helper()
	ctx := context.Background()

	order := &domain.Order{
		UserID:    1,
		ItemID:    10,
		StartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.CreateOrder(ctx, order))

	_, err := store.TransitionOrder(ctx, order.ID, domain.OrderStatePending, domain.OrderStateConfirming)
	require.NoError(t, err)

	job, err := store.CreateJob(ctx, order.ID)
	require.NoError(t, err)

	return order, job
}

func TestRunner_Run_Success(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	order, job := confirmingOrder(t, store)

	runner := NewRunner(store, NewSimulatedConfirmer(0), testLogger(), 0)
	require.NoError(t, runner.Run(ctx, job.ID))

	gotJob, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSucceeded, gotJob.Status)
	assert.Equal(t, "/orders/1", gotJob.Result)

	gotOrder, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateConfirmed, gotOrder.State)

	logs, err := store.ListLogs(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.OrderStateConfirming, logs[0].FromState)
	assert.Equal(t, domain.OrderStateConfirmed, logs[0].ToState)
}

func TestRunner_Run_ConfirmerFails(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	order, job := confirmingOrder(t, store)

	confirmer := ConfirmerFunc(func(ctx context.Context, order *domain.Order) error {
		return errors.New("upstream rejected the order")
	})

	runner := NewRunner(store, confirmer, testLogger(), 0)
	require.NoError(t, runner.Run(ctx, job.ID))

	gotJob, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, gotJob.Status)
	assert.Equal(t, "upstream rejected the order", gotJob.Result)

	gotOrder, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateFailed, gotOrder.State)
}

func TestRunner_Run_ConfirmerPanics(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	order, job := confirmingOrder(t, store)

	confirmer := ConfirmerFunc(func(ctx context.Context, order *domain.Order) error {
		panic("boom")
	})

	runner := NewRunner(store, confirmer, testLogger(), 0)
	require.NotPanics(t, func() {
		_ = runner.Run(ctx, job.ID)
	})

	gotJob, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, gotJob.Status)
	assert.Equal(t, domain.JobResultInternalError, gotJob.Result)

	gotOrder, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateFailed, gotOrder.State)
}

func TestRunner_Run_Timeout(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	order, job := confirmingOrder(t, store)

	// A confirmer slower than the runner's timeout.
	runner := NewRunner(store, NewSimulatedConfirmer(5*time.Second), testLogger(), 10*time.Millisecond)
	require.NoError(t, runner.Run(ctx, job.ID))

	gotJob, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, gotJob.Status)
	assert.Contains(t, gotJob.Result, "deadline exceeded")

	gotOrder, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateFailed, gotOrder.State)
}

func TestRunner_Run_OrderMissing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	// A job pointing at an order that was never created.
	job, err := store.CreateJob(ctx, 999)
	require.NoError(t, err)

	runner := NewRunner(store, NewSimulatedConfirmer(0), testLogger(), 0)
	require.NoError(t, runner.Run(ctx, job.ID))

	gotJob, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, gotJob.Status)
	assert.Equal(t, domain.JobResultOrderNotFound, gotJob.Result)
}

func TestRunner_Run_OrderNotConfirming(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	order := &domain.Order{
		UserID:    1,
		ItemID:    10,
		StartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.CreateOrder(ctx, order))

	// Still PENDING: the order was mutated out of band after dispatch.
	job, err := store.CreateJob(ctx, order.ID)
	require.NoError(t, err)

	runner := NewRunner(store, NewSimulatedConfirmer(0), testLogger(), 0)
	require.NoError(t, runner.Run(ctx, job.ID))

	gotJob, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, gotJob.Status)
	assert.Equal(t, domain.JobResultInvalidState, gotJob.Result)

	// The order itself is left alone; it was not CONFIRMING.
	gotOrder, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatePending, gotOrder.State)
}

func TestRunner_Run_ClaimErrors(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	_, job := confirmingOrder(t, store)

	runner := NewRunner(store, NewSimulatedConfirmer(0), testLogger(), 0)

	t.Run("unknown job", func(t *testing.T) {
		err := runner.Run(ctx, "b2c9f3f0-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})

	t.Run("already claimed", func(t *testing.T) {
		_, err := store.ClaimJob(ctx, job.ID)
		require.NoError(t, err)

		err = runner.Run(ctx, job.ID)
		assert.ErrorIs(t, err, domain.ErrJobAlreadyClaimed)

		var retryable *domain.RetryableError
		assert.False(t, errors.As(err, &retryable))
	})
}
