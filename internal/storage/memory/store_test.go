package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/orders-service/internal/domain"
	"github.com/cuongbtq/orders-service/internal/storage"
)

func newTestOrder(userID, itemID int64) *domain.Order {
	return &domain.Order{
		UserID:    userID,
		ItemID:    itemID,
		StartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		TotalRent: 499.99,
		Deposit:   1000.00,
	}
}

func TestStore_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns monotonic IDs and pending state", func(t *testing.T) {
		store := New()

		first := newTestOrder(1, 10)
		require.NoError(t, store.CreateOrder(ctx, first))
		assert.Equal(t, int64(1), first.ID)
		assert.Equal(t, domain.OrderStatePending, first.State)
		assert.False(t, first.CreatedAt.IsZero())
		assert.Equal(t, first.CreatedAt, first.UpdatedAt)

		second := newTestOrder(2, 20)
		require.NoError(t, store.CreateOrder(ctx, second))
		assert.Equal(t, int64(2), second.ID)
	})

	t.Run("rejects invalid orders", func(t *testing.T) {
		store := New()

		tests := []struct {
			name   string
			mutate func(*domain.Order)
		}{
			{"missing user_id", func(o *domain.Order) { o.UserID = 0 }},
			{"missing item_id", func(o *domain.Order) { o.ItemID = 0 }},
			{"missing start_date", func(o *domain.Order) { o.StartDate = time.Time{} }},
			{"missing end_date", func(o *domain.Order) { o.EndDate = time.Time{} }},
			{"end before start", func(o *domain.Order) {
				o.StartDate, o.EndDate = o.EndDate, o.StartDate
			}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				order := newTestOrder(1, 10)
				tt.mutate(order)

				err := store.CreateOrder(ctx, order)
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrValidation)
			})
		}
	})
}

func TestStore_GetOrder(t *testing.T) {
	ctx := context.Background()
	store := New()

	order := newTestOrder(1, 10)
	require.NoError(t, store.CreateOrder(ctx, order))

	t.Run("returns a copy", func(t *testing.T) {
		got, err := store.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.ID, got.ID)

		// Mutating the returned order must not leak into the store.
		got.State = domain.OrderStateConfirmed

		again, err := store.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatePending, again.State)
	})

	t.Run("unknown ID", func(t *testing.T) {
		_, err := store.GetOrder(ctx, 999)
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})
}

func TestStore_ListOrders(t *testing.T) {
	ctx := context.Background()
	store := New()

	// Three orders: two for user 1 (items 10, 20), one for user 2 (item 10).
	o1 := newTestOrder(1, 10)
	o2 := newTestOrder(1, 20)
	o3 := newTestOrder(2, 10)
	for _, o := range []*domain.Order{o1, o2, o3} {
		require.NoError(t, store.CreateOrder(ctx, o))
	}
	_, err := store.TransitionOrder(ctx, o2.ID, domain.OrderStatePending, domain.OrderStateConfirming)
	require.NoError(t, err)

	int64Ptr := func(v int64) *int64 { return &v }

	tests := []struct {
		name    string
		filter  storage.OrderFilter
		wantIDs []int64
	}{
		{
			name:    "no filter returns everything ascending",
			filter:  storage.OrderFilter{},
			wantIDs: []int64{1, 2, 3},
		},
		{
			name:    "filter by user",
			filter:  storage.OrderFilter{UserID: int64Ptr(1)},
			wantIDs: []int64{1, 2},
		},
		{
			name:    "filter by item",
			filter:  storage.OrderFilter{ItemID: int64Ptr(10)},
			wantIDs: []int64{1, 3},
		},
		{
			name:    "filter by state",
			filter:  storage.OrderFilter{State: domain.OrderStateConfirming},
			wantIDs: []int64{2},
		},
		{
			name:    "combined filters",
			filter:  storage.OrderFilter{UserID: int64Ptr(1), ItemID: int64Ptr(20)},
			wantIDs: []int64{2},
		},
		{
			name:    "no match yields empty slice",
			filter:  storage.OrderFilter{UserID: int64Ptr(99)},
			wantIDs: []int64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, err := store.ListOrders(ctx, tt.filter)
			require.NoError(t, err)

			gotIDs := make([]int64, 0, len(orders))
			for _, o := range orders {
				gotIDs = append(gotIDs, o.ID)
			}
			assert.Equal(t, tt.wantIDs, gotIDs)
		})
	}

	t.Run("filter by creation window", func(t *testing.T) {
		past := time.Now().UTC().Add(-time.Hour)
		future := time.Now().UTC().Add(time.Hour)

		orders, err := store.ListOrders(ctx, storage.OrderFilter{From: &past, To: &future})
		require.NoError(t, err)
		assert.Len(t, orders, 3)

		orders, err = store.ListOrders(ctx, storage.OrderFilter{From: &future})
		require.NoError(t, err)
		assert.Empty(t, orders)

		orders, err = store.ListOrders(ctx, storage.OrderFilter{To: &past})
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

func TestStore_TransitionOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("swaps matching state", func(t *testing.T) {
		store := New()
		order := newTestOrder(1, 10)
		require.NoError(t, store.CreateOrder(ctx, order))

		updated, err := store.TransitionOrder(ctx, order.ID, domain.OrderStatePending, domain.OrderStateConfirming)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStateConfirming, updated.State)

		got, err := store.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStateConfirming, got.State)
	})

	t.Run("state mismatch yields conflict", func(t *testing.T) {
		store := New()
		order := newTestOrder(1, 10)
		require.NoError(t, store.CreateOrder(ctx, order))

		_, err := store.TransitionOrder(ctx, order.ID, domain.OrderStateConfirming, domain.OrderStateConfirmed)
		assert.ErrorIs(t, err, domain.ErrConflict)

		// The failed swap must leave the state untouched.
		got, err := store.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatePending, got.State)
	})

	t.Run("unknown order", func(t *testing.T) {
		store := New()
		_, err := store.TransitionOrder(ctx, 42, domain.OrderStatePending, domain.OrderStateConfirming)
		assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	})

	t.Run("concurrent swaps admit exactly one winner", func(t *testing.T) {
		store := New()
		order := newTestOrder(1, 10)
		require.NoError(t, store.CreateOrder(ctx, order))

		const attempts = 50
		var wg sync.WaitGroup
		var mu sync.Mutex
		winners := 0

		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.TransitionOrder(ctx, order.ID, domain.OrderStatePending, domain.OrderStateConfirming)
				if err == nil {
					mu.Lock()
					winners++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, winners)
	})
}

func TestStore_Jobs(t *testing.T) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		store := New()
		order := newTestOrder(1, 10)
		require.NoError(t, store.CreateOrder(ctx, order))

		job, err := store.CreateJob(ctx, order.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, job.ID)
		assert.Equal(t, order.ID, job.OrderID)
		assert.Equal(t, domain.JobStatusQueued, job.Status)

		got, err := store.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.ID, got.ID)
	})

	t.Run("unknown job", func(t *testing.T) {
		store := New()
		_, err := store.GetJob(ctx, "b2c9f3f0-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})

	t.Run("claim is exactly once", func(t *testing.T) {
		store := New()
		job, err := store.CreateJob(ctx, 1)
		require.NoError(t, err)

		claimed, err := store.ClaimJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusRunning, claimed.Status)

		_, err = store.ClaimJob(ctx, job.ID)
		assert.ErrorIs(t, err, domain.ErrJobAlreadyClaimed)
	})

	t.Run("claim unknown job", func(t *testing.T) {
		store := New()
		_, err := store.ClaimJob(ctx, "b2c9f3f0-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})
}

func TestStore_SetJobStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("records a terminal outcome", func(t *testing.T) {
		store := New()
		job, err := store.CreateJob(ctx, 1)
		require.NoError(t, err)
		_, err = store.ClaimJob(ctx, job.ID)
		require.NoError(t, err)

		err = store.SetJobStatus(ctx, job.ID, domain.JobStatusSucceeded, "/orders/1")
		require.NoError(t, err)

		got, err := store.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusSucceeded, got.Status)
		assert.Equal(t, "/orders/1", got.Result)
	})

	t.Run("non-terminal target is ignored", func(t *testing.T) {
		store := New()
		job, err := store.CreateJob(ctx, 1)
		require.NoError(t, err)

		err = store.SetJobStatus(ctx, job.ID, domain.JobStatusRunning, "")
		require.NoError(t, err)

		got, err := store.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusQueued, got.Status)
	})

	t.Run("terminal jobs never change", func(t *testing.T) {
		store := New()
		job, err := store.CreateJob(ctx, 1)
		require.NoError(t, err)

		require.NoError(t, store.SetJobStatus(ctx, job.ID, domain.JobStatusFailed, domain.JobResultInternalError))
		require.NoError(t, store.SetJobStatus(ctx, job.ID, domain.JobStatusSucceeded, "/orders/1"))

		got, err := store.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusFailed, got.Status)
		assert.Equal(t, domain.JobResultInternalError, got.Result)
	})

	t.Run("unknown job", func(t *testing.T) {
		store := New()
		err := store.SetJobStatus(ctx, "b2c9f3f0-0000-0000-0000-000000000000", domain.JobStatusFailed, "")
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})
}

func TestStore_Logs(t *testing.T) {
	ctx := context.Background()
	store := New()

	require.NoError(t, store.AppendLog(ctx, &domain.TransitionLog{
		OrderID:   1,
		FromState: domain.OrderStatePending,
		ToState:   domain.OrderStatePending,
	}))
	require.NoError(t, store.AppendLog(ctx, &domain.TransitionLog{
		OrderID:   1,
		FromState: domain.OrderStatePending,
		ToState:   domain.OrderStateConfirming,
	}))
	require.NoError(t, store.AppendLog(ctx, &domain.TransitionLog{
		OrderID:   2,
		FromState: domain.OrderStatePending,
		ToState:   domain.OrderStateCancelled,
	}))

	t.Run("returns transitions in append order", func(t *testing.T) {
		logs, err := store.ListLogs(ctx, 1)
		require.NoError(t, err)
		require.Len(t, logs, 2)

		assert.Equal(t, int64(1), logs[0].LogID)
		assert.Equal(t, domain.OrderStatePending, logs[0].ToState)
		assert.Equal(t, int64(2), logs[1].LogID)
		assert.Equal(t, domain.OrderStateConfirming, logs[1].ToState)
		assert.False(t, logs[0].Timestamp.IsZero())
	})

	t.Run("orders do not share histories", func(t *testing.T) {
		logs, err := store.ListLogs(ctx, 2)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Equal(t, domain.OrderStateCancelled, logs[0].ToState)
	})

	t.Run("unknown order yields empty history", func(t *testing.T) {
		logs, err := store.ListLogs(ctx, 99)
		require.NoError(t, err)
		assert.Empty(t, logs)
	})
}
