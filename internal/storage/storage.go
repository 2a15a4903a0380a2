// Package storage defines the persistence contracts shared by the API and
// worker services. Two implementations exist: memory (single process, used by
// the memory driver and by tests) and postgres.
package storage

import (
	"context"
	"time"

	"github.com/cuongbtq/orders-service/internal/domain"
)

// OrderFilter narrows ListOrders results. Nil/empty fields match everything;
// set fields combine with AND semantics.
type OrderFilter struct {
	UserID *int64
	ItemID *int64
	State  string
	// From/To bound the order's creation timestamp (inclusive).
	From *time.Time
	To   *time.Time
}

// OrderStore holds order records and their lifecycle state.
type OrderStore interface {
	// CreateOrder validates the client-supplied fields, assigns a fresh
	// monotonic ID and stores the order in state PENDING.
	CreateOrder(ctx context.Context, order *domain.Order) error

	GetOrder(ctx context.Context, id int64) (*domain.Order, error)

	// ListOrders returns a stable snapshot ordered by ascending order ID.
	ListOrders(ctx context.Context, filter OrderFilter) ([]domain.Order, error)

	// TransitionOrder performs an atomic compare-and-swap on the order state.
	// It returns domain.ErrConflict if the current state differs from `from`,
	// and domain.ErrOrderNotFound for unknown IDs. This CAS is the sole
	// serialization point guarding against double confirmation.
	TransitionOrder(ctx context.Context, id int64, from, to string) (*domain.Order, error)
}

// JobRegistry tracks asynchronous confirmation jobs and their outcomes.
type JobRegistry interface {
	// CreateJob registers a new QUEUED job for the given order.
	CreateJob(ctx context.Context, orderID int64) (*domain.Job, error)

	GetJob(ctx context.Context, id string) (*domain.Job, error)

	// ClaimJob atomically moves a job QUEUED -> RUNNING and returns it.
	// A job in any other status yields domain.ErrJobAlreadyClaimed, which is
	// what makes worker execution exactly-once under redelivery.
	ClaimJob(ctx context.Context, id string) (*domain.Job, error)

	// SetJobStatus records a terminal outcome (SUCCEEDED/FAILED) for a
	// RUNNING or QUEUED job. Transitions out of a terminal status, or any
	// backwards transition, are silent no-ops.
	SetJobStatus(ctx context.Context, id, status, result string) error
}

// LogStore keeps the order state transition history.
type LogStore interface {
	AppendLog(ctx context.Context, entry *domain.TransitionLog) error

	// ListLogs returns an order's transitions in chronological order.
	ListLogs(ctx context.Context, orderID int64) ([]domain.TransitionLog, error)
}

// Store is the full persistence surface used by the services.
type Store interface {
	OrderStore
	JobRegistry
	LogStore
}
