// Package memory provides an in-process storage.Store backed by maps. It is
// the implementation behind the `memory` storage driver and the fixture for
// handler and runner tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/orders-service/internal/domain"
	"github.com/cuongbtq/orders-service/internal/storage"
)

// Store keeps all records in memory behind a single mutex. The mutex makes
// every state transition a per-process atomic compare-and-swap, which is all
// the mutual exclusion the confirm workflow needs.
type Store struct {
	mu          sync.RWMutex
	orders      map[int64]*domain.Order
	jobs        map[string]*domain.Job
	logs        map[int64][]domain.TransitionLog
	nextOrderID int64
	nextLogID   int64
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		orders: make(map[int64]*domain.Order),
		jobs:   make(map[string]*domain.Job),
		logs:   make(map[int64][]domain.TransitionLog),
	}
}

// CreateOrder validates the order, assigns the next monotonic ID and stores
// it in state PENDING.
func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) error {
	if err := order.ValidateForCreate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextOrderID++
	now := time.Now().UTC()

	order.ID = s.nextOrderID
	order.State = domain.OrderStatePending
	order.CreatedAt = now
	order.UpdatedAt = now

	stored := *order
	s.orders[order.ID] = &stored
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}

	copied := *order
	return &copied, nil
}

func (s *Store) ListOrders(ctx context.Context, filter storage.OrderFilter) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0)
	for _, order := range s.orders {
		if !matches(order, filter) {
			continue
		}
		result = append(result, *order)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func matches(order *domain.Order, filter storage.OrderFilter) bool {
	if filter.UserID != nil && order.UserID != *filter.UserID {
		return false
	}
	if filter.ItemID != nil && order.ItemID != *filter.ItemID {
		return false
	}
	if filter.State != "" && order.State != filter.State {
		return false
	}
	if filter.From != nil && order.CreatedAt.Before(*filter.From) {
		return false
	}
	if filter.To != nil && order.CreatedAt.After(*filter.To) {
		return false
	}
	return true
}

// TransitionOrder swaps the order state from `from` to `to` atomically.
func (s *Store) TransitionOrder(ctx context.Context, id int64, from, to string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if order.State != from {
		return nil, domain.ErrConflict
	}

	order.State = to
	order.UpdatedAt = time.Now().UTC()

	copied := *order
	return &copied, nil
}

// CreateJob registers a new QUEUED job for the order.
func (s *Store) CreateJob(ctx context.Context, orderID int64) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &domain.Job{
		ID:      uuid.New().String(),
		OrderID: orderID,
		Status:  domain.JobStatusQueued,
	}
	s.jobs[job.ID] = job

	copied := *job
	return &copied, nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}

	copied := *job
	return &copied, nil
}

// ClaimJob moves a job QUEUED -> RUNNING, failing if another worker got there
// first.
func (s *Store) ClaimJob(ctx context.Context, id string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if job.Status != domain.JobStatusQueued {
		return nil, domain.ErrJobAlreadyClaimed
	}

	job.Status = domain.JobStatusRunning

	copied := *job
	return &copied, nil
}

// SetJobStatus records a terminal outcome. Terminal jobs are left untouched
// so redundant updates cannot corrupt an already-recorded result.
func (s *Store) SetJobStatus(ctx context.Context, id, status, result string) error {
	if !domain.IsTerminalJobStatus(status) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}
	if domain.IsTerminalJobStatus(job.Status) {
		return nil
	}

	job.Status = status
	job.Result = result
	return nil
}

// AppendLog records an order state transition.
func (s *Store) AppendLog(ctx context.Context, entry *domain.TransitionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextLogID++
	entry.LogID = s.nextLogID
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	s.logs[entry.OrderID] = append(s.logs[entry.OrderID], *entry)
	return nil
}

func (s *Store) ListLogs(ctx context.Context, orderID int64) ([]domain.TransitionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.logs[orderID]
	result := make([]domain.TransitionLog, len(entries))
	copy(result, entries)
	return result, nil
}
