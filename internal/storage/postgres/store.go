// Package postgres implements storage.Store on PostgreSQL via sqlx.
// State transitions are conditional UPDATEs so the compare-and-swap happens
// in the database, not in a read-then-write on the client.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/orders-service/internal/domain"
	"github.com/cuongbtq/orders-service/internal/storage"
	"github.com/cuongbtq/orders-service/shared/postgresql"
)

const orderColumns = `id, user_id, item_id, start_date, end_date, state, total_rent, deposit, created_at, updated_at`

// Store is the PostgreSQL-backed storage.Store.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// New creates a Store on top of an established PostgreSQL client.
func New(pg *postgresql.Client, logger *slog.Logger) *Store {
	return &Store{
		db:     pg.GetDB(),
		logger: logger,
	}
}

// CreateOrder validates and inserts the order; the database assigns the
// monotonic ID and timestamps.
func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) error {
	if err := order.ValidateForCreate(); err != nil {
		return err
	}

	query := `
		INSERT INTO orders (user_id, item_id, start_date, end_date, state, total_rent, deposit)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, state, created_at, updated_at
	`

	err := s.db.QueryRowxContext(
		ctx,
		query,
		order.UserID,
		order.ItemID,
		order.StartDate,
		order.EndDate,
		domain.OrderStatePending,
		order.TotalRent,
		order.Deposit,
	).Scan(&order.ID, &order.State, &order.CreatedAt, &order.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

func (s *Store) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	var order domain.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	err := s.db.GetContext(ctx, &order, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &order, nil
}

func (s *Store) ListOrders(ctx context.Context, filter storage.OrderFilter) ([]domain.Order, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + orderColumns + ` FROM orders WHERE 1=1`)

	args := []interface{}{}
	argIdx := 1

	if filter.UserID != nil {
		fmt.Fprintf(&sb, " AND user_id = $%d", argIdx)
		args = append(args, *filter.UserID)
		argIdx++
	}
	if filter.ItemID != nil {
		fmt.Fprintf(&sb, " AND item_id = $%d", argIdx)
		args = append(args, *filter.ItemID)
		argIdx++
	}
	if filter.State != "" {
		fmt.Fprintf(&sb, " AND state = $%d", argIdx)
		args = append(args, filter.State)
		argIdx++
	}
	if filter.From != nil {
		fmt.Fprintf(&sb, " AND created_at >= $%d", argIdx)
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil {
		fmt.Fprintf(&sb, " AND created_at <= $%d", argIdx)
		args = append(args, *filter.To)
		argIdx++
	}

	sb.WriteString(" ORDER BY id ASC")

	orders := make([]domain.Order, 0)
	if err := s.db.SelectContext(ctx, &orders, sb.String(), args...); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return orders, nil
}

// TransitionOrder swaps the order state with a conditional UPDATE. Zero rows
// means either the order is unknown or it was not in the expected state; a
// follow-up lookup distinguishes the two.
func (s *Store) TransitionOrder(ctx context.Context, id int64, from, to string) (*domain.Order, error) {
	query := `
		UPDATE orders
		SET state = $1, updated_at = NOW()
		WHERE id = $2 AND state = $3
		RETURNING ` + orderColumns

	var order domain.Order
	err := s.db.QueryRowxContext(ctx, query, to, id, from).StructScan(&order)
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to transition order: %w", err)
	}

	if _, getErr := s.GetOrder(ctx, id); getErr != nil {
		return nil, getErr
	}

	s.logger.Warn("Order state transition rejected",
		slog.Int64("order_id", id),
		slog.String("from", from),
		slog.String("to", to),
	)
	return nil, domain.ErrConflict
}

// CreateJob registers a new QUEUED job for the order.
func (s *Store) CreateJob(ctx context.Context, orderID int64) (*domain.Job, error) {
	job := &domain.Job{
		ID:      uuid.New().String(),
		OrderID: orderID,
		Status:  domain.JobStatusQueued,
	}

	query := `
		INSERT INTO jobs (job_id, order_id, status, result)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.ExecContext(ctx, query, job.ID, job.OrderID, job.Status, job.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	return job, nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	var job domain.Job
	query := `SELECT job_id, order_id, status, result FROM jobs WHERE job_id = $1`

	err := s.db.GetContext(ctx, &job, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// ClaimJob moves a job QUEUED -> RUNNING with a conditional UPDATE, so at
// most one worker wins even when the broker redelivers.
func (s *Store) ClaimJob(ctx context.Context, id string) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1
		WHERE job_id = $2 AND status = $3
		RETURNING job_id, order_id, status, result
	`

	var job domain.Job
	err := s.db.QueryRowxContext(ctx, query, domain.JobStatusRunning, id, domain.JobStatusQueued).StructScan(&job)
	if err == nil {
		return &job, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	if _, getErr := s.GetJob(ctx, id); getErr != nil {
		return nil, getErr
	}

	return nil, domain.ErrJobAlreadyClaimed
}

// SetJobStatus records a terminal outcome. The WHERE clause keeps terminal
// jobs untouched, so redundant updates fail silently instead of corrupting a
// recorded result.
func (s *Store) SetJobStatus(ctx context.Context, id, status, result string) error {
	if !domain.IsTerminalJobStatus(status) {
		return nil
	}

	query := `
		UPDATE jobs
		SET status = $1, result = $2
		WHERE job_id = $3 AND status IN ($4, $5)
	`

	res, err := s.db.ExecContext(ctx, query, status, result, id,
		domain.JobStatusQueued, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if rows == 0 {
		// Unknown job, or the job is already terminal. The latter is a
		// silent no-op so a recorded result cannot be overwritten.
		if _, getErr := s.GetJob(ctx, id); getErr != nil {
			return getErr
		}
	}

	return nil
}

// AppendLog records an order state transition.
func (s *Store) AppendLog(ctx context.Context, entry *domain.TransitionLog) error {
	query := `
		INSERT INTO order_logs (order_id, from_state, to_state, timestamp)
		VALUES ($1, $2, $3, NOW())
		RETURNING log_id, timestamp
	`

	err := s.db.QueryRowxContext(ctx, query, entry.OrderID, entry.FromState, entry.ToState).
		Scan(&entry.LogID, &entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to append order log: %w", err)
	}

	return nil
}

func (s *Store) ListLogs(ctx context.Context, orderID int64) ([]domain.TransitionLog, error) {
	query := `
		SELECT log_id, order_id, from_state, to_state, timestamp
		FROM order_logs
		WHERE order_id = $1
		ORDER BY timestamp ASC, log_id ASC
	`

	logs := make([]domain.TransitionLog, 0)
	if err := s.db.SelectContext(ctx, &logs, query, orderID); err != nil {
		return nil, fmt.Errorf("failed to list order logs: %w", err)
	}

	return logs, nil
}
