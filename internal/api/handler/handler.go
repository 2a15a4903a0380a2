package handler

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/orders-service/internal/confirm"
	"github.com/cuongbtq/orders-service/internal/storage"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger     *slog.Logger
	Store      storage.Store
	Dispatcher confirm.Dispatcher

	// Health probes the storage backend; nil means nothing to probe.
	Health func(ctx context.Context) error
}

// OrderHandler handles order-related HTTP requests, including the confirm
// workflow entry point.
type OrderHandler struct {
	logger     *slog.Logger
	store      storage.Store
	dispatcher confirm.Dispatcher
}

// NewOrderHandler creates a new OrderHandler instance
func NewOrderHandler(deps *Dependencies) *OrderHandler {
	return &OrderHandler{
		logger:     deps.Logger,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
	}
}

// JobHandler handles job polling requests
type JobHandler struct {
	logger *slog.Logger
	store  storage.Store
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger: deps.Logger,
		store:  deps.Store,
	}
}
