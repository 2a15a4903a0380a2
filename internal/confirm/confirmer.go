// Package confirm implements the asynchronous order confirmation workflow:
// the pluggable business step, the runner that executes one job end to end,
// and the dispatchers that hand jobs to a worker off the request path.
package confirm

import (
	"context"
	"time"

	"github.com/cuongbtq/orders-service/internal/domain"
)

// Confirmer is the externally-defined confirmation business step. Success or
// failure of Confirm is the only observable outcome; the runner translates it
// into job and order state.
type Confirmer interface {
	Confirm(ctx context.Context, order *domain.Order) error
}

// SimulatedConfirmer stands in for the real confirmation call. It waits for
// the configured delay and succeeds, unless the context is cancelled first.
type SimulatedConfirmer struct {
	delay time.Duration
}

// NewSimulatedConfirmer creates a confirmer that completes after delay.
func NewSimulatedConfirmer(delay time.Duration) *SimulatedConfirmer {
	return &SimulatedConfirmer{delay: delay}
}

func (c *SimulatedConfirmer) Confirm(ctx context.Context, order *domain.Order) error {
	select {
	case <-time.After(c.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConfirmerFunc adapts a function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, order *domain.Order) error

func (f ConfirmerFunc) Confirm(ctx context.Context, order *domain.Order) error {
	return f(ctx, order)
}
