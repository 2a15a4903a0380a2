package domain

import (
	"fmt"
	"time"
)

// Order states. An order is created PENDING; the confirm workflow moves it
// PENDING -> CONFIRMING -> CONFIRMED/FAILED. CONFIRMED, FAILED and CANCELLED
// are terminal.
const (
	OrderStatePending    = "pending"
	OrderStateConfirming = "confirming"
	OrderStateConfirmed  = "confirmed"
	OrderStateFailed     = "failed"
	OrderStateCancelled  = "cancelled"
)

// Order is a rental order for an item over a date range.
type Order struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	ItemID    int64     `db:"item_id"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	State     string    `db:"state"`
	TotalRent float64   `db:"total_rent"`
	Deposit   float64   `db:"deposit"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsValidOrderState reports whether s is a known order state.
func IsValidOrderState(s string) bool {
	switch s {
	case OrderStatePending, OrderStateConfirming, OrderStateConfirmed,
		OrderStateFailed, OrderStateCancelled:
		return true
	}
	return false
}

// IsTerminalOrderState reports whether s is a state that no workflow
// transitions out of.
func IsTerminalOrderState(s string) bool {
	switch s {
	case OrderStateConfirmed, OrderStateFailed, OrderStateCancelled:
		return true
	}
	return false
}

// ValidateForCreate checks the client-supplied fields of a new order.
func (o *Order) ValidateForCreate() error {
	if o.UserID <= 0 {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if o.ItemID <= 0 {
		return fmt.Errorf("%w: item_id is required", ErrValidation)
	}
	if o.StartDate.IsZero() {
		return fmt.Errorf("%w: start_date is required", ErrValidation)
	}
	if o.EndDate.IsZero() {
		return fmt.Errorf("%w: end_date is required", ErrValidation)
	}
	if o.EndDate.Before(o.StartDate) {
		return fmt.Errorf("%w: end_date must not precede start_date", ErrValidation)
	}
	return nil
}
