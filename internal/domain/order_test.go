package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValidOrderState(t *testing.T) {
	for _, state := range []string{
		OrderStatePending, OrderStateConfirming, OrderStateConfirmed,
		OrderStateFailed, OrderStateCancelled,
	} {
		assert.True(t, IsValidOrderState(state), "state %q", state)
	}

	for _, state := range []string{"", "PENDING", "done", "canceled"} {
		assert.False(t, IsValidOrderState(state), "state %q", state)
	}
}

func TestIsTerminalOrderState(t *testing.T) {
	assert.False(t, IsTerminalOrderState(OrderStatePending))
	assert.False(t, IsTerminalOrderState(OrderStateConfirming))
	assert.True(t, IsTerminalOrderState(OrderStateConfirmed))
	assert.True(t, IsTerminalOrderState(OrderStateFailed))
	assert.True(t, IsTerminalOrderState(OrderStateCancelled))
}

func TestIsTerminalJobStatus(t *testing.T) {
	assert.False(t, IsTerminalJobStatus(JobStatusQueued))
	assert.False(t, IsTerminalJobStatus(JobStatusRunning))
	assert.True(t, IsTerminalJobStatus(JobStatusSucceeded))
	assert.True(t, IsTerminalJobStatus(JobStatusFailed))
}

func TestOrder_ValidateForCreate(t *testing.T) {
	valid := func() *Order {
		return &Order{
			UserID:    1,
			ItemID:    10,
			StartDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
		}
	}

	t.Run("valid order", func(t *testing.T) {
		assert.NoError(t, valid().ValidateForCreate())
	})

	t.Run("single-day rental is valid", func(t *testing.T) {
		o := valid()
		o.EndDate = o.StartDate
		assert.NoError(t, o.ValidateForCreate())
	})

	tests := []struct {
		name   string
		mutate func(*Order)
	}{
		{"zero user_id", func(o *Order) { o.UserID = 0 }},
		{"negative user_id", func(o *Order) { o.UserID = -1 }},
		{"zero item_id", func(o *Order) { o.ItemID = 0 }},
		{"zero start_date", func(o *Order) { o.StartDate = time.Time{} }},
		{"zero end_date", func(o *Order) { o.EndDate = time.Time{} }},
		{"end before start", func(o *Order) {
			o.StartDate, o.EndDate = o.EndDate, o.StartDate
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.mutate(o)

			err := o.ValidateForCreate()
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}
