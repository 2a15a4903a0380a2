package domain

import "time"

// TransitionLog records a single order state change. Every mutation of an
// order's state appends one entry, including the initial pending -> pending
// entry written on creation.
type TransitionLog struct {
	LogID     int64     `db:"log_id"`
	OrderID   int64     `db:"order_id"`
	FromState string    `db:"from_state"`
	ToState   string    `db:"to_state"`
	Timestamp time.Time `db:"timestamp"`
}
