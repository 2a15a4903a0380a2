package domain

// Job statuses. A job is created QUEUED, claimed into RUNNING by exactly one
// worker, and finishes SUCCEEDED or FAILED. Terminal statuses never change.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// Well-known job results recorded on failure.
const (
	JobResultOrderNotFound = "order_not_found"
	JobResultInvalidState  = "invalid_state"
	JobResultInternalError = "internal_error"
)

// Job tracks one asynchronous confirmation attempt for an order.
// Job IDs are UUIDs and live in a namespace independent of order IDs.
type Job struct {
	ID      string `db:"job_id"`
	OrderID int64  `db:"order_id"`
	Status  string `db:"status"`
	// Result is a link to the order on success, or a short failure note.
	Result string `db:"result"`
}

// IsTerminalJobStatus reports whether s is a final job status.
func IsTerminalJobStatus(s string) bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}
