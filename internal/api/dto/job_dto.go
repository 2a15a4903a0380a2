package dto

import "github.com/cuongbtq/orders-service/internal/domain"

type JobDTO struct {
	ID      string `json:"id"`
	OrderID int64  `json:"order_id"`
	Status  string `json:"status"`
	Result  string `json:"result,omitempty"`
}

func FromJob(j *domain.Job) JobDTO {
	return JobDTO{
		ID:      j.ID,
		OrderID: j.OrderID,
		Status:  j.Status,
		Result:  j.Result,
	}
}

// ConfirmAcceptedResponse is the 202 body returned when a confirmation job
// was queued.
type ConfirmAcceptedResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}
