package dto

import (
	"fmt"
	"time"

	"github.com/cuongbtq/orders-service/internal/domain"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

type CreateOrderRequest struct {
	UserID    int64  `json:"user_id" binding:"required"`
	ItemID    int64  `json:"item_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

type ListOrdersRequest struct {
	UserID string `form:"userId"`
	ItemID string `form:"itemId"`
	State  string `form:"state"`
	From   string `form:"from"`
	To     string `form:"to"`
}

type UpdateOrderStateRequest struct {
	NewState string `json:"new_state" binding:"required"`
}

type OrderDTO struct {
	ID        int64             `json:"id"`
	UserID    int64             `json:"user_id"`
	ItemID    int64             `json:"item_id"`
	StartDate string            `json:"start_date"`
	EndDate   string            `json:"end_date"`
	State     string            `json:"state"`
	TotalRent float64           `json:"total_rent"`
	Deposit   float64           `json:"deposit"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
	Links     map[string]string `json:"links"`
}

// FromOrder maps a domain order to its API representation, including the
// related-resource links.
func FromOrder(o *domain.Order) OrderDTO {
	return OrderDTO{
		ID:        o.ID,
		UserID:    o.UserID,
		ItemID:    o.ItemID,
		StartDate: o.StartDate.Format(DateLayout),
		EndDate:   o.EndDate.Format(DateLayout),
		State:     o.State,
		TotalRent: o.TotalRent,
		Deposit:   o.Deposit,
		CreatedAt: o.CreatedAt.Format(time.RFC3339),
		UpdatedAt: o.UpdatedAt.Format(time.RFC3339),
		Links: map[string]string{
			"self": fmt.Sprintf("/orders/%d", o.ID),
			"user": fmt.Sprintf("/users/%d", o.UserID),
			"item": fmt.Sprintf("/items/%d", o.ItemID),
		},
	}
}

type OrderLogDTO struct {
	LogID     int64  `json:"log_id"`
	OrderID   int64  `json:"order_id"`
	FromState string `json:"from_state"`
	ToState   string `json:"to_state"`
	Timestamp string `json:"timestamp"`
}

func FromLog(l *domain.TransitionLog) OrderLogDTO {
	return OrderLogDTO{
		LogID:     l.LogID,
		OrderID:   l.OrderID,
		FromState: l.FromState,
		ToState:   l.ToState,
		Timestamp: l.Timestamp.Format(time.RFC3339),
	}
}
