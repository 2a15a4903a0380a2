package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/orders-service/internal/api/dto"
	"github.com/cuongbtq/orders-service/internal/domain"
	"github.com/cuongbtq/orders-service/internal/storage"
)

// Pricing is not modelled; the amounts are fixed placeholders until a
// billing integration exists.
const (
	placeholderTotalRent = 499.99
	placeholderDeposit   = 1000.00
)

// CreateOrder handles POST /orders
// Creates a new order in state PENDING and returns 201 with a Location
// header pointing at the order resource.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	startDate, err := time.Parse(dto.DateLayout, req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "start_date must be formatted as YYYY-MM-DD",
		})
		return
	}

	endDate, err := time.Parse(dto.DateLayout, req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "end_date must be formatted as YYYY-MM-DD",
		})
		return
	}

	order := &domain.Order{
		UserID:    req.UserID,
		ItemID:    req.ItemID,
		StartDate: startDate,
		EndDate:   endDate,
		TotalRent: placeholderTotalRent,
		Deposit:   placeholderDeposit,
	}

	if err := h.store.CreateOrder(c.Request.Context(), order); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		h.logger.Error("Failed to create order", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create order",
		})
		return
	}

	// Initial log entry: pending -> pending.
	h.appendLog(c, order.ID, domain.OrderStatePending, domain.OrderStatePending)

	h.logger.Info("Order created",
		slog.Int64("order_id", order.ID),
		slog.Int64("user_id", order.UserID),
		slog.Int64("item_id", order.ItemID),
	)

	c.Header("Location", fmt.Sprintf("/orders/%d", order.ID))
	c.JSON(http.StatusCreated, dto.FromOrder(order))
}

// ListOrders handles GET /orders
// Filters: userId, itemId, state, plus from/to bounds on the creation time.
// All filters are optional and combine with AND semantics.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	filter := storage.OrderFilter{}

	if req.UserID != "" {
		userID, err := strconv.ParseInt(req.UserID, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "userId must be an integer"})
			return
		}
		filter.UserID = &userID
	}

	if req.ItemID != "" {
		itemID, err := strconv.ParseInt(req.ItemID, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "itemId must be an integer"})
			return
		}
		filter.ItemID = &itemID
	}

	if req.State != "" {
		if !domain.IsValidOrderState(req.State) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown order state"})
			return
		}
		filter.State = req.State
	}

	if req.From != "" {
		from, err := time.Parse(time.RFC3339, req.From)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be an RFC 3339 timestamp"})
			return
		}
		filter.From = &from
	}

	if req.To != "" {
		to, err := time.Parse(time.RFC3339, req.To)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be an RFC 3339 timestamp"})
			return
		}
		filter.To = &to
	}

	orders, err := h.store.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list orders", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list orders",
		})
		return
	}

	response := make([]dto.OrderDTO, len(orders))
	for i := range orders {
		response[i] = dto.FromOrder(&orders[i])
	}

	c.JSON(http.StatusOK, response)
}

// GetOrder handles GET /orders/:order_id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.store.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		h.logger.Error("Failed to get order", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get order",
		})
		return
	}

	c.JSON(http.StatusOK, dto.FromOrder(order))
}

// ConfirmOrder handles POST /orders/:order_id/confirm
// Moves the order PENDING -> CONFIRMING with an atomic compare-and-swap,
// queues a confirmation job and returns 202 with a Location header pointing
// at the job resource. Any order not in PENDING yields 400, which is what
// rejects a second confirm attempt regardless of the first one's outcome.
func (h *OrderHandler) ConfirmOrder(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	if _, err := h.store.TransitionOrder(ctx, orderID, domain.OrderStatePending, domain.OrderStateConfirming); err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, domain.ErrConflict):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Only pending orders can be confirmed"})
		default:
			h.logger.Error("Failed to transition order", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm order"})
		}
		return
	}

	h.appendLog(c, orderID, domain.OrderStatePending, domain.OrderStateConfirming)

	job, err := h.store.CreateJob(ctx, orderID)
	if err != nil {
		h.logger.Error("Failed to create confirmation job",
			slog.Int64("order_id", orderID),
			slog.String("error", err.Error()),
		)
		// Roll the order back so a later confirm attempt can still run.
		if _, rbErr := h.store.TransitionOrder(ctx, orderID, domain.OrderStateConfirming, domain.OrderStatePending); rbErr != nil {
			h.logger.Error("Failed to roll back order state", slog.String("error", rbErr.Error()))
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm order"})
		return
	}

	if err := h.dispatcher.Dispatch(ctx, job.ID); err != nil {
		h.logger.Error("Failed to dispatch confirmation job",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		if sErr := h.store.SetJobStatus(ctx, job.ID, domain.JobStatusFailed, domain.JobResultInternalError); sErr != nil {
			h.logger.Error("Failed to record job failure", slog.String("error", sErr.Error()))
		}
		if _, tErr := h.store.TransitionOrder(ctx, orderID, domain.OrderStateConfirming, domain.OrderStateFailed); tErr == nil {
			h.appendLog(c, orderID, domain.OrderStateConfirming, domain.OrderStateFailed)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm order"})
		return
	}

	h.logger.Info("Confirmation job queued",
		slog.Int64("order_id", orderID),
		slog.String("job_id", job.ID),
	)

	c.Header("Location", fmt.Sprintf("/jobs/%s", job.ID))
	c.JSON(http.StatusAccepted, dto.ConfirmAcceptedResponse{
		JobID:  job.ID,
		Status: job.Status,
	})
}

// CancelOrder handles DELETE /orders/:order_id
// Only pending orders may be cancelled.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	if _, err := h.store.TransitionOrder(c.Request.Context(), orderID, domain.OrderStatePending, domain.OrderStateCancelled); err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		case errors.Is(err, domain.ErrConflict):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot cancel non-pending order"})
		default:
			h.logger.Error("Failed to cancel order", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel order"})
		}
		return
	}

	h.appendLog(c, orderID, domain.OrderStatePending, domain.OrderStateCancelled)

	h.logger.Info("Order cancelled", slog.Int64("order_id", orderID))
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully"})
}

// UpdateOrderState handles PATCH /orders/:order_id/status
// Admin override of the order state. Terminal states are immutable and
// CONFIRMING is reserved to the confirm workflow, in both directions.
func (h *OrderHandler) UpdateOrderState(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	var req dto.UpdateOrderStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if !domain.IsValidOrderState(req.NewState) || req.NewState == domain.OrderStateConfirming {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target state"})
		return
	}

	ctx := c.Request.Context()

	order, err := h.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		h.logger.Error("Failed to get order", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}

	if domain.IsTerminalOrderState(order.State) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Cannot update terminal state %q", order.State),
		})
		return
	}
	if order.State == domain.OrderStateConfirming {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Confirmation in progress"})
		return
	}

	if order.State == req.NewState {
		c.JSON(http.StatusOK, dto.FromOrder(order))
		return
	}

	updated, err := h.store.TransitionOrder(ctx, orderID, order.State, req.NewState)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Order state changed concurrently"})
			return
		}
		h.logger.Error("Failed to update order state", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}

	h.appendLog(c, orderID, order.State, req.NewState)

	h.logger.Info("Order state updated",
		slog.Int64("order_id", orderID),
		slog.String("from", order.State),
		slog.String("to", req.NewState),
	)

	c.JSON(http.StatusOK, dto.FromOrder(updated))
}

// GetOrderLogs handles GET /orders/:order_id/logs
// Returns the order's state transition history.
func (h *OrderHandler) GetOrderLogs(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	if _, err := h.store.GetOrder(ctx, orderID); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		h.logger.Error("Failed to get order", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get order logs"})
		return
	}

	logs, err := h.store.ListLogs(ctx, orderID)
	if err != nil {
		h.logger.Error("Failed to list order logs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get order logs"})
		return
	}

	response := make([]dto.OrderLogDTO, len(logs))
	for i := range logs {
		response[i] = dto.FromLog(&logs[i])
	}

	c.JSON(http.StatusOK, response)
}

// parseOrderID extracts the numeric order ID from the path, writing a 400
// response when it is malformed.
func (h *OrderHandler) parseOrderID(c *gin.Context) (int64, bool) {
	orderID, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "order_id must be a positive integer",
		})
		return 0, false
	}
	return orderID, true
}

// appendLog records an order state transition; log failures are reported but
// never fail the request.
func (h *OrderHandler) appendLog(c *gin.Context, orderID int64, from, to string) {
	entry := &domain.TransitionLog{
		OrderID:   orderID,
		FromState: from,
		ToState:   to,
	}
	if err := h.store.AppendLog(c.Request.Context(), entry); err != nil {
		h.logger.Error("Failed to append transition log",
			slog.Int64("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
}
