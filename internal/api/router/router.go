package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/orders-service/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		if deps.Health != nil {
			if err := deps.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"service": "orders-api-service",
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "orders-api-service",
		})
	})

	orderHandler := handler.NewOrderHandler(deps)
	jobHandler := handler.NewJobHandler(deps)

	orders := r.Group("/orders")
	{
		// POST /orders - Create a new order
		orders.POST("", orderHandler.CreateOrder)

		// GET /orders - List orders with filtering
		orders.GET("", orderHandler.ListOrders)

		// GET /orders/:order_id - Get order details
		orders.GET("/:order_id", orderHandler.GetOrder)

		// DELETE /orders/:order_id - Cancel a pending order
		orders.DELETE("/:order_id", orderHandler.CancelOrder)

		// PATCH /orders/:order_id/status - Admin state override
		orders.PATCH("/:order_id/status", orderHandler.UpdateOrderState)

		// GET /orders/:order_id/logs - State transition history
		orders.GET("/:order_id/logs", orderHandler.GetOrderLogs)

		// POST /orders/:order_id/confirm - Start async confirmation
		orders.POST("/:order_id/confirm", orderHandler.ConfirmOrder)
	}

	// GET /jobs/:job_id - Poll confirmation job status
	r.GET("/jobs/:job_id", jobHandler.GetJob)

	return r
}
