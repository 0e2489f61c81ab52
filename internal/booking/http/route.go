package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, authMiddleware, createLimiter gin.HandlerFunc) {
	// Stripe calls this without a token.
	r.POST("/bookings/webhook", h.Webhook)

	bookings := r.Group("/bookings", authMiddleware)
	{
		bookings.POST("", createLimiter, h.Create)
		bookings.GET("/me", h.ListMine)
		bookings.GET("/:id", h.Get)
		bookings.POST("/:id/cancel", h.Cancel)
	}
}
