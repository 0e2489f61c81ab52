package http

import (
	"github.com/gin-gonic/gin"

	"github.com/curbshare/parking-backend/internal/auth"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	host := r.Group("/host", authMiddleware, auth.RequireRole("host", "admin"))
	{
		host.GET("/listings/:id/availability", h.List)
		host.POST("/listings/:id/availability", h.Create)
		host.PATCH("/availability/:availabilityId", h.Update)
		host.DELETE("/availability/:availabilityId", h.Delete)
	}
}
