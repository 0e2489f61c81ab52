package http

import (
	"github.com/gin-gonic/gin"

	"github.com/curbshare/parking-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	listings := g.Group("/listings")
	{
		listings.GET("/search", h.Search)
		listings.GET("/:id", h.Get)

		host := listings.Group("", authMiddleware, auth.RequireRole("host", "admin"))
		host.POST("", h.Create)
		host.GET("", h.ListMine)
		host.POST("/:id/archive", h.Archive)
		host.DELETE("/:id", h.Delete)
	}

	admin := g.Group("/admin", authMiddleware, auth.RequireRole("admin"))
	admin.PATCH("/listings/:id", h.UpdateStatus)
}
