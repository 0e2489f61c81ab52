package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all user-related routes (including Auth).
func RegisterRoutes(g *gin.RouterGroup, h *UserHandler, authMiddleware, authLimiter gin.HandlerFunc) {
	// Public Routes
	authGroup := g.Group("/auth")
	authGroup.Use(authLimiter)
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}

	// Authenticated Routes
	g.GET("/users/me", authMiddleware, h.Me)
}
