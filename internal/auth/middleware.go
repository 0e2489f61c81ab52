package auth

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthRequired is a Gin middleware that validates JWT from Authorization: Bearer <token>
func AuthRequired(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, jwtManager)
		if !ok {
			return
		}

		// Store user info into Gin context for later handlers.
		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserRole, claims.Role)

		c.Next()
	}
}

// OptionalAuth populates the user when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header != "" {
			if claims, err := parseHeader(header, jwtManager); err == nil {
				c.Set(ctxUserID, claims.UserID)
				c.Set(ctxUserRole, claims.Role)
			}
		}
		c.Next()
	}
}

// RequireRole rejects users whose token role is not listed.
// It MUST be used after AuthRequired.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(roles, GetUserRole(c)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func bearerClaims(c *gin.Context, jwtManager *JWTManager) (*Claims, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing Authorization header",
		})
		return nil, false
	}

	claims, err := parseHeader(header, jwtManager)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": err.Error(),
		})
		return nil, false
	}
	return claims, true
}

type headerError string

func (e headerError) Error() string { return string(e) }

func parseHeader(header string, jwtManager *JWTManager) (*Claims, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, headerError("invalid Authorization header format")
	}

	claims, err := jwtManager.ParseAndValidate(parts[1])
	if err != nil {
		return nil, headerError("invalid or expired token")
	}
	return claims, nil
}
