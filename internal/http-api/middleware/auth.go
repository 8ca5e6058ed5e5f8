package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bookhub/internal/http-api/models"
)

const actorContextKey = "actor"

// TokenValidator is implemented by the auth service.
type TokenValidator interface {
	ValidateToken(tokenString string) (models.Actor, error)
}

// AuthMiddleware is a Gin middleware for JWT authentication of API requests.
// It checks for the presence and validity of a JWT token in the Authorization
// header and stores the resulting Actor in the request context.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		// Extract token (format: "Bearer <token>")
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		actor, err := validator.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(actorContextKey, actor)
		c.Next()
	}
}

// ActorFromContext returns the Actor stored by AuthMiddleware.
func ActorFromContext(c *gin.Context) (models.Actor, bool) {
	v, exists := c.Get(actorContextKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}

// RequirePermission checks that the authenticated actor holds the named
// permission. This is the coarse route-level gate; entity-level policy runs
// again inside the service.
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "actor not found in context"})
			c.Abort()
			return
		}

		if !actor.HasPermission(permission) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":    "insufficient permissions",
				"required": permission,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRole checks if the actor has the specified role.
func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "actor not found in context"})
			c.Abort()
			return
		}

		if !actor.HasRole(requiredRole) {
			c.JSON(http.StatusForbidden, gin.H{
				"error":    "insufficient permissions",
				"required": requiredRole,
				"current":  actor.Roles,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAdmin is a convenience function for requiring admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}
