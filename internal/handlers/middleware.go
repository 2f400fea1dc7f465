package handlers

import (
	"errors"
	"net/http"

	"order_manager/internal/models"
	"order_manager/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const actorContextKey = "actor"

// ActorMiddleware resolves the X-User-ID header set by the gateway into the
// acting user. Authentication itself happens upstream.
func ActorMiddleware(users services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user ID format"})
			return
		}
		user, err := users.GetUserByID(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
				return
			}
			respondError(c, err)
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user is disabled"})
			return
		}
		c.Set(actorContextKey, user)
		c.Next()
	}
}

// actorFrom returns the user stored by ActorMiddleware.
func actorFrom(c *gin.Context) *models.User {
	if v, ok := c.Get(actorContextKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
