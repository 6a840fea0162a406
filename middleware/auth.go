package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/CUknot/chatflow_backend/services"
	"github.com/gin-gonic/gin"
)

const (
	userIDKey   = "userID"
	usernameKey = "username"
)

// JWTAuth resolves the bearer token to a user and stores the identity on the context
func JWTAuth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		who, err := auth.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, services.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			} else {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
			}
			return
		}

		c.Set(userIDKey, who.UserID)
		c.Set(usernameKey, who.Username)
		c.Next()
	}
}

// CurrentIdentity returns the identity JWTAuth stored on the context
func CurrentIdentity(c *gin.Context) services.Identity {
	return services.Identity{
		UserID:   c.MustGet(userIDKey).(uint),
		Username: c.GetString(usernameKey),
	}
}
