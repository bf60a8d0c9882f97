package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"grimoire-backend/pkg/jwt"
)

// CallerIDKey is the gin context key holding the verified caller identity.
const CallerIDKey = "userID"

// AuthMiddleware verifies the Bearer token and deposits the caller's uuid in
// the request context. Handlers downstream can assume a verified identity.
func AuthMiddleware(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(401, gin.H{"error": "missing authorization header"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(401, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := manager.ValidateToken(parts[1])
		if err != nil {
			c.JSON(401, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(401, gin.H{"error": "invalid user ID in token"})
			c.Abort()
			return
		}

		c.Set(CallerIDKey, userID)
		c.Next()
	}
}

// CallerID extracts the verified caller identity set by AuthMiddleware.
func CallerID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(CallerIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
