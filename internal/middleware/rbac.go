package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-assignments-api/internal/models"
	appErrors "github.com/noah-isme/sma-assignments-api/pkg/errors"
	"github.com/noah-isme/sma-assignments-api/pkg/response"
)

// RequireCapability rejects callers whose role does not carry the capability.
func RequireCapability(capability models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !claims.Role.Can(capability) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
