package middleware

import (
	"net/http"

	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/ratelimit"
	"github.com/gin-gonic/gin"
)

func RateLimit(limiter *ratelimit.PerIP) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{Message: "Too many requests"})
			return
		}
		c.Next()
	}
}
