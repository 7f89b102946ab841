package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/http/dto"
	"github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/jwt"
	"github.com/gin-gonic/gin"
)

const claimsKey = "auth.claims"

type AccessValidator interface {
	ValidateAccess(ctx context.Context, accessToken string) (jwt.AccessClaims, error)
}

// Bearer rejects requests without a valid access token in the Authorization header.
func Bearer(v AccessValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			unauthorized(c)
			return
		}

		claims, err := v.ValidateAccess(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			unauthorized(c)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// Claims returns what Bearer stored for the current request.
func Claims(c *gin.Context) (jwt.AccessClaims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return jwt.AccessClaims{}, false
	}
	claims, ok := v.(jwt.AccessClaims)
	return claims, ok
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{Message: "User is not authorized"})
}
