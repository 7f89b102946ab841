package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// UserClaims is the identity carried by both token kinds.
type UserClaims struct {
	UserID uuid.UUID `json:"id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
}

type AccessClaims struct {
	jwt.RegisteredClaims
	UserClaims
	TokenUse string `json:"token_use"`
}

type RefreshClaims struct {
	jwt.RegisteredClaims
	UserClaims
	TokenUse string `json:"token_use"`
}

type JWTUtil interface {
	GenerateAccessToken(u UserClaims) (token string, exp time.Time, err error)
	GenerateRefreshToken(u UserClaims) (token string, exp time.Time, err error)
	ValidateAccessToken(token string) (claims AccessClaims, err error)
	ValidateRefreshToken(token string) (claims RefreshClaims, err error)
}
