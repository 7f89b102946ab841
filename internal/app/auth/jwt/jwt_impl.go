package jwt

import (
	"errors"
	"time"

	customErrors "github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/errors"
	jwt2 "github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/jwt"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const refreshAudienceSuffix = ":refresh"

type Options struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string
	Leeway        time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

type JwtUtilImpl struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	audience      string
	leeway        time.Duration
	now           func() time.Time
}

func NewJWTUtil(opts Options) (*JwtUtilImpl, error) {
	if opts.AccessSecret == "" || opts.RefreshSecret == "" {
		return nil, customErrors.ErrSigning
	}
	if opts.AccessSecret == opts.RefreshSecret {
		return nil, customErrors.ErrSigning
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &JwtUtilImpl{
		accessSecret:  []byte(opts.AccessSecret),
		refreshSecret: []byte(opts.RefreshSecret),
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		issuer:        opts.Issuer,
		audience:      opts.Audience,
		leeway:        opts.Leeway,
		now:           now,
	}, nil
}

func (j *JwtUtilImpl) GenerateAccessToken(u jwt2.UserClaims) (string, time.Time, error) {
	now := j.now()
	claims := jwt2.AccessClaims{
		RegisteredClaims: j.registered(u, now, j.accessTTL, j.audience),
		UserClaims:       u,
		TokenUse:         jwt2.UseAccess,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.accessSecret)
	if err != nil {
		return "", time.Time{}, customErrors.WrapInternal(err, "sign access token")
	}
	return signed, claims.ExpiresAt.Time, nil
}

func (j *JwtUtilImpl) GenerateRefreshToken(u jwt2.UserClaims) (string, time.Time, error) {
	now := j.now()
	claims := jwt2.RefreshClaims{
		RegisteredClaims: j.registered(u, now, j.refreshTTL, j.audience+refreshAudienceSuffix),
		UserClaims:       u,
		TokenUse:         jwt2.UseRefresh,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.refreshSecret)
	if err != nil {
		return "", time.Time{}, customErrors.WrapInternal(err, "sign refresh token")
	}
	return signed, claims.ExpiresAt.Time, nil
}

// registered stamps a fresh jti so two tokens minted in the same second still differ.
func (j *JwtUtilImpl) registered(u jwt2.UserClaims, now time.Time, ttl time.Duration, aud string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   u.UserID.String(),
		Issuer:    j.issuer,
		Audience:  jwt.ClaimStrings{aud},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
}

func (j *JwtUtilImpl) ValidateAccessToken(raw string) (jwt2.AccessClaims, error) {
	claims := &jwt2.AccessClaims{}
	if err := j.parse(raw, claims, j.accessSecret, j.audience); err != nil {
		return jwt2.AccessClaims{}, err
	}
	if claims.TokenUse != jwt2.UseAccess {
		return jwt2.AccessClaims{}, customErrors.ErrInvalidToken
	}
	return *claims, nil
}

func (j *JwtUtilImpl) ValidateRefreshToken(raw string) (jwt2.RefreshClaims, error) {
	claims := &jwt2.RefreshClaims{}
	if err := j.parse(raw, claims, j.refreshSecret, j.audience+refreshAudienceSuffix); err != nil {
		return jwt2.RefreshClaims{}, err
	}
	if claims.TokenUse != jwt2.UseRefresh {
		return jwt2.RefreshClaims{}, customErrors.ErrInvalidToken
	}
	return *claims, nil
}

func (j *JwtUtilImpl) parse(raw string, claims jwt.Claims, secret []byte, aud string) error {
	if raw == "" {
		return customErrors.ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(j.leeway),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	if j.audience != "" {
		opts = append(opts, jwt.WithAudience(aud))
	}

	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return errors.Join(customErrors.ErrInvalidToken, customErrors.ErrExpired)
		}
		return customErrors.ErrInvalidToken
	}
	return nil
}
