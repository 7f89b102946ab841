package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")
	t.Setenv("JWT_ACCESS_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_SECRET", "refresh-secret")
}

func TestLoad_Success(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_TTL", "2m")
	t.Setenv("REFRESH_TOKEN_TTL", "3h")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("PASSWORD_PEPPER", "pepper")
	t.Setenv("GRPC_ADDRESS", ":50051")
	t.Setenv("JWT_ISSUER", "my-svc")
	t.Setenv("JWT_AUDIENCE", "my-aud")
	t.Setenv("ALLOWED_ORIGINS", `["https://app.example.com", "http://localhost:5173"]`)
	t.Setenv("ALLOW_CREDENTIALS", "true")
	t.Setenv("SESSION_STORE", "Redis")
	t.Setenv("CLIENT_HOST", "https://shop.example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, 2*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 3*time.Hour, cfg.RefreshTokenTTL)
	require.Equal(t, time.Hour, cfg.ResetTokenTTL)
	require.Equal(t, []string{"https://app.example.com", "http://localhost:5173"}, cfg.AllowedOrigins)
	require.Equal(t, SessionStoreRedis, cfg.SessionStore)
	require.Equal(t, "https://shop.example.com", cfg.ClientHost)
	require.True(t, cfg.ResetInvalidatePrior)
	require.False(t, cfg.TLSEnabled())
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 30*24*time.Hour, cfg.RefreshTokenTTL)
	require.Equal(t, SessionStorePostgres, cfg.SessionStore)
	require.Equal(t, "US", cfg.PhoneRegion)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "db")
	t.Setenv("JWT_ACCESS_SECRET", "a")

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "JWT_REFRESH_SECRET")
}

func TestLoad_RejectsSharedSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_REFRESH_SECRET", "access-secret")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsUnknownSessionStore(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_STORE", "memcached")

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_RejectsHalfTLS(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTPS_CERT_FILE", "cert.pem")

	_, err := Load()
	require.Error(t, err)
}

func TestSplitList(t *testing.T) {
	require.Nil(t, splitList(""))
	require.Equal(t, []string{"a", "b"}, splitList("a, b"))
	require.Equal(t, []string{"x"}, splitList(`["x"]`))
}
