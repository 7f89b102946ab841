package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

type Config struct {
	HTTPAddress string
	GRPCAddress string
	DatabaseURL string

	RedisAddress  string
	RedisPassword string
	RedisDB       int
	SessionStore  string

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	ResetTokenTTL    time.Duration
	Issuer           string
	Audience         string

	PasswordPepper       string
	PhoneRegion          string
	ResetInvalidatePrior bool

	ClientHost       string
	CookieDomain     string
	AllowedOrigins   []string
	AllowCredentials bool

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	CleanupInterval time.Duration
	LogLevel        string

	HTTPSCertFile string
	HTTPSKeyFile  string

	RateLimit float64
	RateBurst int
}

func Load() (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDRESS", ":8080")
	v.SetDefault("GRPC_ADDRESS", ":50051")
	v.SetDefault("REDIS_ADDRESS", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("SESSION_STORE", SessionStorePostgres)
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "720h")
	v.SetDefault("RESET_TOKEN_TTL", "1h")
	v.SetDefault("JWT_ISSUER", "gadgets-store")
	v.SetDefault("JWT_AUDIENCE", "gadgets-store-client")
	v.SetDefault("PHONE_REGION", "US")
	v.SetDefault("RESET_INVALIDATE_PRIOR", true)
	v.SetDefault("CLIENT_HOST", "http://localhost:5173")
	v.SetDefault("ALLOW_CREDENTIALS", true)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("CLEANUP_INTERVAL", "1h")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("RATE_LIMIT", 10)
	v.SetDefault("RATE_BURST", 20)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		HTTPAddress:          v.GetString("HTTP_ADDRESS"),
		GRPCAddress:          v.GetString("GRPC_ADDRESS"),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		RedisAddress:         v.GetString("REDIS_ADDRESS"),
		RedisPassword:        v.GetString("REDIS_PASSWORD"),
		RedisDB:              v.GetInt("REDIS_DB"),
		SessionStore:         strings.ToLower(v.GetString("SESSION_STORE")),
		JWTAccessSecret:      v.GetString("JWT_ACCESS_SECRET"),
		JWTRefreshSecret:     v.GetString("JWT_REFRESH_SECRET"),
		AccessTokenTTL:       v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL:      v.GetDuration("REFRESH_TOKEN_TTL"),
		ResetTokenTTL:        v.GetDuration("RESET_TOKEN_TTL"),
		Issuer:               v.GetString("JWT_ISSUER"),
		Audience:             v.GetString("JWT_AUDIENCE"),
		PasswordPepper:       v.GetString("PASSWORD_PEPPER"),
		PhoneRegion:          strings.ToUpper(v.GetString("PHONE_REGION")),
		ResetInvalidatePrior: v.GetBool("RESET_INVALIDATE_PRIOR"),
		ClientHost:           strings.TrimRight(v.GetString("CLIENT_HOST"), "/"),
		CookieDomain:         v.GetString("COOKIE_DOMAIN"),
		AllowedOrigins:       splitList(v.GetString("ALLOWED_ORIGINS")),
		AllowCredentials:     v.GetBool("ALLOW_CREDENTIALS"),
		SMTPHost:             v.GetString("SMTP_HOST"),
		SMTPPort:             v.GetInt("SMTP_PORT"),
		SMTPUser:             v.GetString("SMTP_USER"),
		SMTPPassword:         v.GetString("SMTP_PASSWORD"),
		SMTPFrom:             v.GetString("SMTP_FROM"),
		CleanupInterval:      v.GetDuration("CLEANUP_INTERVAL"),
		LogLevel:             v.GetString("LOG_LEVEL"),
		HTTPSCertFile:        v.GetString("HTTPS_CERT_FILE"),
		HTTPSKeyFile:         v.GetString("HTTPS_KEY_FILE"),
		RateLimit:            v.GetFloat64("RATE_LIMIT"),
		RateBurst:            v.GetInt("RATE_BURST"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWTAccessSecret == "" {
		missing = append(missing, "JWT_ACCESS_SECRET")
	}
	if c.JWTRefreshSecret == "" {
		missing = append(missing, "JWT_REFRESH_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required config missing: %s", strings.Join(missing, ", "))
	}

	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 || c.ResetTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	switch c.SessionStore {
	case SessionStorePostgres, SessionStoreRedis:
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}
	if (c.HTTPSCertFile == "") != (c.HTTPSKeyFile == "") {
		return errors.New("HTTPS_CERT_FILE and HTTPS_KEY_FILE must be set together")
	}
	return nil
}

// TLSEnabled reports whether both listeners should serve TLS.
func (c *Config) TLSEnabled() bool {
	return c.HTTPSCertFile != "" && c.HTTPSKeyFile != ""
}

// splitList accepts both "a,b" and `["a","b"]`.
func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")

	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
