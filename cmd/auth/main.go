package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/db/postgres"
	redisrepo "github.com/Miraines/gadgets-store/auth-service/internal/adapters/db/redis"
	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/mail"
	grpcTransport "github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/grpc"
	httpTransport "github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/http"
	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/ratelimit"
	"github.com/Miraines/gadgets-store/auth-service/internal/app/auth/jwt"
	"github.com/Miraines/gadgets-store/auth-service/internal/app/auth/password"
	appsvc "github.com/Miraines/gadgets-store/auth-service/internal/app/auth/service"
	"github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/repo"
	"github.com/Miraines/gadgets-store/auth-service/internal/domain/notification"
	"github.com/Miraines/gadgets-store/auth-service/internal/infra/config"
	"github.com/Miraines/gadgets-store/auth-service/internal/infra/health"
	lg "github.com/Miraines/gadgets-store/auth-service/internal/infra/log"
	"github.com/Miraines/gadgets-store/auth-service/internal/infra/server"
	"github.com/Miraines/gadgets-store/auth-service/internal/infra/worker"
	"github.com/Miraines/gadgets-store/auth-service/internal/migrate"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		lg.Must(os.Getenv("LOG_LEVEL")).Fatal("failed to load config", zap.Error(err))
	}

	zapLog := lg.Must(cfg.LogLevel)
	defer zapLog.Sync()
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		zapLog.Fatal("failed to connect database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		zapLog.Fatal("failed to get sql db", zap.Error(err))
	}
	if err := migrate.Up(sqlDB); err != nil {
		zapLog.Fatal("failed to run migrations", zap.Error(err))
	}

	checker := health.NewChecker(2*time.Second).Add("postgres", health.DB(db))
	cleanup := worker.NewCleanup(cfg.CleanupInterval, zapLog)

	resets := postgres.NewPostgresResetTokenRepo(db)
	cleanup.Add("reset_tokens", resets)

	var sessions repo.SessionRepo
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		redisCli := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisCli.Close()
		checker.Add("redis", health.Redis(redisCli))
		// redis expires sessions by itself
		sessions = redisrepo.NewRedisSessionRepo(redisCli)
	default:
		pgSessions := postgres.NewPostgresSessionRepo(db)
		cleanup.Add("sessions", pgSessions)
		sessions = pgSessions
	}

	jwtUtil, err := jwt.NewJWTUtil(jwt.Options{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		Issuer:        cfg.Issuer,
		Audience:      cfg.Audience,
		Leeway:        5 * time.Second,
	})
	if err != nil {
		zapLog.Fatal("failed to init jwt", zap.Error(err))
	}

	var direct notification.Sender
	if cfg.SMTPHost != "" {
		direct = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			User:     cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		zapLog.Warn("SMTP_HOST is empty, mail is written to the log")
		direct = mail.NewLogSender(zapLog)
	}
	notices := mail.NewAsyncSender(direct, mail.AsyncOptions{MaxRetries: 5}, zapLog)

	svc := appsvc.New(appsvc.Deps{
		Users:    postgres.NewPostgresUserRepo(db),
		Sessions: sessions,
		Resets:   resets,
		JWT:      jwtUtil,
		Hasher:   password.NewHasher(cfg.PasswordPepper, nil),
		Mailer:   mail.NewMailer(direct, notices, cfg.ClientHost),
		Config:   cfg,
		Log:      zapLog,
	})

	limiter := ratelimit.NewPerIP(cfg.RateLimit, cfg.RateBurst, 10_000, time.Hour)

	router := httpTransport.NewRouter(
		httpTransport.NewHandler(svc, checker, cfg.CookieDomain),
		httpTransport.RouterOptions{
			Logger:           zapLog,
			Limiter:          limiter,
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowCredentials: cfg.AllowCredentials,
			Registerer:       prometheus.DefaultRegisterer,
			Gatherer:         prometheus.DefaultGatherer,
		},
	)
	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer, err := server.NewGRPCServer(cfg, grpcTransport.NewHealthHandler(checker, zapLog), limiter, zapLog)
	if err != nil {
		zapLog.Fatal("failed to init gRPC server", zap.Error(err))
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		return server.ServeGRPC(ctx, cfg, grpcServer, zapLog)
	})

	g.Go(func() error {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddress), zap.Bool("tls", cfg.TLSEnabled()))
		var err error
		if cfg.TLSEnabled() {
			err = srv.ListenAndServeTLS(cfg.HTTPSCertFile, cfg.HTTPSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return cleanup.Run(ctx)
	})

	g.Go(func() error {
		limiter.Run(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		zapLog.Info("shutdown signal received")

		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			zapLog.Error("http shutdown error", zap.Error(err))
		}
		// pending notices get the remaining time to go out
		if err := notices.Shutdown(ctxShutdown); err != nil {
			zapLog.Warn("undelivered notices dropped", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		zapLog.Error("server terminated", zap.Error(err))
	}
}
