package http

import (
	"time"

	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/http/middleware"
	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/ratelimit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterOptions struct {
	Logger           *zap.Logger
	Limiter          *ratelimit.PerIP
	AllowedOrigins   []string
	AllowCredentials bool
	// Registerer and Gatherer default to a private registry when nil.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registerer == nil || opts.Gatherer == nil {
		reg := prometheus.NewRegistry()
		opts.Registerer, opts.Gatherer = reg, reg
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(middleware.NewMetrics(opts.Registerer).Handler())
	if opts.Limiter != nil {
		router.Use(middleware.RateLimit(opts.Limiter))
	}
	if len(opts.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: opts.AllowedOrigins,
			AllowMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowHeaders: []string{
				"Origin", "Content-Type", "Accept",
				"Authorization",
				"X-Requested-With",
			},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: opts.AllowCredentials,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.POST("/registration", h.Register)
	router.GET("/activate/:activationToken", h.Activate)
	router.POST("/login", h.Login)
	router.GET("/refresh", h.Refresh)
	router.POST("/logout", h.Logout)
	router.POST("/reset", h.RequestReset)
	router.GET("/reset/:resetToken", h.ConfirmReset)
	router.POST("/changePassword", h.ChangePassword)

	authed := router.Group("/", middleware.Bearer(h.svc))
	authed.POST("/changeAuthPassword", h.ChangeAuthPassword)
	authed.PATCH("/confirmChangeEmail", h.ConfirmChangeEmail)
	authed.PATCH("/users/:id", h.ChangePhone)
	authed.PATCH("/update", h.UpdateName)

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	return router
}
