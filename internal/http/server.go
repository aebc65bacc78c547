// Package http provides the public gin server, its middleware and the metrics server.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/identity/internal/config"
	keysHTTP "github.com/allisson/identity/internal/keys/http"
	"github.com/allisson/identity/internal/metrics"
	userHTTP "github.com/allisson/identity/internal/user/http"
)

// Pinger reports database reachability for the readiness probe.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server is the public HTTP server.
type Server struct {
	db       Pinger
	listener *listener
	router   *gin.Engine
	logger   *slog.Logger
}

// NewServer creates a new HTTP server. SetupRouter must be called before Start.
func NewServer(db Pinger, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		db:       db,
		logger:   logger,
		listener: newListener("api", host, port, logger),
	}
}

// SetupRouter registers every route:
//
//	GET  /health
//	GET  /ready
//	GET  /.well-known/jwks.json
//	POST /v1/auth/register   (per-IP rate limit)
//	POST /v1/auth/login      (per-IP rate limit)
//	GET  /v1/auth/me         (Bearer access token)
//
// ctx bounds the background cleanup of the rate limiter.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	authHandler *userHTTP.AuthHandler,
	jwksHandler *keysHTTP.JWKSHandler,
	tokenParser userHTTP.TokenParser,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)
	router.GET("/.well-known/jwks.json", jwksHandler.GetJWKSHandler)

	auth := router.Group("/v1/auth")
	{
		public := auth.Group("")
		if cfg.RateLimitAuthEnabled {
			public.Use(userHTTP.AuthRateLimitMiddleware(
				ctx,
				cfg.RateLimitAuthRequestsPerSec,
				cfg.RateLimitAuthBurst,
				s.logger,
			))
		}
		public.POST("/register", authHandler.RegisterHandler)
		public.POST("/login", authHandler.LoginHandler)

		auth.GET("/me", userHTTP.AuthenticationMiddleware(tokenParser, s.logger), authHandler.MeHandler)
	}

	s.router = router
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return errors.New("router is not configured")
	}
	return s.listener.serve(s.router)
}

// Shutdown stops accepting connections and waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.listener.shutdown(ctx)
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports ready only when the database answers a ping within two seconds.
func (s *Server) readinessHandler(c *gin.Context) {
	database := "ok"
	if s.db == nil {
		database = "error"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("readiness check failed", slog.Any("error", err))
			database = "error"
		}
	}

	status, code := "ready", http.StatusOK
	if database != "ok" {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status": status,
		"components": gin.H{
			"database": database,
		},
	})
}
