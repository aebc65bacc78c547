package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/identity/internal/metrics"
)

// MetricsServer exposes the Prometheus scrape endpoint on METRICS_PORT, away from
// the public API router.
type MetricsServer struct {
	listener *listener
	router   *gin.Engine
}

// NewMetricsServer builds the scrape router. Without a provider the router has no
// routes and every request is a 404.
func NewMetricsServer(host string, port int, logger *slog.Logger, provider *metrics.Provider) *MetricsServer {
	router := gin.New()
	router.Use(gin.Recovery(), CustomLoggerMiddleware(logger))
	if provider != nil {
		router.GET("/metrics", gin.WrapH(provider.Handler()))
	}

	return &MetricsServer{
		listener: newListener("metrics", host, port, logger),
		router:   router,
	}
}

// GetHandler returns the http.Handler for testing purposes.
func (s *MetricsServer) GetHandler() http.Handler {
	return s.router
}

// Start serves scrapes until Shutdown is called.
func (s *MetricsServer) Start(ctx context.Context) error {
	return s.listener.serve(s.router)
}

// Shutdown stops accepting scrapes and waits for in-flight ones.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.listener.shutdown(ctx)
}
