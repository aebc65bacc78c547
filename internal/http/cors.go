package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Browsers only need the auth endpoints and the JWKS document, so the policy never
// grants anything beyond reads and POSTs, and never shares credentials.
var (
	corsMethods        = []string{http.MethodGet, http.MethodPost}
	corsHeaders        = []string{"Authorization", "Content-Type"}
	corsExposedHeaders = []string{"X-Request-Id"}
)

const corsPreflightMaxAge = 12 * time.Hour

// createCORSMiddleware builds the CORS handler for the API router. A nil handler
// means the router runs without CORS.
func createCORSMiddleware(enabled bool, allowOrigins string, logger *slog.Logger) gin.HandlerFunc {
	if !enabled {
		return nil
	}

	origins := parseOrigins(allowOrigins)
	if len(origins) == 0 {
		logger.Warn("cors enabled without any usable origin, skipping",
			slog.String("cors_allow_origins", allowOrigins))
		return nil
	}

	logger.Info("cors enabled", slog.Any("origins", origins))

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     corsMethods,
		AllowHeaders:     corsHeaders,
		ExposeHeaders:    corsExposedHeaders,
		AllowCredentials: false,
		MaxAge:           corsPreflightMaxAge,
	})
}

// parseOrigins turns CORS_ALLOW_ORIGINS into a list of trimmed, non-empty origins.
func parseOrigins(raw string) []string {
	var origins []string
	for origin := range strings.SplitSeq(raw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
