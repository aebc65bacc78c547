package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/identity/internal/errors"
	"github.com/allisson/identity/internal/httputil"
	keysDomain "github.com/allisson/identity/internal/keys/domain"
)

// TokenParser verifies access tokens issued by this service.
type TokenParser interface {
	Parse(token string) (*keysDomain.TokenClaims, error)
}

// AuthenticationMiddleware authenticates requests with a Bearer access token.
//
// The token is verified against the service's own public key. On success the claims are
// stored in the request context and can be read with GetClaims.
//
// Authorization header format: "Bearer <token>" (case-insensitive "bearer")
//
// Error handling:
//   - Missing or malformed Authorization header → 401 Unauthorized
//   - Invalid signature, unknown kid or expired token → 401 Unauthorized
func AuthenticationMiddleware(parser TokenParser, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug("authentication failed: missing authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("authentication failed: malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authHeader[len(bearerPrefix):])
		if token == "" {
			logger.Debug("authentication failed: empty bearer token")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		claims, err := parser.Parse(token)
		if err != nil {
			logger.Debug("authentication failed", slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))

		logger.Debug("authentication successful", slog.String("sub", claims.Subject))

		c.Next()
	}
}
