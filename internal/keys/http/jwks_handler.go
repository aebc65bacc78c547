// Package http exposes the signing key discovery document over HTTP.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	keysService "github.com/allisson/identity/internal/keys/service"
)

const jwksCacheControl = "public, max-age=3600"

// JWKSHandler serves the JWKS of the process signing key.
// The document is built once at startup, so serving it cannot fail.
type JWKSHandler struct {
	publisher keysService.Publisher
}

// NewJWKSHandler creates a new JWKS handler.
func NewJWKSHandler(publisher keysService.Publisher) *JWKSHandler {
	return &JWKSHandler{publisher: publisher}
}

// GetJWKSHandler returns the cached discovery document.
// GET /.well-known/jwks.json - No authentication required.
func (h *JWKSHandler) GetJWKSHandler(c *gin.Context) {
	c.Header("Cache-Control", jwksCacheControl)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, "application/json", h.publisher.JSON())
}
