package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	provider, err := NewProvider("identity_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	router := gin.New()
	router.Use(HTTPMetricsMiddleware(provider.MeterProvider(), "identity_test"))
	router.GET("/.well-known/jwks.json", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"keys": []string{}})
	})
	router.POST("/v1/auth/login", func(c *gin.Context) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	})

	send := func(method, path string) int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w.Code
	}

	for range 3 {
		assert.Equal(t, http.StatusOK, send(http.MethodGet, "/.well-known/jwks.json"))
	}
	assert.Equal(t, http.StatusUnauthorized, send(http.MethodPost, "/v1/auth/login"))
	assert.Equal(t, http.StatusNotFound, send(http.MethodGet, "/wp-admin/setup.php"))

	output := scrape(t, provider)

	assertMetricLine(t, output, `identity_test_http_requests_total`,
		`method="GET".*path="/.well-known/jwks.json".*status_code="200"`, `3`)
	assertMetricLine(t, output, `identity_test_http_requests_total`,
		`method="POST".*path="/v1/auth/login".*status_code="401"`, `1`)
	assertMetricLine(t, output, `identity_test_http_requests_total`,
		`path="unknown".*status_code="404"`, `1`)
	assert.NotContains(t, output, "wp-admin")
}

func TestRouteLabel(t *testing.T) {
	assert.Equal(t, "/v1/auth/me", routeLabel("/v1/auth/me"))
	assert.Equal(t, "unknown", routeLabel(""))
}
