package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCreateCORSMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name    string
		enabled bool
		origins string
		wantNil bool
	}{
		{"disabled", false, "https://app.example.com", true},
		{"enabled without origins", true, "", true},
		{"enabled with only separators", true, " , ,", true},
		{"enabled with origins", true, "https://app.example.com, https://admin.example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			middleware := createCORSMiddleware(tt.enabled, tt.origins, logger)
			if tt.wantNil {
				assert.Nil(t, middleware)
				return
			}
			assert.NotNil(t, middleware)
		})
	}
}

func TestParseOrigins(t *testing.T) {
	assert.Nil(t, parseOrigins(""))
	assert.Equal(t,
		[]string{"https://app.example.com", "https://admin.example.com"},
		parseOrigins(" https://app.example.com ,,https://admin.example.com "),
	)
}

func TestCORS_Preflight(t *testing.T) {
	router := gin.New()
	router.Use(createCORSMiddleware(true, "https://app.example.com", slog.New(slog.NewTextHandler(io.Discard, nil))))
	router.POST("/v1/auth/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("allowed origin", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/v1/auth/login", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.NotContains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("unknown origin", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		router.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
