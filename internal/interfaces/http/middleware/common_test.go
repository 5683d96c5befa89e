package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newCommonRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/api/v1/invoices", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": c.GetString("request_id")})
	})
	return r
}

func doRequest(r http.Handler, method, origin string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1/invoices", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSWithConfig(t *testing.T) {
	whitelisted := DefaultCORSConfig()
	whitelisted.AllowOrigins = []string{"https://ledger.example.com"}

	wildcard := DefaultCORSConfig()
	wildcard.AllowOrigins = []string{"*"}

	tests := []struct {
		name        string
		cfg         CORSConfig
		method      string
		origin      string
		wantStatus  int
		wantOrigin  string
		wantCreds   string
		wantMethods bool
	}{
		{"no whitelist leaves cross-origin untagged", DefaultCORSConfig(), http.MethodGet, "https://evil.example", http.StatusOK, "", "", false},
		{"whitelisted origin is echoed", whitelisted, http.MethodGet, "https://ledger.example.com", http.StatusOK, "https://ledger.example.com", "true", true},
		{"unknown origin is untagged", whitelisted, http.MethodGet, "https://evil.example", http.StatusOK, "", "", false},
		{"same-origin request passes", whitelisted, http.MethodGet, "", http.StatusOK, "", "", false},
		{"wildcard never sends credentials", wildcard, http.MethodGet, "https://any.example", http.StatusOK, "*", "", true},
		{"preflight from whitelisted origin", whitelisted, http.MethodOptions, "https://ledger.example.com", http.StatusNoContent, "https://ledger.example.com", "true", true},
		{"preflight from unknown origin", whitelisted, http.MethodOptions, "https://evil.example", http.StatusNoContent, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newCommonRouter(CORSWithConfig(tt.cfg))
			r.OPTIONS("/api/v1/invoices", func(c *gin.Context) { c.Status(http.StatusTeapot) })

			w := doRequest(r, tt.method, tt.origin)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCreds, w.Header().Get("Access-Control-Allow-Credentials"))
			assert.Equal(t, tt.wantMethods, w.Header().Get("Access-Control-Allow-Methods") != "")
		})
	}
}

func TestCORSWithConfig_ExposesLedgerHeaders(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://ledger.example.com"}

	w := doRequest(newCommonRouter(CORSWithConfig(cfg)), http.MethodOptions, "https://ledger.example.com")

	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), IdempotencyKeyHeader)
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), IdempotencyReplayedHeader)
	assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))
}

func TestRequestID(t *testing.T) {
	r := newCommonRouter(RequestID())

	t.Run("generates when absent", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "")
		id := w.Header().Get(RequestIDHeader)
		require.Len(t, id, 36)
		assert.Contains(t, w.Body.String(), id)
	})

	t.Run("keeps client id", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "", RequestIDHeader, "batch-42")
		assert.Equal(t, "batch-42", w.Header().Get(RequestIDHeader))
	})

	t.Run("replaces oversized id", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "", RequestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})

	t.Run("ids differ per request", func(t *testing.T) {
		a := doRequest(r, http.MethodGet, "").Header().Get(RequestIDHeader)
		b := doRequest(r, http.MethodGet, "").Header().Get(RequestIDHeader)
		assert.NotEqual(t, a, b)
	})
}

func TestSecure(t *testing.T) {
	w := doRequest(newCommonRouter(Secure()), http.MethodGet, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "default-src 'none'")
}
