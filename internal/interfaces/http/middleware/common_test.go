package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func corsRouter(cfg CORSConfig) *gin.Engine {
	router := gin.New()
	router.Use(CORSWithConfig(cfg))
	router.GET("/sync/logs", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS())
	router.GET("/sync/logs", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	t.Run("empty whitelist default rejects cross-origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/sync/logs", nil)
		req.Header.Set("Origin", "http://evil.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("same-origin request unaffected", func(t *testing.T) {
		// Webhook deliveries and scheduler calls carry no Origin header.
		req := httptest.NewRequest("GET", "/sync/logs", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("preflight still answered with 204", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/sync/logs", nil)
		req.Header.Set("Origin", "http://somewhere.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestCORSWithConfig(t *testing.T) {
	dashboard := "https://dashboard.posbridge.example"

	t.Run("allows whitelisted origin", func(t *testing.T) {
		router := corsRouter(CORSConfig{
			AllowOrigins:     []string{dashboard},
			AllowMethods:     []string{"GET", "POST"},
			AllowHeaders:     []string{"Content-Type", "X-Tenant-ID"},
			AllowCredentials: true,
		})

		req := httptest.NewRequest("GET", "/sync/logs", nil)
		req.Header.Set("Origin", dashboard)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, dashboard, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.Equal(t, "Content-Type, X-Tenant-ID", w.Header().Get("Access-Control-Allow-Headers"))
	})

	t.Run("rejects origin not in whitelist", func(t *testing.T) {
		router := corsRouter(CORSConfig{
			AllowOrigins: []string{dashboard},
		})

		req := httptest.NewRequest("GET", "/sync/logs", nil)
		req.Header.Set("Origin", "https://other.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard allows any origin without credentials", func(t *testing.T) {
		router := corsRouter(CORSConfig{
			AllowOrigins:     []string{"*"},
			AllowMethods:     []string{"GET"},
			AllowHeaders:     []string{"Content-Type"},
			AllowCredentials: true, // ignored in wildcard mode
		})

		req := httptest.NewRequest("GET", "/sync/logs", nil)
		req.Header.Set("Origin", "https://anywhere.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("Max-Age rendered as decimal seconds", func(t *testing.T) {
		router := corsRouter(CORSConfig{
			AllowOrigins: []string{dashboard},
			AllowMethods: []string{"GET"},
			AllowHeaders: []string{"Content-Type"},
			MaxAge:       12 * time.Hour,
		})

		req := httptest.NewRequest("GET", "/sync/logs", nil)
		req.Header.Set("Origin", dashboard)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("expose headers include rate limit counters", func(t *testing.T) {
		router := corsRouter(CORSConfig{
			AllowOrigins:  []string{dashboard},
			AllowMethods:  []string{"GET"},
			AllowHeaders:  []string{"Content-Type"},
			ExposeHeaders: []string{"X-Request-ID", "X-RateLimit-Remaining"},
		})

		req := httptest.NewRequest("GET", "/sync/logs", nil)
		req.Header.Set("Origin", dashboard)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "X-Request-ID, X-RateLimit-Remaining", w.Header().Get("Access-Control-Expose-Headers"))
	})

	t.Run("preflight with allowed origin carries method and header lists", func(t *testing.T) {
		router := corsRouter(CORSConfig{
			AllowOrigins: []string{dashboard},
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Content-Type", "Authorization", "X-Tenant-ID"},
		})

		req := httptest.NewRequest("OPTIONS", "/sync/logs", nil)
		req.Header.Set("Origin", dashboard)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, dashboard, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type, Authorization, X-Tenant-ID", w.Header().Get("Access-Control-Allow-Headers"))
	})

	t.Run("preflight with disallowed origin answered bare", func(t *testing.T) {
		router := corsRouter(CORSConfig{
			AllowOrigins: []string{dashboard},
			AllowMethods: []string{"GET", "POST"},
		})

		req := httptest.NewRequest("OPTIONS", "/sync/logs", nil)
		req.Header.Set("Origin", "https://other.example")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/sync/logs", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	t.Run("generates request ID when absent", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/sync/logs", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())
	})

	t.Run("preserves gateway-assigned request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/sync/logs", nil)
		req.Header.Set("X-Request-ID", "gw-7f3a")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "gw-7f3a", w.Header().Get("X-Request-ID"))
		assert.Equal(t, "gw-7f3a", w.Body.String())
	})
}

func TestGenerateRequestID(t *testing.T) {
	id1 := generateRequestID()
	id2 := generateRequestID()

	assert.NotEqual(t, id1, id2)
	assert.Len(t, id1, 32) // 16 bytes hex encoded
}

func TestSecure(t *testing.T) {
	router := gin.New()
	router.Use(Secure())
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))

	// API responses never embed; CSP denies everything.
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", w.Header().Get("Content-Security-Policy"))

	// TLS terminates at the gateway, so HSTS stays off by default.
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestSecureWithConfig(t *testing.T) {
	t.Run("HSTS with subdomains and preload", func(t *testing.T) {
		router := gin.New()
		router.Use(SecureWithConfig(SecurityConfig{
			HSTSEnabled:           true,
			HSTSMaxAge:            63072000,
			HSTSIncludeSubdomains: true,
			HSTSPreload:           true,
		}))
		router.GET("/health", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "max-age=63072000; includeSubDomains; preload", w.Header().Get("Strict-Transport-Security"))
	})

	t.Run("HSTS bare max-age", func(t *testing.T) {
		router := gin.New()
		router.Use(SecureWithConfig(SecurityConfig{
			HSTSEnabled: true,
			HSTSMaxAge:  31536000,
		}))
		router.GET("/health", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "max-age=31536000", w.Header().Get("Strict-Transport-Security"))
	})

	t.Run("CSP disabled", func(t *testing.T) {
		router := gin.New()
		router.Use(SecureWithConfig(SecurityConfig{CSPEnabled: false}))
		router.GET("/health", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})

		req := httptest.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Content-Security-Policy"))
		// Baseline headers do not depend on config.
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	})
}

func TestDefaultCORSConfig(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Empty(t, cfg.AllowOrigins)
	assert.Contains(t, cfg.AllowMethods, "GET")
	assert.Contains(t, cfg.AllowMethods, "POST")
	assert.Contains(t, cfg.AllowHeaders, "X-Tenant-ID")
	assert.Contains(t, cfg.AllowHeaders, "Authorization")
	assert.True(t, cfg.AllowCredentials)
	assert.Equal(t, 12*time.Hour, cfg.MaxAge)
}
