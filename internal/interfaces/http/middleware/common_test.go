package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// serveWith runs one request through a router carrying only the given
// middleware and a trivial GET handler that echoes the request id.
func serveWith(mw gin.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	router := gin.New()
	router.Use(mw)
	router.GET("/probe", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequestIDMintsUUID(t *testing.T) {
	w := serveWith(RequestID(), httptest.NewRequest(http.MethodGet, "/probe", nil))

	id := w.Header().Get("X-Request-ID")
	_, err := uuid.Parse(id)
	require.NoError(t, err, "minted id should be a UUID")
	assert.Equal(t, id, w.Body.String(), "handler should see the same id")
}

func TestRequestIDHonorsClientHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-Request-ID", "close-2024-01-run-7")

	w := serveWith(RequestID(), req)

	assert.Equal(t, "close-2024-01-run-7", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "close-2024-01-run-7", w.Body.String())
}

func TestRequestIDTruncatesOversizedHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 4*maxRequestIDLength))

	w := serveWith(RequestID(), req)

	assert.Len(t, w.Body.String(), maxRequestIDLength)
}

func TestCORSDefaultRejectsCrossOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Origin", "http://anywhere.example")

	w := serveWith(CORS(), req)

	assert.Equal(t, http.StatusOK, w.Code, "request itself still succeeds")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWhitelistedOrigin(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"http://erp.internal", "http://finance.internal"}
	cfg.AllowCredentials = true

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Origin", "http://finance.internal")

	h := serveWith(CORSWithConfig(cfg), req).Header()
	assert.Equal(t, "http://finance.internal", h.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", h.Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "GET, POST, OPTIONS", h.Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "X-Request-ID", h.Get("Access-Control-Expose-Headers"))
	assert.Equal(t, "43200", h.Get("Access-Control-Max-Age"))
}

func TestCORSUnlistedOriginGetsNoHeaders(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"http://erp.internal"}

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Origin", "http://rogue.example")

	h := serveWith(CORSWithConfig(cfg), req).Header()
	assert.Empty(t, h.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, h.Get("Access-Control-Allow-Credentials"))
}

func TestCORSWildcardSkipsCredentials(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"*"}
	cfg.AllowCredentials = true

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Origin", "http://anywhere.example")

	h := serveWith(CORSWithConfig(cfg), req).Header()
	assert.Equal(t, "*", h.Get("Access-Control-Allow-Origin"))
	assert.Empty(t, h.Get("Access-Control-Allow-Credentials"))
}

func TestCORSPreflightAlwaysNoContent(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		origin     string
		wantOrigin string
	}{
		{name: "allowed origin", origins: []string{"http://erp.internal"}, origin: "http://erp.internal", wantOrigin: "http://erp.internal"},
		{name: "unlisted origin", origins: []string{"http://erp.internal"}, origin: "http://rogue.example", wantOrigin: ""},
		{name: "empty whitelist", origins: nil, origin: "http://erp.internal", wantOrigin: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultCORSConfig()
			cfg.AllowOrigins = tt.origins

			req := httptest.NewRequest(http.MethodOptions, "/probe", nil)
			req.Header.Set("Origin", tt.origin)

			w := serveWith(CORSWithConfig(cfg), req)
			assert.Equal(t, http.StatusNoContent, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestResolveOrigin(t *testing.T) {
	allowed := []string{"http://erp.internal"}

	assert.Equal(t, "*", resolveOrigin(allowed, true, "http://any.example"))
	assert.Equal(t, "http://erp.internal", resolveOrigin(allowed, false, "http://erp.internal"))
	assert.Empty(t, resolveOrigin(allowed, false, "http://other.example"))
	assert.Empty(t, resolveOrigin(allowed, false, ""))
	assert.Empty(t, resolveOrigin(nil, false, "http://erp.internal"))
}

func TestDefaultCORSConfigShipsClosed(t *testing.T) {
	cfg := DefaultCORSConfig()

	assert.Empty(t, cfg.AllowOrigins)
	assert.Contains(t, cfg.AllowMethods, "POST")
	assert.Contains(t, cfg.AllowHeaders, "X-Request-ID")
	assert.False(t, cfg.AllowCredentials)
	assert.Equal(t, 12*time.Hour, cfg.MaxAge)
}

func TestSecureDefaultHeaders(t *testing.T) {
	h := serveWith(Secure(), httptest.NewRequest(http.MethodGet, "/probe", nil)).Header()

	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", h.Get("Referrer-Policy"))
	assert.Contains(t, h.Get("Content-Security-Policy"), "default-src 'none'")
	assert.Empty(t, h.Get("Strict-Transport-Security"))
}

func TestSecureHSTSVariants(t *testing.T) {
	tests := []struct {
		name string
		cfg  SecurityConfig
		want string
	}{
		{
			name: "max age only",
			cfg:  SecurityConfig{HSTSEnabled: true, HSTSMaxAge: 31536000},
			want: "max-age=31536000",
		},
		{
			name: "subdomains and preload",
			cfg: SecurityConfig{
				HSTSEnabled:           true,
				HSTSMaxAge:            63072000,
				HSTSIncludeSubdomains: true,
				HSTSPreload:           true,
			},
			want: "max-age=63072000; includeSubDomains; preload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serveWith(SecureWithConfig(tt.cfg), httptest.NewRequest(http.MethodGet, "/probe", nil))
			assert.Equal(t, tt.want, w.Header().Get("Strict-Transport-Security"))
		})
	}
}

func TestSecureOptionalHeadersOff(t *testing.T) {
	h := serveWith(SecureWithConfig(SecurityConfig{}), httptest.NewRequest(http.MethodGet, "/probe", nil)).Header()

	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Empty(t, h.Get("Content-Security-Policy"))
	assert.Empty(t, h.Get("Strict-Transport-Security"))
}
