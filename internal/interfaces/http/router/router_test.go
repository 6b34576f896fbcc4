package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func echo(body string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, body)
	}
}

func TestSetupMountsGroupsUnderVersionPrefix(t *testing.T) {
	engine := gin.New()

	reviews := NewDomainGroup("review", "/reviews")
	reviews.POST("/run", echo("ran")).GET("/catalog", echo("catalog"))

	system := NewDomainGroup("system", "/system")
	system.GET("/ping", echo("pong"))

	NewRouter(engine).Register(reviews, system).Setup()

	tests := []struct {
		method, target, body string
	}{
		{http.MethodPost, "/api/v1/reviews/run", "ran"},
		{http.MethodGet, "/api/v1/reviews/catalog", "catalog"},
		{http.MethodGet, "/api/v1/system/ping", "pong"},
	}
	for _, tt := range tests {
		w := serve(engine, tt.method, tt.target)
		assert.Equal(t, http.StatusOK, w.Code, "%s %s", tt.method, tt.target)
		assert.Equal(t, tt.body, w.Body.String())
	}
}

func TestWithAPIVersionChangesPrefix(t *testing.T) {
	engine := gin.New()

	group := NewDomainGroup("system", "/system")
	group.GET("/ping", echo("pong"))

	NewRouter(engine, WithAPIVersion("v2")).Register(group).Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v2/system/ping").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/system/ping").Code)
}

func TestRoutesOutsidePrefixAreNotFound(t *testing.T) {
	engine := gin.New()

	group := NewDomainGroup("review", "/reviews")
	group.GET("/catalog", echo("catalog"))

	NewRouter(engine).Register(group).Setup()

	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/reviews/catalog").Code)
}

func TestDomainGroupMiddlewareRunsBeforeHandlers(t *testing.T) {
	engine := gin.New()

	group := NewDomainGroup("review", "/reviews")
	group.Use(func(c *gin.Context) {
		c.Header("X-Group", group.Name())
		c.Next()
	})
	group.GET("/catalog", echo("catalog"))

	NewRouter(engine).Register(group).Setup()

	w := serve(engine, http.MethodGet, "/api/v1/reviews/catalog")
	assert.Equal(t, "review", w.Header().Get("X-Group"))
	assert.Equal(t, "catalog", w.Body.String())
}

func TestDomainGroupMiddlewareScopedToGroup(t *testing.T) {
	engine := gin.New()

	guarded := NewDomainGroup("review", "/reviews")
	guarded.Use(func(c *gin.Context) {
		c.AbortWithStatus(http.StatusForbidden)
	})
	guarded.GET("/catalog", echo("catalog"))

	open := NewDomainGroup("system", "/system")
	open.GET("/ping", echo("pong"))

	NewRouter(engine).Register(guarded, open).Setup()

	assert.Equal(t, http.StatusForbidden, serve(engine, http.MethodGet, "/api/v1/reviews/catalog").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/system/ping").Code)
}
