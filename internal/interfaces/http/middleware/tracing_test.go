package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

// traceHarness installs a recording tracer provider globally and builds a
// router running the tracing chain in production order. The handler
// answers GET /close with the given status.
func traceHarness(t *testing.T, status int) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	router := gin.New()
	router.Use(RequestID())
	router.Use(Tracing("review-test"))
	router.Use(SpanEnricher())
	router.GET("/close", func(c *gin.Context) {
		c.JSON(status, gin.H{"status": http.StatusText(status)})
	})
	return router, sr
}

// requestSpan returns the server span recorded for GET /close.
func requestSpan(t *testing.T, sr *tracetest.SpanRecorder) sdktrace.ReadOnlySpan {
	t.Helper()

	for _, span := range sr.Ended() {
		if span.Name() == "GET /close" {
			return span
		}
	}
	t.Fatal("no request span recorded")
	return nil
}

func TestTracingRecordsRequestSpan(t *testing.T) {
	router, sr := traceHarness(t, http.StatusOK)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/close", nil))

	require.Equal(t, http.StatusOK, w.Code)
	span := requestSpan(t, sr)
	assert.NotEqual(t, codes.Error, span.Status().Code)
}

func TestSpanEnricherTagsRequestID(t *testing.T) {
	router, sr := traceHarness(t, http.StatusOK)

	req := httptest.NewRequest(http.MethodGet, "/close", nil)
	req.Header.Set("X-Request-ID", "close-run-99")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var got string
	for _, attr := range requestSpan(t, sr).Attributes() {
		if attr.Key == "request_id" {
			got = attr.Value.AsString()
		}
	}
	assert.Equal(t, "close-run-99", got)
}

func TestSpanEnricherMarksClientAndServerErrors(t *testing.T) {
	tests := []struct {
		status          int
		wantDescription string
	}{
		{status: http.StatusBadRequest, wantDescription: "Bad Request"},
		{status: http.StatusNotFound, wantDescription: "Not Found"},
		{status: http.StatusUnprocessableEntity, wantDescription: "Unprocessable Entity"},
	}

	for _, tt := range tests {
		t.Run(tt.wantDescription, func(t *testing.T) {
			router, sr := traceHarness(t, tt.status)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/close", nil))

			status := requestSpan(t, sr).Status()
			assert.Equal(t, codes.Error, status.Code)
			assert.Equal(t, tt.wantDescription, status.Description)
		})
	}
}

func TestSpanEnricherMarksInternalErrors(t *testing.T) {
	router, sr := traceHarness(t, http.StatusInternalServerError)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/close", nil))

	assert.Equal(t, codes.Error, requestSpan(t, sr).Status().Code)
}

func TestSpanEnricherWithoutRecordingSpan(t *testing.T) {
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(noop.NewTracerProvider())
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	router := gin.New()
	router.Use(SpanEnricher())
	router.GET("/close", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error"})
	})

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/close", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
