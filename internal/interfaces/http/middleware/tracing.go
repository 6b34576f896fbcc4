// Package middleware carries the HTTP middleware chain for the review
// service: request ids, CORS, hardening headers, tracing, metrics, and
// body limits.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing instruments each request with otelgin, so spans opened by the
// handlers, including the per-rule spans of a review run, parent to the
// request span. Span names follow "METHOD route", for example
// "POST /api/v1/reviews/run".
func Tracing(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// SpanEnricher tags the request span with the id minted by RequestID and,
// once the handler chain has unwound, marks 4xx and 5xx responses as span
// errors. otelgin's server default treats only 5xx as errors; a rejected
// review run is a 422 and should surface in traces too. Place this after
// both Tracing and RequestID.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if id := c.GetString("request_id"); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}

		c.Next()

		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(status))
			span.SetAttributes(attribute.Int("http.response.status_code", status))
		}
	}
}
