package middleware

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var errNilMeter = errors.New("nil meter")

// httpDurationBuckets is in seconds. A review run over in-memory snapshots
// finishes well under a second, so most of the resolution sits below 1s.
var httpDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// httpSizeBuckets is in bytes and spans a catalog response up to a large
// multi-snapshot run request.
var httpSizeBuckets = []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304}

// requestInstruments holds the server-side HTTP instruments.
type requestInstruments struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
	inflight metric.Int64UpDownCounter
	reqSize  metric.Int64Histogram
	respSize metric.Int64Histogram
}

// HTTPMetrics returns middleware recording request count, latency, body
// sizes, and in-flight requests on meter. A nil meter or a failed
// instrument registration yields a pass-through handler: metrics never
// take the server down.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	inst, err := newRequestInstruments(meter)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		inst.inflight.Add(c.Request.Context(), 1)

		c.Next()

		// The post-handler context still carries the request span, so the
		// recorded points can be exemplar-linked to the trace.
		ctx := c.Request.Context()
		inst.inflight.Add(ctx, -1)

		attrs := metric.WithAttributes(
			attribute.String("http.request.method", c.Request.Method),
			attribute.String("http.route", routePattern(c)),
			attribute.Int("http.response.status_code", c.Writer.Status()),
		)
		inst.total.Add(ctx, 1, attrs)
		inst.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		if size := c.Request.ContentLength; size > 0 {
			inst.reqSize.Record(ctx, size, attrs)
		}
		if size := c.Writer.Size(); size > 0 {
			inst.respSize.Record(ctx, int64(size), attrs)
		}
	}
}

func newRequestInstruments(meter metric.Meter) (*requestInstruments, error) {
	if meter == nil {
		return nil, errNilMeter
	}

	var (
		inst requestInstruments
		err  error
	)
	if inst.total, err = meter.Int64Counter("http_server_request_total",
		metric.WithDescription("HTTP requests served"),
	); err != nil {
		return nil, err
	}
	if inst.duration, err = meter.Float64Histogram("http_server_request_duration_seconds",
		metric.WithDescription("Request latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(httpDurationBuckets...),
	); err != nil {
		return nil, err
	}
	if inst.inflight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("Requests currently being served"),
	); err != nil {
		return nil, err
	}
	if inst.reqSize, err = meter.Int64Histogram("http_server_request_size_bytes",
		metric.WithDescription("Request body size"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(httpSizeBuckets...),
	); err != nil {
		return nil, err
	}
	if inst.respSize, err = meter.Int64Histogram("http_server_response_size_bytes",
		metric.WithDescription("Response body size"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(httpSizeBuckets...),
	); err != nil {
		return nil, err
	}
	return &inst, nil
}

// routePattern labels series with the matched route, not the raw path, so
// an unmatched-path scan cannot explode series cardinality.
func routePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unmatched"
}
