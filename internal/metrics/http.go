package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// unmatchedRoute labels requests that hit no registered route.
const unmatchedRoute = "unknown"

type requestInstruments struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
}

func newRequestInstruments(meter metric.Meter, namespace string) (*requestInstruments, error) {
	total, err := meter.Int64Counter(
		namespace+"_http_requests_total",
		metric.WithDescription("HTTP requests served, by route and status code"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		namespace+"_http_request_duration_seconds",
		metric.WithDescription("Time spent serving HTTP requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &requestInstruments{total: total, duration: duration}, nil
}

func (i *requestInstruments) record(c *gin.Context, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", c.Request.Method),
		attribute.String("path", routeLabel(c.FullPath())),
		attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
	)
	ctx := c.Request.Context()
	i.total.Add(ctx, 1, attrs)
	i.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// HTTPMetricsMiddleware counts and times every request handled by the router. The
// path label is the route pattern, so raw URLs never become label values. When the
// instruments cannot be created the middleware is a pass-through.
func HTTPMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	instruments, err := newRequestInstruments(meterProvider.Meter(namespace), namespace)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		instruments.record(c, time.Since(start))
	}
}

func routeLabel(fullPath string) string {
	if fullPath == "" {
		return unmatchedRoute
	}
	return fullPath
}
