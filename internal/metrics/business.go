package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Status label values shared by every business metric.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// BusinessMetrics records counts and latencies of domain operations.
//
// Labels are domain ("user", "outbox"), operation ("register", "login", "publish") and
// status (StatusSuccess or StatusError).
type BusinessMetrics interface {
	RecordOperation(ctx context.Context, domain, operation, status string)
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)
}

// Observe records both the count and the duration of one operation that started at start.
// A non-nil err is recorded as StatusError.
func Observe(ctx context.Context, m BusinessMetrics, domain, operation string, start time.Time, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.RecordOperation(ctx, domain, operation, status)
	m.RecordDuration(ctx, domain, operation, time.Since(start), status)
}

type businessMetrics struct {
	operations metric.Int64Counter
	latency    metric.Float64Histogram
}

// NewBusinessMetrics registers <namespace>_operations_total and
// <namespace>_operation_duration_seconds on meterProvider.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operations, err := meter.Int64Counter(
		namespace+"_operations_total",
		metric.WithDescription("Domain operations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operations counter: %w", err)
	}

	latency, err := meter.Float64Histogram(
		namespace+"_operation_duration_seconds",
		metric.WithDescription("Latency of domain operations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation duration histogram: %w", err)
	}

	return &businessMetrics{operations: operations, latency: latency}, nil
}

func labels(domain, operation, status string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operations.Add(ctx, 1, labels(domain, operation, status))
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.latency.Record(ctx, duration.Seconds(), labels(domain, operation, status))
}

// NoOpBusinessMetrics discards everything. The container hands it out when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics returns a BusinessMetrics that records nothing.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return NoOpBusinessMetrics{}
}

func (NoOpBusinessMetrics) RecordOperation(context.Context, string, string, string) {}

func (NoOpBusinessMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {}
