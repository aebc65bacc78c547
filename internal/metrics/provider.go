// Package metrics provides OpenTelemetry instruments exported in Prometheus format:
// HTTP request metrics, business operation metrics and the signing key info gauge.
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Provider owns the meter provider every instrument is created from and the private
// Prometheus registry the metrics server scrapes. Nothing is registered on the global
// Prometheus registry.
type Provider struct {
	meterProvider *metric.MeterProvider
	registry      *prometheus.Registry
}

// NewProvider wires an OpenTelemetry meter provider to a fresh registry. The registry
// also carries Go runtime and process collectors, the latter prefixed with namespace.
func NewProvider(namespace string) (*Provider, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register go collector: %w", err)
	}
	processOpts := collectors.ProcessCollectorOpts{Namespace: namespace}
	if err := registry.Register(collectors.NewProcessCollector(processOpts)); err != nil {
		return nil, fmt.Errorf("failed to register process collector: %w", err)
	}

	reader, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	return &Provider{
		meterProvider: metric.NewMeterProvider(metric.WithReader(reader)),
		registry:      registry,
	}, nil
}

// Handler renders the registry for scrapes, negotiating OpenMetrics when asked.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// MeterProvider is passed to the middleware and instrument constructors of this package.
func (p *Provider) MeterProvider() *metric.MeterProvider {
	return p.meterProvider
}

// Shutdown flushes and stops the meter provider. A nil provider is a no-op.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
