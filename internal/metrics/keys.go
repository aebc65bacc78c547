package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RegisterSigningKeyInfo exposes <namespace>_signing_key_info{kid,alg} with a constant value
// of 1, so dashboards can tell which key a replica signs with.
func RegisterSigningKeyInfo(meterProvider metric.MeterProvider, namespace, keyID, algorithm string) error {
	meter := meterProvider.Meter(namespace)

	_, err := meter.Int64ObservableGauge(
		fmt.Sprintf("%s_signing_key_info", namespace),
		metric.WithDescription("Signing key currently used for access tokens"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(1, metric.WithAttributes(
				attribute.String("kid", keyID),
				attribute.String("alg", algorithm),
			))
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create signing key gauge: %w", err)
	}
	return nil
}
