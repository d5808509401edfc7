package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Provider is a meter provider exported through a private Prometheus
// registry.
type Provider struct {
	Meter    metric.Meter
	Handler  http.Handler
	provider *sdkmetric.MeterProvider
}

// NewPrometheus creates a Provider. Each call uses its own registry, so
// repeated calls do not conflict.
func NewPrometheus() (*Provider, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	return &Provider{
		Meter:    mp.Meter(meterName),
		Handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		provider: mp,
	}, nil
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.provider.Shutdown(ctx)
}
