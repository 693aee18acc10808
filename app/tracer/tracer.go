package tracer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const serviceName = "go-blog-api"

// Providers bundles the installed providers and the handler that serves
// the Prometheus registry they export to.
type Providers struct {
	MetricsHandler http.Handler
	tracer         *trace.TracerProvider
	meter          *metric.MeterProvider
}

// InitTracingAndMetrics installs global tracer and meter providers. Metrics
// are exported to a dedicated Prometheus registry served by MetricsHandler.
func InitTracingAndMetrics() (*Providers, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	tp := trace.NewTracerProvider(trace.WithResource(res))
	otel.SetTracerProvider(tp)

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
	otel.SetMeterProvider(mp)

	return &Providers{
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		tracer:         tp,
		meter:          mp,
	}, nil
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(p.tracer.Shutdown(ctx), p.meter.Shutdown(ctx))
}
