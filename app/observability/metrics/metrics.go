package metrics

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "go-blog-api"

// AppMetrics holds the application's metric instruments. All recording
// methods are safe to call on a nil *AppMetrics so tests and tools can skip
// metrics entirely.
type AppMetrics struct {
	AuthAttemptsTotal          metric.Int64Counter
	SignupsTotal               metric.Int64Counter
	DbQueryDurationSeconds     metric.Float64Histogram
	DbQueryErrorsTotal         metric.Int64Counter
	HTTPRequestsTotal          metric.Int64Counter
	HTTPRequestDurationSeconds metric.Float64Histogram
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// New creates the instruments on the given meter.
func New(meter metric.Meter) (*AppMetrics, error) {
	var err error
	m := &AppMetrics{}

	m.AuthAttemptsTotal, err = meter.Int64Counter(
		"auth_attempts_total",
		metric.WithDescription("Sign in attempts by method and outcome"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("auth_attempts_total: %w", err)
	}

	m.SignupsTotal, err = meter.Int64Counter(
		"signups_total",
		metric.WithDescription("Accounts created by method"),
		metric.WithUnit("{account}"),
	)
	if err != nil {
		return nil, fmt.Errorf("signups_total: %w", err)
	}

	m.DbQueryDurationSeconds, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Duration of database queries in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("db_query_duration_seconds: %w", err)
	}

	m.DbQueryErrorsTotal, err = meter.Int64Counter(
		"db_query_errors_total",
		metric.WithDescription("Total number of database query errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("db_query_errors_total: %w", err)
	}

	m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("HTTP requests by route and status"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("http_requests_total: %w", err)
	}

	m.HTTPRequestDurationSeconds, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("http_request_duration_seconds: %w", err)
	}

	return m, nil
}

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		m, err := New(otel.GetMeterProvider().Meter(meterName))
		if err != nil {
			log.Fatalf("Metrics: failed to create instruments: %v", err)
		}
		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}

// RecordAuth counts a sign in attempt. method is "password" or "google";
// outcome is "success" or a short failure reason.
func (m *AppMetrics) RecordAuth(ctx context.Context, method, outcome string) {
	if m == nil {
		return
	}
	m.AuthAttemptsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
}

func (m *AppMetrics) RecordSignup(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.SignupsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}

// ObserveQuery records the duration of one query started at start.
func (m *AppMetrics) ObserveQuery(ctx context.Context, operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

func (m *AppMetrics) ObserveRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDurationSeconds.Record(ctx, elapsed.Seconds(), attrs)
}
