package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/faultkit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider with an OTLP HTTP
// exporter and installs it globally. Shut the provider down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Retry outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeExhausted    = "exhausted"
	OutcomeNonRetryable = "non_retryable"
	OutcomeCanceled     = "canceled"
)

// Metrics holds the fault and resilience instruments.
type Metrics struct {
	faults        metric.Int64Counter
	rateLimited   metric.Int64Counter
	retryAttempts metric.Int64Counter
	retryCalls    metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	faults, err := meter.Int64Counter("faults.total",
		metric.WithDescription("Failures returned to clients by kind and protocol"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating faults.total counter: %w", err)
	}

	rateLimited, err := meter.Int64Counter("ratelimit.denied.total",
		metric.WithDescription("Requests denied by a rate limiter"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ratelimit.denied.total counter: %w", err)
	}

	retryAttempts, err := meter.Int64Counter("retry.attempts.total",
		metric.WithDescription("Attempts made by retry policies by final outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating retry.attempts.total counter: %w", err)
	}

	retryCalls, err := meter.Int64Counter("retry.calls.total",
		metric.WithDescription("Retried operations by final outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating retry.calls.total counter: %w", err)
	}

	return &Metrics{
		faults:        faults,
		rateLimited:   rateLimited,
		retryAttempts: retryAttempts,
		retryCalls:    retryCalls,
	}, nil
}

// RecordFault counts one failure rendered for a client.
func (m *Metrics) RecordFault(ctx context.Context, kind string, code int, protocol, handler string) {
	m.faults.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Int("code", code),
		attribute.String("protocol", protocol),
		attribute.String("handler", handler),
	))
}

// RecordRateLimited counts one denial by the named limiter.
func (m *Metrics) RecordRateLimited(ctx context.Context, limiter string) {
	m.rateLimited.Add(ctx, 1, metric.WithAttributes(
		attribute.String("limiter", limiter),
	))
}

// RecordRetry records a finished retried operation.
func (m *Metrics) RecordRetry(ctx context.Context, policy, outcome string, attempts int) {
	attrs := metric.WithAttributes(
		attribute.String("policy", policy),
		attribute.String("outcome", outcome),
	)
	m.retryCalls.Add(ctx, 1, attrs)
	m.retryAttempts.Add(ctx, int64(attempts), attrs)
}
