package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the client-side instruments recorded around every request.
type Metrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
	sessionsCreated metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	requestTotal, err := meter.Int64Counter("spacs.requests",
		metric.WithDescription("Total number of HTTP requests issued"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating spacs.requests counter: %w", err)
	}

	requestDuration, err := meter.Float64Histogram("spacs.request.duration",
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating spacs.request.duration histogram: %w", err)
	}

	requestActive, err := meter.Int64UpDownCounter("spacs.requests.active",
		metric.WithDescription("Number of in-flight HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating spacs.requests.active counter: %w", err)
	}

	sessionsCreated, err := meter.Int64Counter("spacs.sessions.created",
		metric.WithDescription("Pooled sessions constructed by the registry"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating spacs.sessions.created counter: %w", err)
	}

	return &Metrics{
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestActive:   requestActive,
		sessionsCreated: sessionsCreated,
	}, nil
}

// DefaultMetrics builds instruments on the global meter provider. Instrument
// creation on the otel API never fails for valid names, so errors are
// reported through otel's global handler and nil instruments are skipped.
func DefaultMetrics() *Metrics {
	m, err := NewMetrics(Meter(InstrumentationName))
	if err != nil {
		otel.Handle(err)
		return nil
	}
	return m
}

// RecordRequestStart increments the in-flight request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd decrements in-flight requests and records the outcome.
// outcome is "ok", "http_error" or "transport_error".
func (m *Metrics) RecordRequestEnd(ctx context.Context, client, method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestActive.Add(ctx, -1)
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("client", client),
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("client", client),
		attribute.String("method", method),
	))
}

// RecordSessionCreated counts a session construction.
func (m *Metrics) RecordSessionCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessionsCreated.Add(ctx, 1)
}
