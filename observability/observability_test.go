package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewMetrics_Noop(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")
	metrics, err := NewMetrics(meter)
	if err != nil {
		t.Fatalf("unexpected error creating metrics: %v", err)
	}

	ctx := context.Background()
	metrics.RecordRequestStart(ctx)
	metrics.RecordRequestEnd(ctx, "svc", "GET", "ok", 100*time.Millisecond)
	metrics.RecordSessionCreated(ctx)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordRequestStart(ctx)
	m.RecordRequestEnd(ctx, "svc", "GET", "ok", time.Millisecond)
	m.RecordSessionCreated(ctx)
}

func TestMetrics_Recorded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(context.Background())

	metrics, err := NewMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	metrics.RecordRequestStart(ctx)
	metrics.RecordRequestEnd(ctx, "echo", "GET", "ok", 20*time.Millisecond)
	metrics.RecordSessionCreated(ctx)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect failed: %v", err)
	}

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
			if m.Name == "spacs.requests" {
				sum, ok := m.Data.(metricdata.Sum[int64])
				if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 1 {
					t.Errorf("unexpected spacs.requests data: %#v", m.Data)
				}
			}
		}
	}
	for _, name := range []string{"spacs.requests", "spacs.request.duration", "spacs.requests.active", "spacs.sessions.created"} {
		if !found[name] {
			t.Errorf("expected metric %s to be collected", name)
		}
	}
}

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer provider.Shutdown(context.Background())

	ctx, span := provider.Tracer("test").Start(context.Background(), SpanHTTPRequest)
	SetSpanAttribute(ctx, AttrHTTPMethod, "GET")
	SetSpanAttribute(ctx, AttrHTTPStatus, 504)
	SetSpanAttribute(ctx, "ignored", struct{}{})
	SetSpanError(ctx, errors.New("gateway timeout"))
	SetSpanError(ctx, nil)
	span.End()

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	got := spans[0]
	if got.Name() != SpanHTTPRequest {
		t.Errorf("expected span name %s, got %s", SpanHTTPRequest, got.Name())
	}
	if got.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", got.Status())
	}
	if len(got.Events()) != 1 {
		t.Errorf("expected one recorded error event, got %d", len(got.Events()))
	}

	attrs := map[string]bool{}
	for _, a := range got.Attributes() {
		attrs[string(a.Key)] = true
	}
	if !attrs[AttrHTTPMethod] || !attrs[AttrHTTPStatus] || attrs["ignored"] {
		t.Errorf("unexpected attributes %v", got.Attributes())
	}
}

func TestSpanHelpers_NonRecording(t *testing.T) {
	// No span in context: helpers must be no-ops.
	ctx := context.Background()
	SetSpanAttribute(ctx, "k", "v")
	SetSpanError(ctx, errors.New("x"))

	ctx, span := StartSpan(ctx, SpanSessionAcquire)
	defer span.End()
	if !SpanFromContext(ctx).SpanContext().Equal(span.SpanContext()) {
		t.Error("expected span to be stored in context")
	}
}
