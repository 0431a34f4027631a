// Package observability provides OpenTelemetry helpers for spacs.
//
// Spans and metrics are recorded through the global otel providers. The host
// application owns provider setup (exporters, sampling, resources); until it
// installs one, the otel no-op providers make every call here free.
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanHTTPRequest)
//	defer span.End()
package observability
