// Package tracing configures OpenTelemetry span export.
package tracing

import (
	"context"
	"io"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer owns the provider that exports spans as JSON lines to a writer.
type Tracer struct {
	ServiceName string
	Provider    *sdk.TracerProvider
}

// NewExporter creates an exporter that writes span data to w.
func NewExporter(w io.Writer) (sdk.SpanExporter, error) {
	return stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithoutTimestamps(),
	)
}

// NewResource describes this service.
func NewResource(serviceName, version string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(version),
	)
}

func New(serviceName, version string, w io.Writer) (*Tracer, error) {
	exporter, err := NewExporter(w)
	if err != nil {
		return nil, err
	}

	return &Tracer{
		ServiceName: serviceName,
		Provider: sdk.NewTracerProvider(
			sdk.WithBatcher(exporter),
			sdk.WithResource(NewResource(serviceName, version)),
		),
	}, nil
}

// Install makes the provider global so otel.Tracer calls use it.
func (t *Tracer) Install() {
	otel.SetTracerProvider(t.Provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// Tracer returns a tracer from this provider, independent of the global one.
func (t *Tracer) Tracer() trace.Tracer {
	return t.Provider.Tracer(t.ServiceName)
}

// Handler wraps h so every request starts a server span.
func (t *Tracer) Handler(h http.Handler) http.Handler {
	return otelhttp.NewHandler(h, "http.server",
		otelhttp.WithTracerProvider(t.Provider),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// Shutdown flushes pending spans.
func (t *Tracer) Shutdown(ctx context.Context) error {
	return t.Provider.Shutdown(ctx)
}
