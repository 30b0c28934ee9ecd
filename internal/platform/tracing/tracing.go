// Package tracing provides OpenTelemetry span helpers around the
// forwarding engine's hot-path operations. Spans are emitted to stdout;
// there is no remote collector in this deployment shape, only the
// ambient trace-id/log correlation a single trace exporter still buys.
package tracing

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/asgard/cgrsat/internal/platform/dtn"

// Provider owns the SDK tracer provider for a node's lifetime.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// NewProvider builds a stdout-exporting tracer provider tagged with
// nodeID as its service instance. w defaults to a discarded writer if
// nil would otherwise panic the exporter; callers pass os.Stdout.
func NewProvider(nodeID string, w io.Writer) (*Provider, error) {
	if w == nil {
		w = io.Discard
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", "cgrsat"),
		attribute.String("node.id", nodeID),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tp: tp, tracer: tp.Tracer(instrumentationName)}, nil
}

// Shutdown flushes and stops the provider; call once at node exit.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}

// StartSubmit opens a span around ForwardingEngine.Submit.
func (p *Provider) StartSubmit(ctx context.Context, bundleID string, priority int, destination string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "forwarding.submit",
		trace.WithAttributes(
			attribute.String("bundle.id", bundleID),
			attribute.Int("bundle.priority", priority),
			attribute.String("bundle.destination", destination),
		),
	)
}

// StartDrain opens a span around ForwardingEngine.Drain.
func (p *Provider) StartDrain(ctx context.Context, now int64) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "forwarding.drain", trace.WithAttributes(attribute.Int64("now", now)))
}

// StartContactGraphConversion opens a span around
// TimeEvolvingGraph.ToContactGraph.
func (p *Provider) StartContactGraphConversion(ctx context.Context, origin, destination string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "teg.to_contact_graph",
		trace.WithAttributes(
			attribute.String("route.origin", origin),
			attribute.String("route.destination", destination),
		),
	)
}
