// Package tracing provides OpenTelemetry distributed tracing for lazyproxy.
//
// # Overview
//
// Every proxied request produces a server span, with child spans for waiting
// on the backing service and for the forwarded call. The forwarded request
// carries a W3C traceparent header, so a traced backing service continues
// the same trace:
//
//	traceparent: 00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01
//
// Spans are exported over OTLP gRPC.
//
// # Sampling
//
// Three strategies are supported, each wrapped in a parent-based sampler so
// an inbound sampling decision is honoured:
//   - always: sample every trace
//   - never: sample nothing
//   - ratio: sample a fraction of traces by trace ID
//
// # Usage
//
//	tracer, err := tracing.New(ctx, cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.StartRequest(r)
//	defer span.End()
//
// A nil or disabled Tracer is valid and records nothing. When disabled,
// inbound trace headers pass through to the backing service untouched.
package tracing
