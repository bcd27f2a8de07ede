package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys recorded on proxy spans.
const (
	AttrService    = attribute.Key("lazyproxy.service")
	AttrPort       = attribute.Key("lazyproxy.port")
	AttrOutcome    = attribute.Key("lazyproxy.outcome")
	AttrRequestID  = attribute.Key("lazyproxy.request_id")
	AttrMethod     = attribute.Key("http.request.method")
	AttrPath       = attribute.Key("url.path")
	AttrStatusCode = attribute.Key("http.response.status_code")
	AttrServerAddr = attribute.Key("server.address")
)

func requestAttributes(r *http.Request) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrMethod.String(r.Method),
		AttrPath.String(r.URL.Path),
	}
}

// SetTarget records the routed service and port on span.
func SetTarget(span trace.Span, service string, port int) {
	span.SetAttributes(
		AttrService.String(service),
		AttrPort.Int(port),
	)
}

// SetStatusCode records the HTTP status written to the client. 5xx marks
// the span as failed.
func SetStatusCode(span trace.Span, status int) {
	span.SetAttributes(AttrStatusCode.Int(status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

// SetOutcome records the request outcome label used by the metrics.
func SetOutcome(span trace.Span, outcome string) {
	span.SetAttributes(AttrOutcome.String(outcome))
}

// SetError records err on span and marks it failed.
func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
