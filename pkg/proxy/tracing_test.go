package proxy

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/lazyproxy/pkg/activity"
	"mercator-hq/lazyproxy/pkg/config"
	"mercator-hq/lazyproxy/pkg/lifecycle"
	"mercator-hq/lazyproxy/pkg/orchestrator"
	"mercator-hq/lazyproxy/pkg/orchestrator/orchestratortest"
	"mercator-hq/lazyproxy/pkg/telemetry/tracing"
)

func newTracedHandler(t *testing.T, orch *orchestratortest.Fake, backend http.Handler) (*Handler, *tracetest.InMemoryExporter) {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	exp := tracetest.NewInMemoryExporter()
	tracer, err := tracing.New(context.Background(), config.TracingConfig{
		Enabled:     true,
		ServiceName: "lazyproxy-test",
		Sampler:     tracing.SamplerAlways,
	}, tracing.WithExporter(exp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })

	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, network, srv.Listener.Addr().String())
	}
	forwarder := NewForwarder(testForwardConfig(), WithDialContext(dial), WithTracer(tracer))
	t.Cleanup(forwarder.CloseIdleConnections)

	coordinator := lifecycle.NewCoordinator(orch, testCoordinatorConfig(), nil, nil)
	return NewHandler(testProxyConfig(), coordinator, activity.NewTracker(nil), forwarder, nil), exp
}

func spansByName(exp *tracetest.InMemoryExporter) map[string]tracetest.SpanStub {
	out := map[string]tracetest.SpanStub{}
	for _, s := range exp.GetSpans() {
		out[s.Name] = s
	}
	return out
}

func TestHandler_TracesRequestAndPropagates(t *testing.T) {
	var gotTraceparent string
	orch := orchestratortest.NewFake()
	orch.Add(orchestrator.Service{Name: "web", State: orchestrator.StateRunning})

	h, exp := newTracedHandler(t, orch, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTraceparent = r.Header.Get("traceparent")
		w.WriteHeader(http.StatusNoContent)
	}))

	req := proxyRequest(http.MethodGet, "/status", "web", "9000", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	spans := spansByName(exp)
	require.Len(t, spans, 3)
	request := spans[tracing.SpanRequest]
	ensure := spans[tracing.SpanEnsureRunning]
	forward := spans[tracing.SpanForward]

	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", request.SpanContext.TraceID().String())
	assert.Equal(t, request.SpanContext.SpanID(), ensure.Parent.SpanID())
	assert.Equal(t, request.SpanContext.SpanID(), forward.Parent.SpanID())

	// The backing service continues the trace under the forward span.
	want := "00-4bf92f3577b34da6a3ce929d0e0e4736-" + forward.SpanContext.SpanID().String() + "-01"
	assert.Equal(t, want, gotTraceparent)
}

func TestHandler_TracesStartFailure(t *testing.T) {
	orch := orchestratortest.NewFake()
	orch.Add(orchestrator.Service{Name: "slow"})
	orch.ReadyAfter("slow", -1)

	h, exp := newTracedHandler(t, orch, http.NotFoundHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, proxyRequest(http.MethodGet, "/", "slow", "80", nil))
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)

	spans := spansByName(exp)
	require.Contains(t, spans, tracing.SpanRequest)
	require.Contains(t, spans, tracing.SpanEnsureRunning)
	assert.NotContains(t, spans, tracing.SpanForward)

	request := spans[tracing.SpanRequest]
	assert.Equal(t, codes.Error, request.Status.Code)
	assert.Equal(t, codes.Error, spans[tracing.SpanEnsureRunning].Status.Code)

	var outcome string
	for _, kv := range request.Attributes {
		if kv.Key == tracing.AttrOutcome {
			outcome = kv.Value.AsString()
		}
	}
	assert.Equal(t, "start_failed", outcome)
}

func TestForwarder_DisabledTracingKeepsTraceparent(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("traceparent")
	}))
	defer srv.Close()

	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		var d net.Dialer
		return d.DialContext(ctx, network, srv.Listener.Addr().String())
	}
	tracer, err := tracing.New(context.Background(), config.TracingConfig{})
	require.NoError(t, err)
	f := NewForwarder(testForwardConfig(), WithDialContext(dial), WithTracer(tracer))
	defer f.CloseIdleConnections()

	inbound := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("traceparent", inbound)

	rec := httptest.NewRecorder()
	require.NoError(t, f.Forward(rec, req, Target{Service: "web", Port: 80}))
	assert.True(t, strings.EqualFold(inbound, got), "traceparent = %q", got)
}
