package proxy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/lazyproxy/pkg/activity"
	"mercator-hq/lazyproxy/pkg/config"
	"mercator-hq/lazyproxy/pkg/telemetry/logging"
	"mercator-hq/lazyproxy/pkg/telemetry/metrics"
	"mercator-hq/lazyproxy/pkg/telemetry/tracing"
)

// Starter brings a backing service up before a request is forwarded to the
// given port. *lifecycle.Coordinator implements it.
type Starter interface {
	EnsureListening(ctx context.Context, service string, port int) error
}

// Handler is the lazy-activation reverse proxy handler. Every request is
// routed by its routing headers, marks the target busy for its whole
// duration, waits for the target to be running and is then forwarded.
type Handler struct {
	starter   Starter
	tracker   *activity.Tracker
	forwarder *Forwarder
	metrics   *metrics.Collector

	serviceHeader string
	portHeader    string
}

// NewHandler creates the proxy handler. collector may be nil. Spans are
// recorded with the forwarder's tracer.
func NewHandler(cfg config.ProxyConfig, starter Starter, tracker *activity.Tracker, forwarder *Forwarder, collector *metrics.Collector) *Handler {
	return &Handler{
		starter:       starter,
		tracker:       tracker,
		forwarder:     forwarder,
		metrics:       collector,
		serviceHeader: cfg.ServiceHeader,
		portHeader:    cfg.PortHeader,
	}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	began := time.Now()

	ctx, span := h.forwarder.tracer.StartRequest(r)
	defer span.End()
	r = r.WithContext(ctx)

	target, err := ParseTarget(r.Header, h.serviceHeader, h.portHeader)
	if err != nil {
		h.fail(w, r, "", began, err)
		return
	}
	tracing.SetTarget(span, target.Service, target.Port)
	span.SetAttributes(tracing.AttrRequestID.String(logging.GetRequestID(ctx)))

	ctx = logging.WithService(ctx, target.Service)
	r = r.WithContext(ctx)

	h.tracker.RecordEntry(target.Service)
	defer h.tracker.RecordExit(target.Service)
	h.metrics.IncInFlight(target.Service)
	defer h.metrics.DecInFlight(target.Service)

	if err := h.ensureRunning(ctx, target); err != nil {
		h.fail(w, r, target.Service, began, err)
		return
	}

	err = h.forwarder.Forward(w, r, target, h.serviceHeader, h.portHeader)
	if err != nil {
		var fe *ForwardError
		if errors.As(err, &fe) && fe.Committed {
			logging.FromContext(ctx).WarnContext(ctx, "response relay interrupted",
				"target", target.Host(),
				"error", fe.Err,
			)
			tracing.SetOutcome(span, metrics.OutcomeUpstreamErr)
			tracing.SetError(span, err)
			h.metrics.RecordRequest(target.Service, metrics.OutcomeUpstreamErr, time.Since(began))
			return
		}
		h.fail(w, r, target.Service, began, err)
		return
	}

	tracing.SetOutcome(span, metrics.OutcomeOK)
	h.metrics.RecordRequest(target.Service, metrics.OutcomeOK, time.Since(began))
}

func (h *Handler) ensureRunning(ctx context.Context, target Target) error {
	ctx, span := h.forwarder.tracer.Start(ctx, tracing.SpanEnsureRunning)
	defer span.End()

	err := h.starter.EnsureListening(ctx, target.Service, target.Port)
	tracing.SetError(span, err)
	return err
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, service string, began time.Time, err error) {
	errResp := HandleError(err)
	status := errResp.Error.HTTPStatusCode()

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "proxy request failed",
		"status", status,
		"error", err,
	)

	span := trace.SpanFromContext(r.Context())
	tracing.SetStatusCode(span, status)
	tracing.SetOutcome(span, outcomeFor(err))
	tracing.SetError(span, err)

	WriteErrorResponse(w, errResp)
	h.metrics.RecordRequest(service, outcomeFor(err), time.Since(began))
}
