package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"mercator-hq/lazyproxy/pkg/config"
	"mercator-hq/lazyproxy/pkg/telemetry/tracing"
)

// hopHeaders are never copied onto the outbound request. A protocol upgrade
// gets its Connection and Upgrade headers re-added.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// excludedResponseHeaders are never relayed back to the client, except for
// the Connection and Upgrade headers of a 101 response.
var excludedResponseHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
	"Content-Encoding",
	"Content-Length",
}

// ForwardError reports a failed forward. Committed is set when the response
// status had already been written to the client, in which case no error
// response can be sent.
type ForwardError struct {
	Service   string
	Committed bool
	Err       error
}

func (e *ForwardError) Error() string {
	return fmt.Sprintf("forward to %s: %v", e.Service, e.Err)
}

func (e *ForwardError) Unwrap() error {
	return e.Err
}

// DialFunc matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// ForwarderOption configures a Forwarder.
type ForwarderOption func(*forwarderOptions)

type forwarderOptions struct {
	dial   DialFunc
	tracer *tracing.Tracer
}

// WithDialContext replaces the dialer used to reach backing services.
func WithDialContext(dial DialFunc) ForwarderOption {
	return func(o *forwarderOptions) {
		o.dial = dial
	}
}

// WithTracer records a client span per forwarded request and propagates its
// trace context to the backing service.
func WithTracer(t *tracing.Tracer) ForwarderOption {
	return func(o *forwarderOptions) {
		o.tracer = t
	}
}

// Forwarder sends requests to backing services and relays their responses.
type Forwarder struct {
	client *http.Client

	// upgradeClient has no overall timeout: an upgraded connection lives as
	// long as its peers keep it open. The handshake is bounded by the
	// transport's response header timeout.
	upgradeClient *http.Client

	tracer *tracing.Tracer
}

// NewForwarder creates a Forwarder from the forward configuration. The
// transport never uses an environment proxy, never negotiates compression and
// never follows redirects, so the backing service's response reaches the
// client unchanged. Protocol upgrades such as WebSocket are relayed.
func NewForwarder(cfg config.ForwardConfig, opts ...ForwarderOption) *Forwarder {
	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	o := forwarderOptions{dial: dialer.DialContext}
	for _, opt := range opts {
		opt(&o)
	}

	transport := &http.Transport{
		Proxy:                 nil,
		DialContext:           o.dial,
		DisableCompression:    true,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		ResponseHeaderTimeout: cfg.Timeout,
	}
	noRedirect := func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Forwarder{
		tracer: o.tracer,
		client: &http.Client{
			Transport:     transport,
			Timeout:       cfg.Timeout,
			CheckRedirect: noRedirect,
		},
		upgradeClient: &http.Client{
			Transport:     transport,
			CheckRedirect: noRedirect,
		},
	}
}

// CloseIdleConnections closes idle connections to backing services.
func (f *Forwarder) CloseIdleConnections() {
	f.client.CloseIdleConnections()
}

// Forward sends r to target and writes the response to w.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, target Target, routingHeaders ...string) (err error) {
	ctx, span := f.tracer.Start(r.Context(), tracing.SpanForward,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.AttrServerAddr.String(target.Host())),
	)
	defer func() {
		tracing.SetError(span, err)
		span.End()
	}()

	out, err := buildRequest(r.WithContext(ctx), target, routingHeaders)
	if err != nil {
		return &ForwardError{Service: target.Service, Err: err}
	}
	f.tracer.Inject(ctx, out.Header)

	client := f.client
	if upgradeType(r.Header) != "" {
		client = f.upgradeClient
	}
	resp, err := client.Do(out)
	if err != nil {
		return &ForwardError{Service: target.Service, Err: err}
	}
	defer resp.Body.Close()
	tracing.SetStatusCode(span, resp.StatusCode)

	if resp.StatusCode == http.StatusSwitchingProtocols {
		return relayUpgrade(w, r, resp, target)
	}

	copyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)

	if err := copyBody(w, resp); err != nil {
		return &ForwardError{Service: target.Service, Committed: true, Err: err}
	}
	return nil
}

func buildRequest(r *http.Request, target Target, routingHeaders []string) (*http.Request, error) {
	u := target.URL() + r.URL.EscapedPath()
	if r.URL.RawQuery != "" {
		u += "?" + r.URL.RawQuery
	}

	var body io.Reader = http.NoBody
	if r.ContentLength != 0 && r.Body != nil {
		body = r.Body
	}

	out, err := http.NewRequestWithContext(r.Context(), r.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != http.NoBody {
		out.ContentLength = r.ContentLength
	}

	out.Header = r.Header.Clone()
	if out.Header == nil {
		out.Header = make(http.Header)
	}
	removeConnectionHeaders(out.Header)
	for _, h := range hopHeaders {
		out.Header.Del(h)
	}
	for _, h := range routingHeaders {
		out.Header.Del(h)
	}
	out.Header.Del("Host")
	out.Header.Del("Accept-Encoding")
	if upgrade := upgradeType(r.Header); upgrade != "" {
		out.Header.Set("Connection", "Upgrade")
		out.Header.Set("Upgrade", upgrade)
	}

	setForwardedHeaders(out.Header, r)
	return out, nil
}

// removeConnectionHeaders drops the headers listed in Connection.
func removeConnectionHeaders(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = textproto.TrimString(name); name != "" {
				h.Del(name)
			}
		}
	}
}

func setForwardedHeaders(h http.Header, r *http.Request) {
	if clientIP, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if prior := h.Values("X-Forwarded-For"); len(prior) > 0 {
			clientIP = strings.Join(prior, ", ") + ", " + clientIP
		}
		h.Set("X-Forwarded-For", clientIP)
	}

	h.Set("X-Forwarded-Host", r.Host)

	proto := "http"
	if r.TLS != nil {
		proto = "https"
	}
	h.Set("X-Forwarded-Proto", proto)
}

func copyResponseHeaders(dst, src http.Header) {
	src = src.Clone()
	removeConnectionHeaders(src)
	for _, h := range excludedResponseHeaders {
		src.Del(h)
	}
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

// copyBody relays the response body. Responses of unknown length and event
// streams are flushed after every read so clients see data as it arrives.
func copyBody(w http.ResponseWriter, resp *http.Response) error {
	streaming := resp.ContentLength == -1 ||
		strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream")
	if !streaming {
		_, err := io.Copy(w, resp.Body)
		return err
	}

	rc := http.NewResponseController(w)
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			if ferr := rc.Flush(); ferr != nil && !errors.Is(ferr, http.ErrNotSupported) {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
