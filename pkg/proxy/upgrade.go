package proxy

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// upgradeType returns the protocol requested through Upgrade when Connection
// carries the upgrade token, or "".
func upgradeType(h http.Header) string {
	if !headerHasToken(h, "Connection", "upgrade") {
		return ""
	}
	return h.Get("Upgrade")
}

func headerHasToken(h http.Header, name, token string) bool {
	for _, v := range h.Values(name) {
		for _, t := range strings.Split(v, ",") {
			if strings.EqualFold(textproto.TrimString(t), token) {
				return true
			}
		}
	}
	return false
}

// relayUpgrade completes a 101 Switching Protocols exchange: the client
// connection is hijacked, sent the backend's handshake response and then
// spliced to the backend connection until either side closes.
func relayUpgrade(w http.ResponseWriter, r *http.Request, resp *http.Response, target Target) error {
	reqType, respType := upgradeType(r.Header), upgradeType(resp.Header)
	if !strings.EqualFold(reqType, respType) {
		return &ForwardError{
			Service: target.Service,
			Err:     fmt.Errorf("backend switched to protocol %q, requested %q", respType, reqType),
		}
	}

	backConn, ok := resp.Body.(io.ReadWriteCloser)
	if !ok {
		return &ForwardError{Service: target.Service, Err: errors.New("switching protocols response body is not writable")}
	}

	conn, brw, err := http.NewResponseController(w).Hijack()
	if err != nil {
		return &ForwardError{Service: target.Service, Err: fmt.Errorf("hijack client connection: %w", err)}
	}
	defer conn.Close()

	// The server's read and write timeouts are for request-response
	// exchanges and must not cut the upgraded stream.
	if err := conn.SetDeadline(time.Time{}); err != nil {
		return &ForwardError{Service: target.Service, Committed: true, Err: err}
	}

	header := w.Header().Clone()
	copyResponseHeaders(header, resp.Header)
	header.Set("Connection", "Upgrade")
	header.Set("Upgrade", respType)

	if _, err := fmt.Fprintf(brw, "HTTP/1.1 %d %s\r\n", resp.StatusCode, http.StatusText(resp.StatusCode)); err != nil {
		return &ForwardError{Service: target.Service, Committed: true, Err: err}
	}
	if err := header.Write(brw); err != nil {
		return &ForwardError{Service: target.Service, Committed: true, Err: err}
	}
	if _, err := brw.WriteString("\r\n"); err != nil {
		return &ForwardError{Service: target.Service, Committed: true, Err: err}
	}
	if err := brw.Flush(); err != nil {
		return &ForwardError{Service: target.Service, Committed: true, Err: err}
	}

	// Bytes the server read past the request headers belong to the new
	// protocol, so the client side is read through brw.
	errc := make(chan error, 2)
	go splice(backConn, brw.Reader, errc)
	go splice(conn, backConn, errc)

	select {
	case err = <-errc:
	case <-r.Context().Done():
		err = r.Context().Err()
	}
	// The deferred closes unblock the other direction.
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return &ForwardError{Service: target.Service, Committed: true, Err: err}
	}
	return nil
}

// splice copies src to dst. A clean EOF is reported as nil.
func splice(dst io.Writer, src io.Reader, errc chan<- error) {
	_, err := io.Copy(dst, src)
	errc <- err
}
