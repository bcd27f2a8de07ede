package proxy

import (
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
)

// serviceNamePattern accepts a single host label. Dots are rejected so a
// routing header can only ever name a service on the compose network, never an
// arbitrary host.
var serviceNamePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9_-]{0,61}[A-Za-z0-9])?$`)

// Target identifies the backing service a request is routed to.
type Target struct {
	Service string
	Port    int
}

// Host returns the service:port authority of the target.
func (t Target) Host() string {
	return net.JoinHostPort(t.Service, strconv.Itoa(t.Port))
}

// URL returns the base URL of the target, without a trailing slash.
func (t Target) URL() string {
	return "http://" + t.Host()
}

// RoutingError reports a missing or malformed routing header.
type RoutingError struct {
	Header  string
	Missing bool
	Reason  string
}

func (e *RoutingError) Error() string {
	if e.Missing {
		return fmt.Sprintf("missing required header %s", e.Header)
	}
	return fmt.Sprintf("invalid %s header: %s", e.Header, e.Reason)
}

// ParseTarget reads the routing headers from h.
func ParseTarget(h http.Header, serviceHeader, portHeader string) (Target, error) {
	service := h.Get(serviceHeader)
	if service == "" {
		return Target{}, &RoutingError{Header: serviceHeader, Missing: true}
	}
	rawPort := h.Get(portHeader)
	if rawPort == "" {
		return Target{}, &RoutingError{Header: portHeader, Missing: true}
	}

	if !serviceNamePattern.MatchString(service) {
		return Target{}, &RoutingError{
			Header: serviceHeader,
			Reason: fmt.Sprintf("%q is not a valid service name", service),
		}
	}

	port, err := parsePort(rawPort)
	if err != nil {
		return Target{}, &RoutingError{Header: portHeader, Reason: err.Error()}
	}

	return Target{Service: service, Port: port}, nil
}

func parsePort(raw string) (int, error) {
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return 0, fmt.Errorf("%q is not an integer", raw)
		}
	}
	port, err := strconv.Atoi(raw)
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("%q is outside 1-65535", raw)
	}
	return port, nil
}
