package orchestrator

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// State is the run state of a backing service.
type State string

const (
	StateAbsent  State = "absent"
	StateStopped State = "stopped"
	StateRunning State = "running"
)

// ErrServiceNotFound is returned by Stop when the orchestrator has no
// container for the service.
var ErrServiceNotFound = errors.New("service not found")

// Service is a backing service as reported by the orchestrator.
type Service struct {
	// Name is the logical service name used for routing.
	Name string `json:"name"`

	// ContainerID identifies the underlying container, empty when absent.
	ContainerID string `json:"container_id,omitempty"`

	// State is the current run state.
	State State `json:"state"`

	// Labels are the orchestrator labels attached to the service.
	Labels map[string]string `json:"labels,omitempty"`

	// DependsOn lists the services this one was started with.
	DependsOn []string `json:"depends_on,omitempty"`
}

// Running reports whether the service is running.
func (s Service) Running() bool {
	return s.State == StateRunning
}

// HasTrueLabel reports whether the label key is set to a true boolean value.
func (s Service) HasTrueLabel(key string) bool {
	v, ok := s.Labels[key]
	if !ok {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// HasLabel reports whether the label key is present, whatever its value.
func (s Service) HasLabel(key string) bool {
	_, ok := s.Labels[key]
	return ok
}

// Protected reports whether the label key is present and not explicitly
// false. An empty value counts as set.
func (s Service) Protected(key string) bool {
	v, ok := s.Labels[key]
	if !ok {
		return false
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	return true
}

// Orchestrator controls the lifecycle of backing services.
// Implementations can target Docker Compose, Kubernetes, systemd, etc.
type Orchestrator interface {
	// ListServices enumerates the services the orchestrator manages.
	ListServices(ctx context.Context) ([]Service, error)

	// Status reports the current state of a single service. An unknown
	// service is reported with StateAbsent and a nil error.
	Status(ctx context.Context, name string) (Service, error)

	// Start requests the service to be started. It returns once the
	// orchestrator accepted the request, not when the service is ready.
	Start(ctx context.Context, name string) error

	// Stop stops the service, giving it timeout to exit gracefully.
	Stop(ctx context.Context, name string, timeout time.Duration) error
}
