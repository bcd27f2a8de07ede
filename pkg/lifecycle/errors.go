package lifecycle

import (
	"errors"
	"fmt"
)

// ReasonTimeout is the StartFailure reason when the service never reported
// running within the poll bound.
const ReasonTimeout = "timeout"

// ErrStartTimeout is wrapped by a StartFailure whose reason is ReasonTimeout.
var ErrStartTimeout = errors.New("service did not become ready")

// StartFailure is returned by EnsureRunning when a service could not be
// brought up.
type StartFailure struct {
	Service string
	Reason  string
	Err     error
}

func (e *StartFailure) Error() string {
	return fmt.Sprintf("service %s failed to start: %s", e.Service, e.Reason)
}

func (e *StartFailure) Unwrap() error {
	return e.Err
}

// ReclaimError records a failed status or stop call during a reaper cycle.
type ReclaimError struct {
	Service string
	Op      string
	Err     error
}

func (e *ReclaimError) Error() string {
	return fmt.Sprintf("reclaim %s: %s: %v", e.Service, e.Op, e.Err)
}

func (e *ReclaimError) Unwrap() error {
	return e.Err
}

// DiscoveryError is returned by RunCycle when the orchestrator could not list
// services. The cycle is skipped entirely.
type DiscoveryError struct {
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("service discovery failed: %v", e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}
