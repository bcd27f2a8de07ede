// Package orchestratortest provides an in-memory Orchestrator for tests.
package orchestratortest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mercator-hq/lazyproxy/pkg/orchestrator"
)

type fakeService struct {
	svc orchestrator.Service

	// readyAfter is the number of Status calls after a Start that still
	// report the service as stopped. Negative means it never comes up.
	readyAfter   int
	pendingPolls int
	starting     bool

	startErr error
	stopErr  error

	starts int
	stops  int
}

// Fake is a thread-safe in-memory orchestrator.
type Fake struct {
	mu       sync.Mutex
	services map[string]*fakeService
	listErr  error
	statuses int
}

var _ orchestrator.Orchestrator = (*Fake)(nil)

// NewFake creates an empty fake orchestrator.
func NewFake() *Fake {
	return &Fake{services: make(map[string]*fakeService)}
}

// Add registers a service. Calling Add again replaces it and resets counters.
func (f *Fake) Add(svc orchestrator.Service) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if svc.State == "" {
		svc.State = orchestrator.StateStopped
	}
	if svc.ContainerID == "" && svc.State != orchestrator.StateAbsent {
		svc.ContainerID = "ctr-" + svc.Name
	}
	f.services[svc.Name] = &fakeService{svc: svc}
}

// Remove drops a service so it is reported as absent.
func (f *Fake) Remove(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.services, name)
}

// SetState forces the state of a registered service.
func (f *Fake) SetState(name string, state orchestrator.State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.services[name]; ok {
		s.svc.State = state
		s.starting = false
	}
}

// ReadyAfter makes the service report stopped for n Status calls after a
// Start before it reports running. A negative n means it never starts.
func (f *Fake) ReadyAfter(name string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.services[name]; ok {
		s.readyAfter = n
	}
}

// FailStart makes Start return err for the service.
func (f *Fake) FailStart(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.services[name]; ok {
		s.startErr = err
	}
}

// FailStop makes Stop return err for the service.
func (f *Fake) FailStop(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.services[name]; ok {
		s.stopErr = err
	}
}

// FailList makes ListServices return err. Pass nil to clear.
func (f *Fake) FailList(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

// StartCalls returns how many times Start was called for the service.
func (f *Fake) StartCalls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.services[name]; ok {
		return s.starts
	}
	return 0
}

// StopCalls returns how many times Stop was called for the service.
func (f *Fake) StopCalls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.services[name]; ok {
		return s.stops
	}
	return 0
}

// StatusCalls returns the total number of Status calls.
func (f *Fake) StatusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses
}

// State returns the current state of the service.
func (f *Fake) State(name string) orchestrator.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.services[name]; ok {
		return s.svc.State
	}
	return orchestrator.StateAbsent
}

// ListServices returns a copy of every registered service, sorted by name.
func (f *Fake) ListServices(ctx context.Context) ([]orchestrator.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]orchestrator.Service, 0, len(f.services))
	for _, s := range f.services {
		out = append(out, s.svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Status reports the service state, advancing any pending start.
func (f *Fake) Status(ctx context.Context, name string) (orchestrator.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses++
	s, ok := f.services[name]
	if !ok {
		return orchestrator.Service{Name: name, State: orchestrator.StateAbsent}, nil
	}
	if s.starting {
		if s.pendingPolls == 0 {
			s.svc.State = orchestrator.StateRunning
			s.starting = false
		} else if s.pendingPolls > 0 {
			s.pendingPolls--
		}
	}
	return s.svc, nil
}

// Start records the call and schedules the service to come up.
func (f *Fake) Start(ctx context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.services[name]
	if !ok {
		return fmt.Errorf("start %s: %w", name, orchestrator.ErrServiceNotFound)
	}
	s.starts++
	if s.startErr != nil {
		return s.startErr
	}
	if s.svc.State == orchestrator.StateRunning {
		return nil
	}
	s.starting = true
	s.pendingPolls = s.readyAfter
	return nil
}

// Stop records the call and marks the service stopped.
func (f *Fake) Stop(ctx context.Context, name string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.services[name]
	if !ok {
		return fmt.Errorf("stop %s: %w", name, orchestrator.ErrServiceNotFound)
	}
	s.stops++
	if s.stopErr != nil {
		return s.stopErr
	}
	s.svc.State = orchestrator.StateStopped
	s.starting = false
	return nil
}
