// Package activity tracks per-service request activity for idle reclamation.
//
// The Tracker records when each backing service was last used and how many
// requests are currently being proxied to it. The proxy handler brackets every
// forwarded request with RecordEntry and RecordExit; the reaper reads a
// Snapshot to decide which services are idle.
package activity

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Activity is the activity state of one service.
type Activity struct {
	// LastActiveAt is the time of the most recent request start or completion.
	LastActiveAt time.Time `json:"last_active_at"`

	// InFlight is the number of requests currently proxied to the service.
	InFlight int `json:"in_flight"`
}

// Idle reports whether no request is in flight.
func (a Activity) Idle() bool {
	return a.InFlight == 0
}

// IdleFor returns how long the service has been idle at now. It returns 0
// while requests are in flight.
func (a Activity) IdleFor(now time.Time) time.Duration {
	if !a.Idle() {
		return 0
	}
	return now.Sub(a.LastActiveAt)
}

// Tracker is the process-wide table of service activity.
// The zero value is not usable; create one with NewTracker.
type Tracker struct {
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[string]*Activity
}

// NewTracker creates an empty tracker. A nil clock uses the real clock.
func NewTracker(clock clockwork.Clock) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tracker{
		clock:   clock,
		entries: make(map[string]*Activity),
	}
}

// RecordEntry marks a request to service as started.
func (t *Tracker) RecordEntry(service string) {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	a := t.entry(service)
	a.InFlight++
	a.LastActiveAt = now
}

// RecordExit marks a request to service as finished. It must be called
// exactly once per RecordEntry; the count never drops below zero.
func (t *Tracker) RecordExit(service string) {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	a := t.entry(service)
	if a.InFlight > 0 {
		a.InFlight--
	}
	a.LastActiveAt = now
}

// Discover starts tracking service with a fresh idle clock. It returns false
// and leaves the entry untouched when the service is already tracked.
func (t *Tracker) Discover(service string) bool {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[service]; ok {
		return false
	}
	t.entries[service] = &Activity{LastActiveAt: now}
	return true
}

// Untrack removes service from the table.
func (t *Tracker) Untrack(service string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, service)
}

// Get returns the activity of a single service.
func (t *Tracker) Get(service string) (Activity, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.entries[service]
	if !ok {
		return Activity{}, false
	}
	return *a, true
}

// Tracked reports whether service has an entry.
func (t *Tracker) Tracked(service string) bool {
	_, ok := t.Get(service)
	return ok
}

// Len returns the number of tracked services.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Snapshot returns a point-in-time copy of every entry.
func (t *Tracker) Snapshot() map[string]Activity {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]Activity, len(t.entries))
	for name, a := range t.entries {
		out[name] = *a
	}
	return out
}

// Names returns the tracked service names in sorted order.
func (t *Tracker) Names() []string {
	t.mu.Lock()
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	t.mu.Unlock()

	sort.Strings(names)
	return names
}

// Now returns the tracker's notion of the current time.
func (t *Tracker) Now() time.Time {
	return t.clock.Now()
}

// entry returns the entry for service, creating it. Caller holds t.mu.
func (t *Tracker) entry(service string) *Activity {
	a, ok := t.entries[service]
	if !ok {
		a = &Activity{}
		t.entries[service] = a
	}
	return a
}
