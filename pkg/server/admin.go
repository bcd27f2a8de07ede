package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"mercator-hq/lazyproxy/pkg/activity"
	"mercator-hq/lazyproxy/pkg/config"
	"mercator-hq/lazyproxy/pkg/proxy/middleware"
	"mercator-hq/lazyproxy/pkg/proxy/types"
	"mercator-hq/lazyproxy/pkg/telemetry/health"
	"mercator-hq/lazyproxy/pkg/telemetry/metrics"
)

// ServicesPath serves the tracked service table on the admin listener.
const ServicesPath = "/services"

// Admin holds what the admin listener exposes.
type Admin struct {
	Telemetry config.TelemetryConfig
	Checker   *health.Checker
	Collector *metrics.Collector
	Tracker   *activity.Tracker

	// IdleTimeout reports the current reclamation threshold. It is a
	// function because the threshold changes on config reload.
	IdleTimeout func() time.Duration
}

// Handler builds the admin mux: health probes, metrics and the service table,
// wrapped in the standard middleware chain.
func (a Admin) Handler() http.Handler {
	mux := http.NewServeMux()

	if a.Checker != nil {
		a.Checker.Mount(mux, a.Telemetry.Health)
	}
	if a.Collector != nil && a.Telemetry.Metrics.Enabled {
		mux.Handle(a.Telemetry.Metrics.Path, a.Collector.Handler())
	}
	if a.Tracker != nil {
		mux.HandleFunc(ServicesPath, a.services)
	}

	return middleware.Chain(mux, "")
}

func (a Admin) services(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var threshold time.Duration
	if a.IdleTimeout != nil {
		threshold = a.IdleTimeout()
	}

	list := ServiceTable(a.Tracker, threshold)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_ = json.NewEncoder(w).Encode(list)
	}
}

// ServiceTable renders the tracker snapshot sorted by service name.
func ServiceTable(tracker *activity.Tracker, idleTimeout time.Duration) types.ServiceList {
	now := tracker.Now()
	snapshot := tracker.Snapshot()

	list := types.ServiceList{
		IdleTimeoutSeconds: idleTimeout.Seconds(),
		Services:           make([]types.ServiceStatus, 0, len(snapshot)),
	}
	for name, act := range snapshot {
		status := types.ServiceStatus{
			Name:         name,
			InFlight:     act.InFlight,
			LastActiveAt: act.LastActiveAt,
		}
		if act.Idle() {
			idle := act.IdleFor(now)
			status.IdleSeconds = idle.Seconds()
			if remaining := idleTimeout - idle; remaining > 0 {
				status.ReclaimInSeconds = remaining.Seconds()
			}
		}
		list.Services = append(list.Services, status)
	}
	sort.Slice(list.Services, func(i, j int) bool {
		return list.Services[i].Name < list.Services[j].Name
	})

	return list
}
