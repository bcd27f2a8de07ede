package types

import "time"

// ServiceStatus describes one tracked service in the admin listing.
type ServiceStatus struct {
	// Name is the service name.
	Name string `json:"name"`

	// InFlight is the number of requests currently proxied to the service.
	InFlight int `json:"in_flight"`

	// LastActiveAt is the last request start or completion, or discovery.
	LastActiveAt time.Time `json:"last_active_at"`

	// IdleSeconds is how long the service has been idle, 0 while busy.
	IdleSeconds float64 `json:"idle_seconds"`

	// ReclaimIn is the remaining time before the service becomes eligible
	// for reclamation, 0 when already eligible or busy.
	ReclaimInSeconds float64 `json:"reclaim_in_seconds"`
}

// ServiceList is the body of the admin /services endpoint.
type ServiceList struct {
	IdleTimeoutSeconds float64         `json:"idle_timeout_seconds"`
	Services           []ServiceStatus `json:"services"`
}
