// Package lifecycle starts backing services on demand and stops them again
// once they have been idle for long enough.
//
// Coordinator.EnsureRunning is called on the request path. It guarantees at
// most one start sequence per service: concurrent callers for a stopped
// service queue on a per-service lock, and everyone after the first finds the
// service running when they get the lock. The start command runs detached
// from the request under its own timeout, so a caller whose context ends stops
// waiting while the lock stays held until the command returns.
// EnsureListening can additionally wait for the target port to accept TCP
// connections.
//
// Reaper.RunCycle is the reclamation pass. It enrols running lazy services
// found through the orchestrator, then stops every tracked service that has
// no request in flight and has been idle longer than the threshold.
// Scheduler runs it on a fixed interval. Every orchestrator call of a cycle is
// bounded, Stop by its container grace period plus a margin.
//
// Reclamation works on a snapshot of the activity table. A request that
// arrives between the snapshot and the stop call can race with the stop; the
// window is bounded by one Status call and the request recovers through its
// own EnsureRunning.
package lifecycle
