// Package orchestrator defines the capability interface lazyproxy uses to
// control backing services.
//
// The proxy never starts or stops processes itself. It asks an Orchestrator
// for the run state of a named service and requests start or stop through it.
// The Docker adapter lives in the docker subpackage; orchestratortest provides
// an in-memory implementation for tests.
//
// # Service states
//
// A service is in exactly one of three states:
//
//   - StateAbsent: the orchestrator knows no container for the name
//   - StateStopped: a container exists but is not running
//   - StateRunning: the container is running
//
// Anything the orchestrator reports that is not "running" (created, exited,
// paused, restarting, dead) is folded into StateStopped.
package orchestrator
