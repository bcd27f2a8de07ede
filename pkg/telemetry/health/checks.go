package health

import (
	"context"
	"fmt"
	"time"

	"mercator-hq/lazyproxy/pkg/orchestrator"
)

// OrchestratorCheck reports whether the orchestrator answers a service
// listing.
func OrchestratorCheck(orch orchestrator.Orchestrator) CheckFunc {
	return func(ctx context.Context) error {
		if _, err := orch.ListServices(ctx); err != nil {
			return fmt.Errorf("orchestrator unreachable: %w", err)
		}
		return nil
	}
}

// HeartbeatCheck fails when last reports a time older than maxAge. A zero
// time is accepted for the first maxAge after the check is created so a
// fresh process is not reported unready before its first beat.
func HeartbeatCheck(last func() time.Time, maxAge time.Duration) CheckFunc {
	created := time.Now()
	return func(ctx context.Context) error {
		t := last()
		if t.IsZero() {
			if time.Since(created) > maxAge {
				return fmt.Errorf("no heartbeat since start (%s ago)", time.Since(created).Round(time.Second))
			}
			return nil
		}
		if age := time.Since(t); age > maxAge {
			return fmt.Errorf("last heartbeat %s ago exceeds %s", age.Round(time.Second), maxAge)
		}
		return nil
	}
}
