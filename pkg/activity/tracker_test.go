package activity

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_EntryExit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock)

	tr.RecordEntry("web")
	a, ok := tr.Get("web")
	require.True(t, ok)
	assert.Equal(t, 1, a.InFlight)
	assert.Equal(t, clock.Now(), a.LastActiveAt)
	assert.False(t, a.Idle())

	clock.Advance(5 * time.Second)
	tr.RecordExit("web")

	a, _ = tr.Get("web")
	assert.Equal(t, 0, a.InFlight)
	assert.Equal(t, clock.Now(), a.LastActiveAt, "exit refreshes the timestamp")
	assert.True(t, a.Idle())
}

func TestTracker_ExitFloorsAtZero(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock())

	tr.RecordExit("web")
	tr.RecordExit("web")

	a, ok := tr.Get("web")
	require.True(t, ok)
	assert.Equal(t, 0, a.InFlight)
}

func TestTracker_CounterBalance(t *testing.T) {
	tr := NewTracker(nil)
	services := []string{"web", "api", "worker"}

	var wg sync.WaitGroup
	for i := 0; i < 300; i++ {
		svc := services[i%len(services)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.RecordEntry(svc)
			if a, ok := tr.Get(svc); ok && a.InFlight < 1 {
				t.Errorf("in-flight for %s = %d while a request is open", svc, a.InFlight)
			}
			tr.RecordExit(svc)
		}()
	}
	wg.Wait()

	for name, a := range tr.Snapshot() {
		assert.Equal(t, 0, a.InFlight, "service %s", name)
	}
	assert.Equal(t, 3, tr.Len())
}

func TestTracker_Discover(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock)

	require.True(t, tr.Discover("web"))
	first, _ := tr.Get("web")
	assert.Equal(t, 0, first.InFlight)
	assert.Equal(t, clock.Now(), first.LastActiveAt)

	clock.Advance(time.Minute)
	assert.False(t, tr.Discover("web"), "already tracked")
	again, _ := tr.Get("web")
	assert.Equal(t, first.LastActiveAt, again.LastActiveAt, "rediscovery keeps the idle clock")
}

func TestTracker_DiscoverKeepsInFlight(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock())
	tr.RecordEntry("api")

	assert.False(t, tr.Discover("api"))
	a, _ := tr.Get("api")
	assert.Equal(t, 1, a.InFlight)
}

func TestTracker_Untrack(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock())
	tr.Discover("web")
	tr.Discover("api")

	tr.Untrack("web")
	assert.False(t, tr.Tracked("web"))
	assert.True(t, tr.Tracked("api"))
	assert.Equal(t, []string{"api"}, tr.Names())

	tr.Untrack("never-seen")
	assert.Equal(t, 1, tr.Len())
}

func TestTracker_SnapshotIsCopy(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock())
	tr.RecordEntry("web")

	snap := tr.Snapshot()
	tr.RecordEntry("web")
	tr.RecordEntry("api")

	assert.Equal(t, 1, snap["web"].InFlight)
	_, ok := snap["api"]
	assert.False(t, ok)
}

func TestActivity_IdleFor(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	idle := Activity{LastActiveAt: now.Add(-30 * time.Second)}
	assert.Equal(t, 30*time.Second, idle.IdleFor(now))

	busy := Activity{LastActiveAt: now.Add(-time.Hour), InFlight: 2}
	assert.Zero(t, busy.IdleFor(now))
}
