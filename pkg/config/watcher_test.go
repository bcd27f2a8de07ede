package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_CoalescesBursts(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(120 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("expected a single callback, got %d", got)
	}
}

func TestDebouncer_StopCancelsPending(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })

	time.Sleep(80 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("expected no callbacks after Stop, got %d", got)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	t.Setenv("LAZYPROXY_LIFECYCLE_IDLE_TIMEOUT", "")
	path := writeConfig(t, "lifecycle:\n  idle_timeout: \"10s\"\n")

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	reloaded := make(chan *Config, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx, func(cfg *Config) { reloaded <- cfg }) }()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte("lifecycle:\n  idle_timeout: \"3m\"\n"), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Lifecycle.IdleTimeout != 3*time.Minute {
			t.Errorf("expected reloaded idle timeout 3m, got %v", cfg.Lifecycle.IdleTimeout)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	w.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_InvalidConfigNotDelivered(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "{}")

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}

	reloaded := make(chan *Config, 4)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Watch(ctx, func(cfg *Config) { reloaded <- cfg }) }()
	defer cancel()

	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(path, []byte("lifecycle:\n  start_attempts: -3\n"), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	// Unrelated files in the same directory are ignored.
	other := filepath.Join(filepath.Dir(path), "other.yaml")
	if err := os.WriteFile(other, []byte("{}"), 0644); err != nil {
		t.Fatalf("write other: %v", err)
	}

	select {
	case cfg := <-reloaded:
		t.Fatalf("invalid configuration delivered: %+v", cfg.Lifecycle)
	case <-time.After(200 * time.Millisecond):
	}
}
