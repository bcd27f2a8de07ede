package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       *Config
		wantField string
	}{
		{
			name: "defaults",
			cfg:  NewTestConfig().Build(),
		},
		{
			name:      "empty listen address",
			cfg:       NewTestConfig().WithListenAddress("").Build(),
			wantField: "proxy.listen_address",
		},
		{
			name:      "listen address without port",
			cfg:       NewTestConfig().WithListenAddress("localhost").Build(),
			wantField: "proxy.listen_address",
		},
		{
			name:      "invalid header name",
			cfg:       NewTestConfig().WithHeaders("X Target", "X-Target-Port").Build(),
			wantField: "proxy.service_header",
		},
		{
			name:      "same routing headers",
			cfg:       NewTestConfig().WithHeaders("X-Target", "x-target").Build(),
			wantField: "proxy.port_header",
		},
		{
			name:      "zero idle timeout",
			cfg:       NewTestConfig().WithIdleTimeout(0).Build(),
			wantField: "lifecycle.idle_timeout",
		},
		{
			name:      "zero start attempts",
			cfg:       NewTestConfig().WithStartAttempts(0).Build(),
			wantField: "lifecycle.start_attempts",
		},
		{
			name:      "zero start timeout",
			cfg:       NewTestConfig().WithStartTimeout(0).Build(),
			wantField: "lifecycle.start_timeout",
		},
		{
			name:      "empty project",
			cfg:       NewTestConfig().WithProject("").Build(),
			wantField: "orchestrator.project",
		},
		{
			name:      "admin address collides with proxy",
			cfg:       NewTestConfig().WithListenAddress(":8001").WithAdminAddress(":8001").Build(),
			wantField: "telemetry.admin_address",
		},
		{
			name: "admin server disabled",
			cfg:  NewTestConfig().WithAdminAddress("").Build(),
		},
		{
			name:      "unknown log level",
			cfg:       NewTestConfig().WithLogging("verbose", "json").Build(),
			wantField: "telemetry.logging.level",
		},
		{
			name:      "unknown log format",
			cfg:       NewTestConfig().WithLogging("info", "xml").Build(),
			wantField: "telemetry.logging.format",
		},
		{
			name: "tracing enabled",
			cfg:  NewTestConfig().WithTracing(true, "always", 1).Build(),
		},
		{
			name:      "unknown sampler",
			cfg:       NewTestConfig().WithTracing(true, "sometimes", 1).Build(),
			wantField: "telemetry.tracing.sampler",
		},
		{
			name:      "sample ratio out of range",
			cfg:       NewTestConfig().WithTracing(false, "ratio", 1.5).Build(),
			wantField: "telemetry.tracing.sample_ratio",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.cfg)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}

			var verr ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			found := false
			for _, fe := range verr.Errors {
				if fe.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on %q, got %v", tt.wantField, verr)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := NewTestConfig().Build()
	cfg.Lifecycle.IdleTimeout = -time.Second
	cfg.Lifecycle.ReapInterval = 0
	cfg.Forward.Timeout = 0
	cfg.Orchestrator.DockerHost = "localhost:2375"

	err := Validate(cfg)
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Errors) != 4 {
		t.Errorf("expected 4 errors, got %d: %v", len(verr.Errors), verr)
	}
	if !strings.Contains(err.Error(), "with 4 errors") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestValidationError_Error(t *testing.T) {
	if got := (ValidationError{}).Error(); got != "configuration validation failed" {
		t.Errorf("unexpected empty message %q", got)
	}

	one := ValidationError{Errors: []FieldError{{Field: "a.b", Message: "bad"}}}
	if got := one.Error(); got != "configuration validation failed: a.b: bad" {
		t.Errorf("unexpected single message %q", got)
	}
}
