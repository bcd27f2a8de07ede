package cli

import (
	"errors"
	"fmt"
	"testing"

	"mercator-hq/lazyproxy/pkg/config"
)

func TestConfigError(t *testing.T) {
	err := &ConfigError{
		Field:   "proxy.listen_address",
		Message: "missing required field",
	}

	expected := "config error in proxy.listen_address: missing required field"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}

	noField := &ConfigError{Message: "unreadable"}
	if noField.Error() != "config error: unreadable" {
		t.Errorf("Error() = %q", noField.Error())
	}
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("field", "message")
	if err.Field != "field" {
		t.Errorf("Field = %q, want %q", err.Field, "field")
	}
	if err.Message != "message" {
		t.Errorf("Message = %q, want %q", err.Message, "message")
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	inner := errors.New("docker unavailable")
	err := NewCommandError("services", inner)

	if err.Error() != "command services failed: docker unavailable" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestWrapConfigError(t *testing.T) {
	if WrapConfigError(nil) != nil {
		t.Error("WrapConfigError(nil) should be nil")
	}

	verr := config.ValidationError{Errors: []config.FieldError{{Field: "lifecycle.idle_timeout", Message: "must be positive"}}}
	err := WrapConfigError(fmt.Errorf("load: %w", verr))

	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	if cerr.Field != "lifecycle.idle_timeout" {
		t.Errorf("Field = %q", cerr.Field)
	}

	plain := WrapConfigError(errors.New("open lazyproxy.yaml: permission denied"))
	if !errors.As(plain, &cerr) || cerr.Field != "" {
		t.Errorf("plain error should become a field-less ConfigError, got %v", plain)
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{errors.New("boom"), ExitFailure},
		{NewCommandError("run", errors.New("listen")), ExitFailure},
		{NewConfigError("proxy.listen_address", "bad"), ExitConfigError},
		{fmt.Errorf("wrapped: %w", NewConfigError("x", "y")), ExitConfigError},
	}

	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
