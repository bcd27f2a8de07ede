package config

import (
	"fmt"
	"net"
	"net/textproto"
	"strings"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "proxy.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateForward(&cfg.Forward)...)
	errs = append(errs, validateOrchestrator(&cfg.Orchestrator)...)
	errs = append(errs, validateLifecycle(&cfg.Lifecycle)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if cfg.Telemetry.AdminAddress != "" && cfg.Telemetry.AdminAddress == cfg.Proxy.ListenAddress {
		errs = append(errs, FieldError{
			Field:   "telemetry.admin_address",
			Message: "admin address must differ from proxy.listen_address",
		})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateProxy validates proxy configuration.
func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "proxy.listen_address",
			Message: "listen address is required",
		})
	} else if err := validateAddress(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "proxy.listen_address",
			Message: err.Error(),
		})
	}

	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 { // 10MB is excessive
		errs = append(errs, FieldError{
			Field:   "proxy.max_header_bytes",
			Message: "max header bytes exceeds reasonable limit (10MB)",
		})
	}

	errs = append(errs, validateHeaderName("proxy.service_header", cfg.ServiceHeader)...)
	errs = append(errs, validateHeaderName("proxy.port_header", cfg.PortHeader)...)
	if cfg.ServiceHeader != "" &&
		textproto.CanonicalMIMEHeaderKey(cfg.ServiceHeader) == textproto.CanonicalMIMEHeaderKey(cfg.PortHeader) {
		errs = append(errs, FieldError{
			Field:   "proxy.port_header",
			Message: "port header must differ from service header",
		})
	}

	return errs
}

// validateForward validates the outbound client configuration.
func validateForward(cfg *ForwardConfig) []FieldError {
	var errs []FieldError

	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "forward.timeout",
			Message: "timeout must be positive",
		})
	}
	if cfg.DialTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "forward.dial_timeout",
			Message: "dial timeout must be positive",
		})
	}
	if cfg.MaxIdleConnsPerHost < 0 {
		errs = append(errs, FieldError{
			Field:   "forward.max_idle_conns_per_host",
			Message: "max idle connections must be non-negative",
		})
	}
	if cfg.IdleConnTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "forward.idle_conn_timeout",
			Message: "idle connection timeout must be positive",
		})
	}

	return errs
}

// validateOrchestrator validates orchestrator configuration.
func validateOrchestrator(cfg *OrchestratorConfig) []FieldError {
	var errs []FieldError

	if cfg.Project == "" {
		errs = append(errs, FieldError{
			Field:   "orchestrator.project",
			Message: "project is required",
		})
	}
	if cfg.WorkDir == "" {
		errs = append(errs, FieldError{
			Field:   "orchestrator.work_dir",
			Message: "work directory is required",
		})
	}
	if cfg.ComposeFile == "" {
		errs = append(errs, FieldError{
			Field:   "orchestrator.compose_file",
			Message: "compose file is required",
		})
	}
	if cfg.LazyLabel == "" {
		errs = append(errs, FieldError{
			Field:   "orchestrator.lazy_label",
			Message: "lazy label is required",
		})
	}
	if cfg.DockerHost != "" && !strings.Contains(cfg.DockerHost, "://") {
		errs = append(errs, FieldError{
			Field:   "orchestrator.docker_host",
			Message: fmt.Sprintf("docker host %q must include a scheme (unix://, tcp://)", cfg.DockerHost),
		})
	}

	return errs
}

// validateLifecycle validates start and reclamation settings.
func validateLifecycle(cfg *LifecycleConfig) []FieldError {
	var errs []FieldError

	if cfg.IdleTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "lifecycle.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.ReapInterval <= 0 {
		errs = append(errs, FieldError{
			Field:   "lifecycle.reap_interval",
			Message: "reap interval must be positive",
		})
	}
	if cfg.StopTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "lifecycle.stop_timeout",
			Message: "stop timeout must be non-negative",
		})
	}
	if cfg.StartPollInterval <= 0 {
		errs = append(errs, FieldError{
			Field:   "lifecycle.start_poll_interval",
			Message: "start poll interval must be positive",
		})
	}
	if cfg.StartAttempts < 1 {
		errs = append(errs, FieldError{
			Field:   "lifecycle.start_attempts",
			Message: "start attempts must be at least 1",
		})
	}
	if cfg.StartGracePeriod < 0 {
		errs = append(errs, FieldError{
			Field:   "lifecycle.start_grace_period",
			Message: "start grace period must be non-negative",
		})
	}
	if cfg.StartTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "lifecycle.start_timeout",
			Message: "start timeout must be positive",
		})
	}
	if cfg.PortCheckTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "lifecycle.port_check_timeout",
			Message: "port check timeout must be positive",
		})
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	if cfg.AdminAddress != "" {
		if err := validateAddress(cfg.AdminAddress); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.admin_address",
				Message: err.Error(),
			})
		}
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be debug, info, warn, or error)", cfg.Logging.Level),
		})
	}

	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Health.Enabled {
		if !strings.HasPrefix(cfg.Health.LivenessPath, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.liveness_path",
				Message: "liveness path must start with /",
			})
		}
		if !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.readiness_path",
				Message: "readiness path must start with /",
			})
		}
		if cfg.Health.CheckTimeout <= 0 {
			errs = append(errs, FieldError{
				Field:   "telemetry.health.check_timeout",
				Message: "check timeout must be positive",
			})
		}
	}

	if cfg.Tracing.Enabled {
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "tracing endpoint is required when tracing is enabled",
			})
		}
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q (must be always, never, or ratio)", cfg.Tracing.Sampler),
			})
		}
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	return errs
}

func validateAddress(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid address %q: %v", addr, err)
	}
	return nil
}

func validateHeaderName(field, name string) []FieldError {
	if name == "" {
		return []FieldError{{Field: field, Message: "header name is required"}}
	}
	for _, r := range name {
		if !isTokenRune(r) {
			return []FieldError{{Field: field, Message: fmt.Sprintf("invalid header name %q", name)}}
		}
	}
	return nil
}

// isTokenRune reports whether r may appear in an HTTP header field name.
func isTokenRune(r rune) bool {
	if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
		return true
	}
	return strings.ContainsRune("!#$%&'*+-.^_`|~", r)
}
