package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "LAZYPROXY_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables always take precedence
// over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file on top of the defaults
// 2. Apply environment variable overrides
// 3. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv builds a configuration from defaults and environment variables
// only.
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Load loads configuration from path with environment overrides. When the file
// does not exist and required is false, defaults plus environment are used.
func Load(path string, required bool) (*Config, error) {
	if path == "" {
		return LoadFromEnv()
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			slog.Debug("configuration file not found, using defaults", "path", path)
			return LoadFromEnv()
		}
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	return LoadConfigWithEnvOverrides(path)
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Variables already present in the environment win. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load env file %q: %w", p, err)
		}
	}
	return nil
}

func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Legacy variable names are applied first so LAZYPROXY_* always wins.
func applyEnvOverrides(cfg *Config) {
	applyLegacyEnv(cfg)

	// Proxy overrides
	envString("PROXY_LISTEN_ADDRESS", &cfg.Proxy.ListenAddress)
	envDuration("PROXY_READ_TIMEOUT", &cfg.Proxy.ReadTimeout)
	envDuration("PROXY_WRITE_TIMEOUT", &cfg.Proxy.WriteTimeout)
	envDuration("PROXY_IDLE_TIMEOUT", &cfg.Proxy.IdleTimeout)
	envDuration("PROXY_SHUTDOWN_TIMEOUT", &cfg.Proxy.ShutdownTimeout)
	envInt("PROXY_MAX_HEADER_BYTES", &cfg.Proxy.MaxHeaderBytes)
	envString("PROXY_SERVICE_HEADER", &cfg.Proxy.ServiceHeader)
	envString("PROXY_PORT_HEADER", &cfg.Proxy.PortHeader)

	// Forward overrides
	envDuration("FORWARD_TIMEOUT", &cfg.Forward.Timeout)
	envDuration("FORWARD_DIAL_TIMEOUT", &cfg.Forward.DialTimeout)
	envInt("FORWARD_MAX_IDLE_CONNS_PER_HOST", &cfg.Forward.MaxIdleConnsPerHost)
	envDuration("FORWARD_IDLE_CONN_TIMEOUT", &cfg.Forward.IdleConnTimeout)

	// Orchestrator overrides
	envString("ORCHESTRATOR_PROJECT", &cfg.Orchestrator.Project)
	envString("ORCHESTRATOR_WORK_DIR", &cfg.Orchestrator.WorkDir)
	envString("ORCHESTRATOR_COMPOSE_FILE", &cfg.Orchestrator.ComposeFile)
	envString("ORCHESTRATOR_PROFILE", &cfg.Orchestrator.Profile)
	envString("ORCHESTRATOR_DOCKER_HOST", &cfg.Orchestrator.DockerHost)
	envString("ORCHESTRATOR_LAZY_LABEL", &cfg.Orchestrator.LazyLabel)
	envString("ORCHESTRATOR_PROTECT_LABEL", &cfg.Orchestrator.ProtectLabel)

	// Lifecycle overrides
	envDuration("LIFECYCLE_IDLE_TIMEOUT", &cfg.Lifecycle.IdleTimeout)
	envDuration("LIFECYCLE_REAP_INTERVAL", &cfg.Lifecycle.ReapInterval)
	envDuration("LIFECYCLE_STOP_TIMEOUT", &cfg.Lifecycle.StopTimeout)
	envDuration("LIFECYCLE_START_POLL_INTERVAL", &cfg.Lifecycle.StartPollInterval)
	envInt("LIFECYCLE_START_ATTEMPTS", &cfg.Lifecycle.StartAttempts)
	envDuration("LIFECYCLE_START_GRACE_PERIOD", &cfg.Lifecycle.StartGracePeriod)
	envDuration("LIFECYCLE_START_TIMEOUT", &cfg.Lifecycle.StartTimeout)
	envBool("LIFECYCLE_START_PORT_CHECK", &cfg.Lifecycle.StartPortCheck)
	envDuration("LIFECYCLE_PORT_CHECK_TIMEOUT", &cfg.Lifecycle.PortCheckTimeout)
	envBool("LIFECYCLE_STOP_DEPENDENCIES", &cfg.Lifecycle.StopDependencies)

	// Telemetry overrides
	envString("TELEMETRY_ADMIN_ADDRESS", &cfg.Telemetry.AdminAddress)
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envString("TELEMETRY_METRICS_NAMESPACE", &cfg.Telemetry.Metrics.Namespace)
	envBool("TELEMETRY_HEALTH_ENABLED", &cfg.Telemetry.Health.Enabled)
	envDuration("TELEMETRY_HEALTH_CHECK_TIMEOUT", &cfg.Telemetry.Health.CheckTimeout)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envBool("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)
	envString("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}

// applyLegacyEnv maps the variable names used by earlier deployments.
func applyLegacyEnv(cfg *Config) {
	if v := os.Getenv("PROJECT_NAME"); v != "" {
		cfg.Orchestrator.Project = v
	}
	if v := os.Getenv("APP_DIR"); v != "" {
		cfg.Orchestrator.WorkDir = v
	}
	if v := os.Getenv("DEMOS_DIR"); v != "" {
		cfg.Orchestrator.WorkDir = v
	}
	if v := os.Getenv("IDLE_TIMEOUT"); v != "" {
		if d, ok := parseSecondsOrDuration(v); ok {
			cfg.Lifecycle.IdleTimeout = d
		} else {
			slog.Warn("ignoring invalid IDLE_TIMEOUT", "value", v)
		}
	}
}

// parseSecondsOrDuration accepts a bare number of seconds or a Go duration.
func parseSecondsOrDuration(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, true
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, true
	}
	return 0, false
}

func envString(key string, dst *string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func envDuration(key string, dst *time.Duration) {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return
	}
	if d, ok := parseSecondsOrDuration(v); ok {
		*dst = d
		return
	}
	slog.Warn("ignoring invalid duration override", "variable", EnvPrefix+key, "value", v)
}

func envInt(key string, dst *int) {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return
	}
	if n, err := strconv.Atoi(v); err == nil {
		*dst = n
		return
	}
	slog.Warn("ignoring invalid integer override", "variable", EnvPrefix+key, "value", v)
}

func envBool(key string, dst *bool) {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
		return
	}
	slog.Warn("ignoring invalid boolean override", "variable", EnvPrefix+key, "value", v)
}

func envFloat(key string, dst *float64) {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
		return
	}
	slog.Warn("ignoring invalid float override", "variable", EnvPrefix+key, "value", v)
}
