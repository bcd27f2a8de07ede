package config

import "time"

// Config is the root configuration structure for lazyproxy.
type Config struct {
	// Proxy contains the inbound HTTP listener configuration.
	Proxy ProxyConfig `yaml:"proxy"`

	// Forward contains the outbound client configuration used to reach
	// backing services.
	Forward ForwardConfig `yaml:"forward"`

	// Orchestrator describes how backing services are started and stopped.
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`

	// Lifecycle contains start-up and idle reclamation settings.
	Lifecycle LifecycleConfig `yaml:"lifecycle"`

	// Telemetry contains logging, metrics, health and tracing settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ProxyConfig contains configuration for the proxy listener.
type ProxyConfig struct {
	// ListenAddress is the address the proxy listens on.
	// Default: ":8001"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Zero means no timeout.
	// Default: 60s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. It must leave room for a cold start plus the forward call,
	// so it is disabled by default.
	// Default: 0
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout for inbound connections.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// ServiceHeader names the request header carrying the target service.
	// Default: "X-Target-Service"
	ServiceHeader string `yaml:"service_header"`

	// PortHeader names the request header carrying the target port.
	// Default: "X-Target-Port"
	PortHeader string `yaml:"port_header"`
}

// ForwardConfig contains configuration for forwarding to backing services.
type ForwardConfig struct {
	// Timeout bounds a single forwarded request including the response body.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// DialTimeout bounds establishing the TCP connection.
	// Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// MaxIdleConnsPerHost is the keep-alive pool size per backing service.
	// Default: 16
	MaxIdleConnsPerHost int `yaml:"max_idle_conns_per_host"`

	// IdleConnTimeout closes pooled connections after this long unused. Keep
	// it below lifecycle.idle_timeout so stopped services do not leave stale
	// connections behind.
	// Default: 5s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

// OrchestratorConfig contains configuration for the container orchestrator.
type OrchestratorConfig struct {
	// Project is the compose project backing services belong to.
	// Default: "demos"
	Project string `yaml:"project"`

	// WorkDir is the directory compose commands run in.
	// Default: "/demos-dir"
	WorkDir string `yaml:"work_dir"`

	// ComposeFile is the main compose file, relative to WorkDir.
	// Default: "docker-compose.yml"
	ComposeFile string `yaml:"compose_file"`

	// Profile is the compose profile that enables lazily started services.
	// Default: "lazy"
	Profile string `yaml:"profile"`

	// DockerHost overrides DOCKER_HOST when set.
	DockerHost string `yaml:"docker_host"`

	// LazyLabel is the label that marks a service as eligible for idle
	// reclamation when set to a true value.
	// Default: "lazy"
	LazyLabel string `yaml:"lazy_label"`

	// ProtectLabel marks a dependency that must never be stopped together
	// with an idle parent.
	// Default: "never_remove"
	ProtectLabel string `yaml:"protect_label"`
}

// LifecycleConfig contains configuration for starting and reclaiming services.
type LifecycleConfig struct {
	// IdleTimeout is how long a service must be idle before it is stopped.
	// Default: 10s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ReapInterval is the period of the idle reaper.
	// Default: 10s
	ReapInterval time.Duration `yaml:"reap_interval"`

	// StopTimeout is the grace period given to a container when stopping it.
	// Default: 10s
	StopTimeout time.Duration `yaml:"stop_timeout"`

	// StartPollInterval is the delay between readiness polls after a start.
	// Default: 1s
	StartPollInterval time.Duration `yaml:"start_poll_interval"`

	// StartAttempts is the number of readiness polls before giving up.
	// Default: 30
	StartAttempts int `yaml:"start_attempts"`

	// StartGracePeriod is waited once after a service first reports running,
	// to let its listener bind.
	// Default: 2s
	StartGracePeriod time.Duration `yaml:"start_grace_period"`

	// StartTimeout bounds the start command itself. A start still running
	// after it is cancelled and reported as a timeout.
	// Default: 2m
	StartTimeout time.Duration `yaml:"start_timeout"`

	// StartPortCheck additionally requires the target port to accept a TCP
	// connection before a started service counts as ready.
	// Default: false
	StartPortCheck bool `yaml:"start_port_check"`

	// PortCheckTimeout is the dial timeout of one port check.
	// Default: 1s
	PortCheckTimeout time.Duration `yaml:"port_check_timeout"`

	// StopDependencies stops the compose dependencies of a reclaimed service.
	// Default: true
	StopDependencies bool `yaml:"stop_dependencies"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// AdminAddress is the listen address of the admin server exposing health,
	// metrics and the service table. Empty disables the admin server.
	// Default: "127.0.0.1:9001"
	AdminAddress string `yaml:"admin_address"`

	// Logging contains structured logging settings.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics settings.
	Metrics MetricsConfig `yaml:"metrics"`

	// Health contains health endpoint settings.
	Health HealthConfig `yaml:"health"`

	// Tracing contains distributed tracing settings.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the admin server path serving metrics.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "lazyproxy"
	Namespace string `yaml:"namespace"`
}

// HealthConfig contains health endpoint configuration.
type HealthConfig struct {
	// Enabled controls whether health endpoints are served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// LivenessPath is the liveness probe path.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the readiness probe path.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each readiness check.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled controls whether spans are recorded and exported.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "lazyproxy"
	ServiceName string `yaml:"service_name"`

	// Sampler is the sampling strategy: "always", "never" or "ratio".
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces sampled by the ratio sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ExportTimeout bounds a single export call.
	// Default: 10s
	ExportTimeout time.Duration `yaml:"export_timeout"`
}
