package config

import "time"

// Default values for configuration fields.
const (
	// Proxy defaults
	DefaultListenAddress   = ":8001"
	DefaultReadTimeout     = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultServiceHeader   = "X-Target-Service"
	DefaultPortHeader      = "X-Target-Port"

	// Forward defaults
	DefaultForwardTimeout      = 60 * time.Second
	DefaultDialTimeout         = 5 * time.Second
	DefaultMaxIdleConnsPerHost = 16
	DefaultIdleConnTimeout     = 5 * time.Second

	// Orchestrator defaults
	DefaultProject      = "demos"
	DefaultWorkDir      = "/demos-dir"
	DefaultComposeFile  = "docker-compose.yml"
	DefaultProfile      = "lazy"
	DefaultLazyLabel    = "lazy"
	DefaultProtectLabel = "never_remove"

	// Lifecycle defaults
	DefaultServiceIdleTimeout = 10 * time.Second
	DefaultReapInterval       = 10 * time.Second
	DefaultStopTimeout        = 10 * time.Second
	DefaultStartPollInterval  = 1 * time.Second
	DefaultStartAttempts      = 30
	DefaultStartGracePeriod   = 2 * time.Second
	DefaultStartTimeout       = 2 * time.Minute
	DefaultPortCheckTimeout   = 1 * time.Second
	DefaultStopDependencies   = true

	// Telemetry defaults
	DefaultAdminAddress       = "127.0.0.1:9001"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "lazyproxy"
	DefaultHealthEnabled      = true
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"
	DefaultHealthCheckTimeout = 5 * time.Second

	// Tracing defaults
	DefaultTracingEndpoint      = "localhost:4317"
	DefaultTracingServiceName   = "lazyproxy"
	DefaultTracingSampler       = "ratio"
	DefaultTracingSampleRatio   = 1.0
	DefaultTracingExportTimeout = 10 * time.Second
)

// Default returns a configuration populated with every default value.
// Boolean settings that default to true can only be expressed here, so YAML
// is decoded on top of Default rather than onto a zero Config.
func Default() *Config {
	cfg := &Config{
		Lifecycle: LifecycleConfig{
			StopDependencies: DefaultStopDependencies,
		},
		Telemetry: TelemetryConfig{
			AdminAddress: DefaultAdminAddress,
			Metrics:      MetricsConfig{Enabled: DefaultMetricsEnabled},
			Health:       HealthConfig{Enabled: DefaultHealthEnabled},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults. Fields already
// set are left untouched. The admin address and boolean switches are not
// touched because their zero value is a meaningful choice.
func ApplyDefaults(cfg *Config) {
	applyProxyDefaults(&cfg.Proxy)
	applyForwardDefaults(&cfg.Forward)
	applyOrchestratorDefaults(&cfg.Orchestrator)
	applyLifecycleDefaults(&cfg.Lifecycle)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyProxyDefaults(p *ProxyConfig) {
	if p.ListenAddress == "" {
		p.ListenAddress = DefaultListenAddress
	}
	if p.ReadTimeout == 0 {
		p.ReadTimeout = DefaultReadTimeout
	}
	if p.IdleTimeout == 0 {
		p.IdleTimeout = DefaultIdleTimeout
	}
	if p.ShutdownTimeout == 0 {
		p.ShutdownTimeout = DefaultShutdownTimeout
	}
	if p.MaxHeaderBytes == 0 {
		p.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if p.ServiceHeader == "" {
		p.ServiceHeader = DefaultServiceHeader
	}
	if p.PortHeader == "" {
		p.PortHeader = DefaultPortHeader
	}
}

func applyForwardDefaults(f *ForwardConfig) {
	if f.Timeout == 0 {
		f.Timeout = DefaultForwardTimeout
	}
	if f.DialTimeout == 0 {
		f.DialTimeout = DefaultDialTimeout
	}
	if f.MaxIdleConnsPerHost == 0 {
		f.MaxIdleConnsPerHost = DefaultMaxIdleConnsPerHost
	}
	if f.IdleConnTimeout == 0 {
		f.IdleConnTimeout = DefaultIdleConnTimeout
	}
}

func applyOrchestratorDefaults(o *OrchestratorConfig) {
	if o.Project == "" {
		o.Project = DefaultProject
	}
	if o.WorkDir == "" {
		o.WorkDir = DefaultWorkDir
	}
	if o.ComposeFile == "" {
		o.ComposeFile = DefaultComposeFile
	}
	if o.Profile == "" {
		o.Profile = DefaultProfile
	}
	if o.LazyLabel == "" {
		o.LazyLabel = DefaultLazyLabel
	}
	if o.ProtectLabel == "" {
		o.ProtectLabel = DefaultProtectLabel
	}
}

func applyLifecycleDefaults(l *LifecycleConfig) {
	if l.IdleTimeout == 0 {
		l.IdleTimeout = DefaultServiceIdleTimeout
	}
	if l.ReapInterval == 0 {
		l.ReapInterval = DefaultReapInterval
	}
	if l.StopTimeout == 0 {
		l.StopTimeout = DefaultStopTimeout
	}
	if l.StartPollInterval == 0 {
		l.StartPollInterval = DefaultStartPollInterval
	}
	if l.StartAttempts == 0 {
		l.StartAttempts = DefaultStartAttempts
	}
	if l.StartGracePeriod == 0 {
		l.StartGracePeriod = DefaultStartGracePeriod
	}
	if l.StartTimeout == 0 {
		l.StartTimeout = DefaultStartTimeout
	}
	if l.PortCheckTimeout == 0 {
		l.PortCheckTimeout = DefaultPortCheckTimeout
	}
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}
	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultReadinessPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if t.Tracing.ExportTimeout == 0 {
		t.Tracing.ExportTimeout = DefaultTracingExportTimeout
	}
}
