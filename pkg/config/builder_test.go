package config

import "time"

// ConfigBuilder provides a fluent API for building test configurations.
type ConfigBuilder struct {
	cfg *Config
}

// NewTestConfig starts from a fully defaulted configuration.
func NewTestConfig() *ConfigBuilder {
	return &ConfigBuilder{cfg: Default()}
}

func (b *ConfigBuilder) WithListenAddress(addr string) *ConfigBuilder {
	b.cfg.Proxy.ListenAddress = addr
	return b
}

func (b *ConfigBuilder) WithHeaders(service, port string) *ConfigBuilder {
	b.cfg.Proxy.ServiceHeader = service
	b.cfg.Proxy.PortHeader = port
	return b
}

func (b *ConfigBuilder) WithIdleTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.Lifecycle.IdleTimeout = d
	return b
}

func (b *ConfigBuilder) WithStartAttempts(n int) *ConfigBuilder {
	b.cfg.Lifecycle.StartAttempts = n
	return b
}

func (b *ConfigBuilder) WithStartTimeout(d time.Duration) *ConfigBuilder {
	b.cfg.Lifecycle.StartTimeout = d
	return b
}

func (b *ConfigBuilder) WithProject(project string) *ConfigBuilder {
	b.cfg.Orchestrator.Project = project
	return b
}

func (b *ConfigBuilder) WithAdminAddress(addr string) *ConfigBuilder {
	b.cfg.Telemetry.AdminAddress = addr
	return b
}

func (b *ConfigBuilder) WithLogging(level, format string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	b.cfg.Telemetry.Logging.Format = format
	return b
}

func (b *ConfigBuilder) WithTracing(enabled bool, sampler string, ratio float64) *ConfigBuilder {
	b.cfg.Telemetry.Tracing.Enabled = enabled
	b.cfg.Telemetry.Tracing.Sampler = sampler
	b.cfg.Telemetry.Tracing.SampleRatio = ratio
	return b
}

func (b *ConfigBuilder) Build() *Config {
	return b.cfg
}
