// Package docker implements orchestrator.Orchestrator on top of the Docker
// Engine API and the `docker compose` CLI.
//
// Container state is read and containers are stopped through the Engine API.
// Services are started with `docker compose up -d` so that compose creates
// missing containers, networks and dependencies the way it would for a user.
package docker

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"

	"mercator-hq/lazyproxy/pkg/orchestrator"
)

// Compose label keys set on every container compose creates.
const (
	LabelService   = "com.docker.compose.service"
	LabelProject   = "com.docker.compose.project"
	LabelDependsOn = "com.docker.compose.depends_on"
)

// Config contains configuration for the Docker orchestrator.
type Config struct {
	// Project is the compose project name containers are scoped to.
	Project string

	// WorkDir is the directory compose commands run in.
	WorkDir string

	// ComposeFile is the main compose file, relative to WorkDir unless absolute.
	ComposeFile string

	// Profile is passed as --profile so lazily started services are enabled.
	Profile string

	// Host overrides DOCKER_HOST when set.
	Host string

	// Binary is the docker CLI executable. Default: "docker".
	Binary string
}

func (c Config) composePath() string {
	if filepath.IsAbs(c.ComposeFile) {
		return c.ComposeFile
	}
	return filepath.Join(c.WorkDir, c.ComposeFile)
}

// containerAPI is the subset of the Engine API client the orchestrator needs.
type containerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	Close() error
}

// CommandRunner runs an external command in dir and returns its combined output.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// Orchestrator manages compose services of one project.
type Orchestrator struct {
	config Config
	api    containerAPI
	run    CommandRunner
	logger *slog.Logger
}

var _ orchestrator.Orchestrator = (*Orchestrator)(nil)

// New creates an orchestrator connected to the Docker daemon described by the
// environment (DOCKER_HOST and friends) or cfg.Host.
func New(cfg Config) (*Orchestrator, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if cfg.Host != "" {
		opts = append(opts, client.WithHost(cfg.Host))
	}
	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return newOrchestrator(cfg, cli, execRunner), nil
}

func newOrchestrator(cfg Config, api containerAPI, run CommandRunner) *Orchestrator {
	if cfg.Binary == "" {
		cfg.Binary = "docker"
	}
	return &Orchestrator{
		config: cfg,
		api:    api,
		run:    run,
		logger: slog.Default().With("component", "orchestrator.docker", "project", cfg.Project),
	}
}

// Close releases the Docker client.
func (o *Orchestrator) Close() error {
	return o.api.Close()
}

// ListServices returns every compose service of the project, one entry per
// service name. When a service has several containers, a running one wins.
func (o *Orchestrator) ListServices(ctx context.Context) ([]orchestrator.Service, error) {
	containers, err := o.api.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(o.projectFilter()),
	})
	if err != nil {
		return nil, fmt.Errorf("list containers: %w", err)
	}

	byName := make(map[string]orchestrator.Service)
	var order []string
	for _, c := range containers {
		svc := toService(c)
		if svc.Name == "" {
			continue
		}
		prev, seen := byName[svc.Name]
		if !seen {
			order = append(order, svc.Name)
		}
		if !seen || (!prev.Running() && svc.Running()) {
			byName[svc.Name] = svc
		}
	}

	services := make([]orchestrator.Service, 0, len(order))
	for _, name := range order {
		services = append(services, byName[name])
	}
	return services, nil
}

// Status looks up the container of a single service.
func (o *Orchestrator) Status(ctx context.Context, name string) (orchestrator.Service, error) {
	containers, err := o.api.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			o.projectFilter(),
			filters.Arg("label", LabelService+"="+name),
		),
	})
	if err != nil {
		return orchestrator.Service{}, fmt.Errorf("list containers for %s: %w", name, err)
	}
	if len(containers) == 0 {
		return orchestrator.Service{Name: name, State: orchestrator.StateAbsent}, nil
	}

	svc := toService(containers[0])
	for _, c := range containers[1:] {
		if svc.Running() {
			break
		}
		svc = toService(c)
	}
	svc.Name = name
	return svc, nil
}

// Start runs `docker compose up -d` for the service. The service's own .env
// file is passed along when the compose include tree has one.
func (o *Orchestrator) Start(ctx context.Context, name string) error {
	args := []string{
		"compose",
		"-p", o.config.Project,
	}
	if o.config.Profile != "" {
		args = append(args, "--profile", o.config.Profile)
	}
	args = append(args, "-f", o.config.composePath())
	if envFile := serviceEnvFile(o.config.composePath(), name); envFile != "" {
		args = append(args, "--env-file", envFile)
	}
	args = append(args, "up", "-d", name)

	o.logger.Info("starting service", "service", name)
	out, err := o.run(ctx, o.config.WorkDir, o.config.Binary, args...)
	if err != nil {
		return fmt.Errorf("compose up %s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	o.logger.Debug("compose up finished", "service", name, "output", strings.TrimSpace(string(out)))
	return nil
}

// Stop stops the service container, waiting at most timeout for it to exit
// before the daemon kills it.
func (o *Orchestrator) Stop(ctx context.Context, name string, timeout time.Duration) error {
	svc, err := o.Status(ctx, name)
	if err != nil {
		return err
	}
	if svc.State == orchestrator.StateAbsent {
		return fmt.Errorf("stop %s: %w", name, orchestrator.ErrServiceNotFound)
	}

	secs := int(timeout.Round(time.Second) / time.Second)
	o.logger.Info("stopping service", "service", name, "container", shortID(svc.ContainerID), "timeout", timeout.String())
	if err := o.api.ContainerStop(ctx, svc.ContainerID, container.StopOptions{Timeout: &secs}); err != nil {
		return fmt.Errorf("stop %s: %w", name, err)
	}
	return nil
}

func (o *Orchestrator) projectFilter() filters.KeyValuePair {
	return filters.Arg("label", LabelProject+"="+o.config.Project)
}

func toService(c container.Summary) orchestrator.Service {
	state := orchestrator.StateStopped
	if strings.EqualFold(string(c.State), "running") {
		state = orchestrator.StateRunning
	}
	return orchestrator.Service{
		Name:        c.Labels[LabelService],
		ContainerID: c.ID,
		State:       state,
		Labels:      c.Labels,
		DependsOn:   parseDependsOn(c.Labels[LabelDependsOn]),
	}
}

// parseDependsOn extracts service names from the compose depends_on label,
// e.g. "db:service_started:false,cache:service_healthy:true".
func parseDependsOn(label string) []string {
	if label == "" {
		return nil
	}
	var deps []string
	for _, entry := range strings.Split(label, ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(entry), ":")
		if name != "" {
			deps = append(deps, name)
		}
	}
	return deps
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
