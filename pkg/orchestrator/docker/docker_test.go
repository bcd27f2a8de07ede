package docker

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/lazyproxy/pkg/orchestrator"
)

type fakeAPI struct {
	mu         sync.Mutex
	containers []container.Summary
	listErr    error
	stopErr    error
	stopped    []string
	stopSecs   []int
	lastLabels []string
}

func (f *fakeAPI) ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	labels := options.Filters.Get("label")
	f.lastLabels = labels
	var out []container.Summary
	for _, c := range f.containers {
		if matchesLabels(c.Labels, labels) {
			out = append(out, c)
		}
	}
	return out, nil
}

func matchesLabels(have map[string]string, want []string) bool {
	for _, kv := range want {
		k, v, _ := strings.Cut(kv, "=")
		if have[k] != v {
			return false
		}
	}
	return true
}

func (f *fakeAPI) ContainerStop(ctx context.Context, id string, options container.StopOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stopped = append(f.stopped, id)
	if options.Timeout != nil {
		f.stopSecs = append(f.stopSecs, *options.Timeout)
	}
	return nil
}

func (f *fakeAPI) Close() error { return nil }

func summary(id, project, service, state string, extra map[string]string) container.Summary {
	labels := map[string]string{
		LabelProject: project,
		LabelService: service,
	}
	for k, v := range extra {
		labels[k] = v
	}
	c := container.Summary{ID: id, Labels: labels}
	// literals keep this independent of the State field's declared type
	switch state {
	case "running":
		c.State = "running"
	case "exited":
		c.State = "exited"
	case "created":
		c.State = "created"
	}
	return c
}

type recordedRun struct {
	dir  string
	name string
	args []string
}

func newTestOrchestrator(api *fakeAPI, runs *[]recordedRun, runErr error) *Orchestrator {
	cfg := Config{
		Project:     "demos",
		WorkDir:     "/demos-dir",
		ComposeFile: "docker-compose.yml",
		Profile:     "lazy",
	}
	return newOrchestrator(cfg, api, func(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
		*runs = append(*runs, recordedRun{dir: dir, name: name, args: args})
		if runErr != nil {
			return []byte("no such service"), runErr
		}
		return []byte("Container demos-web-1 Started"), nil
	})
}

func TestOrchestrator_ListServices(t *testing.T) {
	api := &fakeAPI{containers: []container.Summary{
		summary("aaa", "demos", "web", "exited", map[string]string{"lazy": "true"}),
		summary("bbb", "demos", "web", "running", map[string]string{"lazy": "true"}),
		summary("ccc", "demos", "api", "created", nil),
		summary("ddd", "other", "db", "running", nil),
		{ID: "eee", State: "running", Labels: map[string]string{LabelProject: "demos"}},
	}}
	var runs []recordedRun
	o := newTestOrchestrator(api, &runs, nil)

	services, err := o.ListServices(context.Background())
	require.NoError(t, err)
	require.Len(t, services, 2)

	assert.Equal(t, "web", services[0].Name)
	assert.Equal(t, orchestrator.StateRunning, services[0].State, "running container wins")
	assert.Equal(t, "bbb", services[0].ContainerID)
	assert.True(t, services[0].HasTrueLabel("lazy"))

	assert.Equal(t, "api", services[1].Name)
	assert.Equal(t, orchestrator.StateStopped, services[1].State)
}

func TestOrchestrator_ListServicesError(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("daemon down")}
	var runs []recordedRun
	o := newTestOrchestrator(api, &runs, nil)

	_, err := o.ListServices(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daemon down")
}

func TestOrchestrator_Status(t *testing.T) {
	api := &fakeAPI{containers: []container.Summary{
		summary("aaa", "demos", "web", "running", map[string]string{
			LabelDependsOn: "db:service_started:false, cache:service_healthy:true",
		}),
		summary("bbb", "demos", "api", "exited", nil),
	}}
	var runs []recordedRun
	o := newTestOrchestrator(api, &runs, nil)
	ctx := context.Background()

	web, err := o.Status(ctx, "web")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StateRunning, web.State)
	assert.Equal(t, []string{"db", "cache"}, web.DependsOn)
	assert.ElementsMatch(t, []string{LabelProject + "=demos", LabelService + "=web"}, api.lastLabels)

	api2, err := o.Status(ctx, "api")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StateStopped, api2.State)

	missing, err := o.Status(ctx, "ghost")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StateAbsent, missing.State)
	assert.Equal(t, "ghost", missing.Name)
}

func TestOrchestrator_Start(t *testing.T) {
	root := composeTree(t)
	api := &fakeAPI{}
	var runs []recordedRun
	o := newTestOrchestrator(api, &runs, nil)
	o.config.WorkDir = root

	require.NoError(t, o.Start(context.Background(), "web"))
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, root, run.dir)
	assert.Equal(t, "docker", run.name)
	assert.Equal(t, []string{
		"compose", "-p", "demos", "--profile", "lazy",
		"-f", filepath.Join(root, "docker-compose.yml"),
		"--env-file", filepath.Join(root, "web", ".env"),
		"up", "-d", "web",
	}, run.args)
}

func TestOrchestrator_StartWithoutEnvFile(t *testing.T) {
	root := composeTree(t)
	var runs []recordedRun
	o := newTestOrchestrator(&fakeAPI{}, &runs, nil)
	o.config.WorkDir = root

	require.NoError(t, o.Start(context.Background(), "api"))
	require.Len(t, runs, 1)
	assert.NotContains(t, runs[0].args, "--env-file")
	assert.Equal(t, []string{"up", "-d", "api"}, runs[0].args[len(runs[0].args)-3:])
}

func TestOrchestrator_StartFailure(t *testing.T) {
	var runs []recordedRun
	o := newTestOrchestrator(&fakeAPI{}, &runs, errors.New("exit status 1"))

	err := o.Start(context.Background(), "web")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compose up web")
	assert.Contains(t, err.Error(), "no such service")
}

func TestOrchestrator_Stop(t *testing.T) {
	api := &fakeAPI{containers: []container.Summary{
		summary("0123456789abcdef", "demos", "web", "running", nil),
	}}
	var runs []recordedRun
	o := newTestOrchestrator(api, &runs, nil)

	require.NoError(t, o.Stop(context.Background(), "web", 10*time.Second))
	assert.Equal(t, []string{"0123456789abcdef"}, api.stopped)
	assert.Equal(t, []int{10}, api.stopSecs)
}

func TestOrchestrator_StopMissing(t *testing.T) {
	var runs []recordedRun
	o := newTestOrchestrator(&fakeAPI{}, &runs, nil)

	err := o.Stop(context.Background(), "ghost", time.Second)
	require.ErrorIs(t, err, orchestrator.ErrServiceNotFound)
}

func TestOrchestrator_StopError(t *testing.T) {
	api := &fakeAPI{
		containers: []container.Summary{summary("aaa", "demos", "web", "running", nil)},
		stopErr:    errors.New("permission denied"),
	}
	var runs []recordedRun
	o := newTestOrchestrator(api, &runs, nil)

	err := o.Stop(context.Background(), "web", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestParseDependsOn(t *testing.T) {
	tests := []struct {
		label string
		want  []string
	}{
		{label: "", want: nil},
		{label: "db", want: []string{"db"}},
		{label: "db:service_started:false", want: []string{"db"}},
		{label: "db:service_started:false,redis:service_healthy:true", want: []string{"db", "redis"}},
		{label: ",db:x,", want: []string{"db"}},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDependsOn(tt.label))
		})
	}
}
