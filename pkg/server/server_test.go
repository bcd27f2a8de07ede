package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/lazyproxy/pkg/activity"
	"mercator-hq/lazyproxy/pkg/config"
	"mercator-hq/lazyproxy/pkg/proxy/types"
	"mercator-hq/lazyproxy/pkg/telemetry/health"
	"mercator-hq/lazyproxy/pkg/telemetry/metrics"
)

func startServer(t *testing.T, handler http.Handler) (*Server, context.CancelFunc, <-chan error) {
	t.Helper()

	srv := NewServer(Options{Name: "test", Address: "127.0.0.1:0", ShutdownTimeout: time.Second}, handler)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("server failed to start: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}
	return srv, cancel, errCh
}

func TestServer_ServesAndShutsDown(t *testing.T) {
	srv, cancel, errCh := startServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "pong")
	}))

	require.True(t, srv.IsRunning())
	require.NotNil(t, srv.Addr())

	resp, err := http.Get("http://" + srv.Addr().String() + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.False(t, srv.IsRunning())
}

func TestServer_StartTwice(t *testing.T) {
	srv, cancel, errCh := startServer(t, http.NotFoundHandler())
	defer func() {
		cancel()
		<-errCh
	}()

	err := srv.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already been started")
}

func TestServer_ListenError(t *testing.T) {
	srv := NewServer(Options{Name: "bad", Address: "256.0.0.1:99999"}, http.NotFoundHandler())
	err := srv.Start(context.Background())
	require.Error(t, err)
	assert.Nil(t, srv.Addr())
	assert.False(t, srv.IsRunning())
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	srv := NewServer(Options{Name: "idle"}, http.NotFoundHandler())
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestProxyOptions(t *testing.T) {
	cfg := config.Default()
	opts := ProxyOptions(cfg.Proxy)
	assert.Equal(t, "proxy", opts.Name)
	assert.Equal(t, cfg.Proxy.ListenAddress, opts.Address)
	assert.Equal(t, cfg.Proxy.ShutdownTimeout, opts.ShutdownTimeout)
	assert.Equal(t, cfg.Proxy.MaxHeaderBytes, opts.MaxHeaderBytes)
}

type fakeClock interface {
	clockwork.Clock
	Advance(d time.Duration)
}

func newAdmin(t *testing.T) (Admin, *activity.Tracker, fakeClock) {
	t.Helper()

	cfg := config.Default()
	var clock fakeClock = clockwork.NewFakeClock()
	tracker := activity.NewTracker(clock)
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())

	return Admin{
		Telemetry:   cfg.Telemetry,
		Checker:     health.New(time.Second),
		Collector:   collector,
		Tracker:     tracker,
		IdleTimeout: func() time.Duration { return 10 * time.Second },
	}, tracker, clock
}

func TestAdmin_Services(t *testing.T) {
	admin, tracker, clock := newAdmin(t)

	tracker.Discover("web")
	tracker.RecordEntry("api")
	clock.Advance(4 * time.Second)

	rec := httptest.NewRecorder()
	admin.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, ServicesPath, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var list types.ServiceList
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))

	assert.Equal(t, 10.0, list.IdleTimeoutSeconds)
	require.Len(t, list.Services, 2)

	api, web := list.Services[0], list.Services[1]
	assert.Equal(t, "api", api.Name)
	assert.Equal(t, 1, api.InFlight)
	assert.Zero(t, api.IdleSeconds)
	assert.Zero(t, api.ReclaimInSeconds)

	assert.Equal(t, "web", web.Name)
	assert.Equal(t, 4.0, web.IdleSeconds)
	assert.Equal(t, 6.0, web.ReclaimInSeconds)
}

func TestAdmin_ServicesRejectsPost(t *testing.T) {
	admin, _, _ := newAdmin(t)

	rec := httptest.NewRecorder()
	admin.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, ServicesPath, nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAdmin_HealthAndMetrics(t *testing.T) {
	admin, _, _ := newAdmin(t)
	admin.Collector.RecordRequest("web", metrics.OutcomeOK, time.Millisecond)
	h := admin.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lazyproxy_proxy_requests_total")
}

func TestAdmin_MetricsDisabled(t *testing.T) {
	admin, _, _ := newAdmin(t)
	admin.Telemetry.Metrics.Enabled = false

	rec := httptest.NewRecorder()
	admin.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
