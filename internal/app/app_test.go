package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/statusservice/internal/config"
	"github.com/turtacn/statusservice/internal/infrastructure/clock"
	"github.com/turtacn/statusservice/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            5000,
			ShutdownTimeout: time.Second,
			MaxBodyBytes:    16 << 20,
		},
		Storage: config.StorageConfig{
			Backend:     "file",
			DataDir:     dir,
			OverflowDir: filepath.Join(dir, "overflow"),
			RedisPrefix: "statusservice:",
		},
		LogStore:   config.LogStoreConfig{Driver: "sqlite", DSN: filepath.Join(dir, "logs.db")},
		LogSink:    config.LogSinkConfig{ShutdownGrace: 5 * time.Second},
		RateLimit:  config.RateLimitConfig{Enabled: true, JanitorInterval: time.Minute},
		Log:        config.LogConfig{Level: "info", Format: "json"},
		Monitoring: config.MonitoringConfig{MetricsEnabled: true},
	}
}

type testApp struct {
	*App
	clock *clock.ManualClock
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) *testApp {
	t.Helper()
	clk := clock.NewManualClock(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))
	opts = append([]Option{WithClock(clk), WithRegistry(prometheus.NewRegistry()), WithSeed(7)}, opts...)
	a, err := New(context.Background(), cfg, logger.NewNullLogger(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return &testApp{App: a, clock: clk}
}

func (a *testApp) get(path, remote string) (*httptest.ResponseRecorder, map[string]interface{}) {
	return a.do(http.MethodGet, path, remote, "")
}

func (a *testApp) do(method, path, remote, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.RemoteAddr = remote
	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, req)
	var m map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	return w, m
}

func TestBanLifecycleEndToEnd(t *testing.T) {
	a := newTestApp(t, testConfig(t))
	const client = "10.0.0.5:51000"

	for i := 1; i <= 200; i++ {
		w, _ := a.get("/api/users?count=1", client)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
		a.clock.Advance(2900 * time.Millisecond)
	}

	w, body := a.get("/api/users?count=1", client)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Rate limit exceeded - IP blocked", body["error"])

	w, body = a.get("/blocklist", client)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body["blocked_ips"], "10.0.0.5")

	w, body = a.get("/limits?ip=10.0.0.5", client)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["banned"])

	w, _ = a.get("/unblock?ip=10.0.0.5", client)
	require.Equal(t, http.StatusOK, w.Code)

	// the windows are not reset by an unban
	w, body = a.get("/api/users?count=1", client)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Rate limit exceeded - IP blocked", body["error"])
}

func TestLogsAreQueryableNewestFirst(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	for _, p := range []string{"/status/200", "/status/404", "/status/503"} {
		a.get(p, "10.0.0.6:1")
	}
	require.NoError(t, a.Sink().Close(context.Background()))

	w, body := a.get("/logs?limit=3", "10.0.0.6:1")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, float64(3), body["count"])

	var paths []string
	var statuses []float64
	for _, l := range body["logs"].([]interface{}) {
		rec := l.(map[string]interface{})
		paths = append(paths, rec["path"].(string))
		statuses = append(statuses, rec["status_code"].(float64))
		assert.Equal(t, "10.0.0.6", rec["ip"])
	}
	assert.Equal(t, []string{"/status/503", "/status/404", "/status/200"}, paths)
	assert.Equal(t, []float64{503, 404, 200}, statuses)
}

func TestLargeEchoIsOffloaded(t *testing.T) {
	cfg := testConfig(t)
	a := newTestApp(t, cfg)

	w, body := a.do(http.MethodPost, "/api/echo", "10.0.0.7:1", strings.Repeat("a", 210*1024))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["overflow"])

	require.NoError(t, a.Sink().Close(context.Background()))
	recs, err := a.Sink().Query(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.True(t, recs[0].HasOverflow())
	assert.Equal(t, filepath.Join(cfg.Storage.OverflowDir, "2026-05-04", "000001"), *recs[0].OverflowRef)
}

func TestHealthAndNotFound(t *testing.T) {
	a := newTestApp(t, testConfig(t))

	w, body := a.get("/health", "10.0.0.8:1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "2026-05-04T10:00:00Z", body["time"])

	w, body = a.get("/nope", "10.0.0.8:1")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not found", body["error"])

	w, _ = a.get("/metrics", "10.0.0.8:1")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Storage.Backend = "redis"
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	a := newTestApp(t, cfg, WithRedisClient(client))
	for i := 0; i < 201; i++ {
		a.get("/status/200", "10.0.0.9:1")
		a.clock.Advance(2900 * time.Millisecond)
	}

	raw, err := mr.Get("statusservice:blocked_ips")
	require.NoError(t, err)
	assert.Contains(t, raw, "10.0.0.9")

	w, body := a.get("/health", "10.0.0.9:1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["checks"].(map[string]interface{})["redis"])
}
