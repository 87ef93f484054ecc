package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-browsertest/types"
)

func TestHealthz(t *testing.T) {
	h := NewHealthzServer(testlog.Logger(t, log.LevelInfo), nil)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthzRejectsPost(t *testing.T) {
	h := NewHealthzServer(testlog.Logger(t, log.LevelInfo), nil)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/healthz", "text/plain", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStatusEndpoint(t *testing.T) {
	board := NewStatusBoard()
	h := NewHealthzServer(testlog.Logger(t, log.LevelInfo), board)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	fetch := func() Status {
		resp, err := http.Get(srv.URL + "/status")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
		var s Status
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&s))
		return s
	}

	s := fetch()
	assert.Equal(t, 0, s.Runs)
	assert.Nil(t, s.LastRun)

	board.RunStarted()
	assert.True(t, fetch().Running)

	board.RunFinished("staging", &types.AggregateResult{
		RunID:       "run-1",
		Status:      types.TestStatusFail,
		TotalTests:  4,
		Passed:      3,
		Failed:      1,
		ElapsedTime: 2 * time.Second,
	})
	s = fetch()
	assert.False(t, s.Running)
	assert.Equal(t, 1, s.Runs)
	require.NotNil(t, s.LastRun)
	assert.Equal(t, "run-1", s.LastRun.RunID)
	assert.Equal(t, "staging", s.LastRun.Environment)
	assert.Equal(t, types.TestStatusFail, s.LastRun.Status)
	assert.Equal(t, 1, s.LastRun.Failed)
	assert.Equal(t, "2 seconds", s.LastRun.ElapsedTime)
}

func TestStatusBoardNilResult(t *testing.T) {
	board := NewStatusBoard()
	board.RunStarted()
	board.RunFinished("staging", nil)
	s := board.Snapshot()
	assert.False(t, s.Running)
	assert.Equal(t, 0, s.Runs)
}

func TestCORSHeaders(t *testing.T) {
	h := NewHealthzServer(testlog.Logger(t, log.LevelInfo), nil)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/status", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "browsertest_test_counter", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	m := NewMetricsServer(reg)
	srv := httptest.NewServer(m.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServiceShutdownBeforeStart(t *testing.T) {
	s := New(Config{Log: testlog.Logger(t, log.LevelInfo), MetricsEnabled: true})
	require.NotNil(t, s.Metrics)
	s.Shutdown(context.Background())
}

func TestServiceDefaults(t *testing.T) {
	s := New(Config{})
	assert.Equal(t, HealthzHost, s.cfg.HealthzAddr)
	assert.Equal(t, HealthzPort, s.cfg.HealthzPort)
	assert.Nil(t, s.Metrics)
}
