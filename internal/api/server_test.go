package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/vitals/internal/logger"
	"github.com/rileyhilliard/vitals/internal/monitor"
	"github.com/rileyhilliard/vitals/internal/monitor/monitortest"
	sshtesting "github.com/rileyhilliard/vitals/pkg/sshutil/testing"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	srv    *Server
	reg    *monitor.Registry
	dialer *monitortest.Dialer
	log    *logger.BufferLogger
}

func (e *testEnv) client(t *testing.T, id string) *sshtesting.MockClient {
	t.Helper()
	m, ok := e.dialer.Client(id)
	require.True(t, ok, "no session dialled for %s", id)
	return m
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	d := monitortest.NewDialer()
	log := logger.NewBufferLogger()
	reg := monitor.NewRegistry(monitor.RegistryOptions{
		Dialer:       d.Dial,
		ProbeTimeout: time.Second,
		Logger:       log,
	})
	t.Cleanup(reg.CloseAll)

	sampler := monitor.NewSampler(reg, monitor.SamplerOptions{
		ProbeTimeout:    time.Second,
		CategoryTimeout: 2 * time.Second,
		Logger:          log,
	})
	srv := New(Options{
		Sampler:      sampler,
		Logger:       log,
		PollInterval: 50 * time.Millisecond,
	})
	return &testEnv{srv: srv, reg: reg, dialer: d, log: log}
}

type response struct {
	Success      bool            `json:"success"`
	ConnectionID string          `json:"connectionId"`
	Message      string          `json:"message"`
	Error        string          `json:"error"`
	Code         string          `json:"code"`
	Data         json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)

	var resp response
	if rec.Code != http.StatusNoContent {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

const webConnect = `{"host":"web1","port":22,"username":"ops","password":"hunter2","os":"linux"}`

func (e *testEnv) connect(t *testing.T) string {
	t.Helper()
	rec, resp := e.do(t, http.MethodPost, "/api/connect", webConnect)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, resp.Success)
	return resp.ConnectionID
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)

	rec, resp := e.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.JSONEq(t, `{"status":"ok","connections":0}`, string(resp.Data))
}

func TestConnect(t *testing.T) {
	e := newTestEnv(t)

	id := e.connect(t)
	assert.Equal(t, "ops@web1:22", id)
	assert.Equal(t, 1, e.reg.Len())
	assert.True(t, e.log.Contains("info", "ops@web1:22: connected"))
}

func TestConnect_DefaultsPortAndOS(t *testing.T) {
	e := newTestEnv(t)

	rec, resp := e.do(t, http.MethodPost, "/api/connect", `{"host":"db1","username":"root","password":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "root@db1:22", resp.ConnectionID)

	got, err := e.reg.Get("root@db1:22")
	require.NoError(t, err)
	assert.Equal(t, monitor.PlatformLinux, got.Platform())
}

func TestConnect_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"host":`},
		{"missing host", `{"username":"ops"}`},
		{"missing username", `{"host":"web1"}`},
		{"port out of range", `{"host":"web1","username":"ops","port":70000}`},
		{"unknown os", `{"host":"web1","username":"ops","os":"plan9"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)

			rec, resp := e.do(t, http.MethodPost, "/api/connect", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, "INVALID_INPUT", resp.Code)
			assert.NotEmpty(t, resp.Error)
			assert.Zero(t, e.dialer.Dials(), "nothing is dialled")
		})
	}
}

func TestConnect_DialFailure(t *testing.T) {
	e := newTestEnv(t)
	e.dialer.Fail(stderrors.New("ssh: handshake failed: unable to authenticate"))

	rec, resp := e.do(t, http.MethodPost, "/api/connect", webConnect)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "CONNECT_FAILED", resp.Code)
	assert.Contains(t, resp.Error, "unable to authenticate")
	assert.NotContains(t, rec.Body.String(), "hunter2")
	assert.Zero(t, e.reg.Len())
}

func TestMonitoringData(t *testing.T) {
	e := newTestEnv(t)
	id := e.connect(t)

	for _, path := range []string{
		"/api/monitoring-data/" + id,
		"/api/monitoring-data/ops%40web1%3A22",
	} {
		rec, resp := e.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.True(t, resp.Success)

		var snap monitor.Snapshot
		require.NoError(t, json.Unmarshal(resp.Data, &snap))
		assert.Equal(t, id, snap.ConnectionID)
		assert.Equal(t, "web1", snap.System.Hostname)
		assert.Equal(t, int64(3600), snap.System.UptimeSeconds)
		assert.InDelta(t, 25.0, snap.CPU.UsagePercent, 0.001)
		assert.InDelta(t, 50.0, snap.Memory.UsagePercent, 0.001)
		require.Len(t, snap.Storage, 1)
		assert.Equal(t, "/", snap.Storage[0].MountPoint)
		assert.InDelta(t, 65536.0, snap.Storage[0].ReadBps, 0.001)
		assert.Nil(t, snap.GPU)
		assert.NotContains(t, string(resp.Data), `"gpu"`)
	}
}

func TestMonitoringData_UnknownID(t *testing.T) {
	e := newTestEnv(t)

	rec, resp := e.do(t, http.MethodGet, "/api/monitoring-data/nobody@nowhere:22", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "NOT_FOUND", resp.Code)
}

func TestMonitoringData_ConnectionLost(t *testing.T) {
	e := newTestEnv(t)
	id := e.connect(t)
	e.client(t, id).SetError(monitortest.ProbePattern, stderrors.New("broken pipe"))

	rec, resp := e.do(t, http.MethodGet, "/api/monitoring-data/"+id, "")
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "CONNECTION_LOST", resp.Code)
	assert.True(t, e.log.Contains("warn", "evicted"))
	assert.True(t, e.client(t, id).IsClosed())

	rec, resp = e.do(t, http.MethodGet, "/api/monitoring-data/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", resp.Code)
}

func TestDisconnect(t *testing.T) {
	e := newTestEnv(t)
	id := e.connect(t)

	rec, resp := e.do(t, http.MethodPost, "/api/disconnect/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, "Disconnected successfully", resp.Message)
	assert.True(t, e.client(t, id).IsClosed())
	assert.Zero(t, e.reg.Len())

	rec, resp = e.do(t, http.MethodPost, "/api/disconnect/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", resp.Code)
}

func TestDisconnect_Body(t *testing.T) {
	e := newTestEnv(t)
	id := e.connect(t)

	rec, resp := e.do(t, http.MethodPost, "/api/disconnect", `{"connectionId":"`+id+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)

	rec, resp = e.do(t, http.MethodPost, "/api/disconnect", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", resp.Code)
}

func TestConnections(t *testing.T) {
	e := newTestEnv(t)
	e.connect(t)
	_, _ = e.do(t, http.MethodPost, "/api/connect", `{"host":"db1","username":"root"}`)

	rec, resp := e.do(t, http.MethodGet, "/api/connections", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["ops@web1:22","root@db1:22"]`, string(resp.Data))
}

func TestCORS(t *testing.T) {
	e := newTestEnv(t)

	rec, _ := e.do(t, http.MethodOptions, "/api/connect", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")

	rec, _ = e.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ConfiguredOrigin(t *testing.T) {
	reg := monitor.NewRegistry(monitor.RegistryOptions{})
	srv := New(Options{
		Sampler:    monitor.NewSampler(reg, monitor.SamplerOptions{}),
		CORSOrigin: "http://localhost:3000",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServe_ShutsDownWithContext(t *testing.T) {
	e := newTestEnv(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- e.srv.Serve(ctx, l) }()

	url := "http://" + l.Addr().String() + "/api/health"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	_, err = http.Get(url)
	assert.Error(t, err)
	assert.True(t, e.log.Contains("info", "shutting down"))
}
