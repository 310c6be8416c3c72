package mirror

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	lderrors "github.com/rileyhilliard/labdash/internal/errors"
	"github.com/rileyhilliard/labdash/internal/logger"
	"github.com/rileyhilliard/labdash/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClock = time.Unix(1000, 0).UTC()

func testMonitors(t *testing.T) []*telemetry.Monitor {
	t.Helper()
	gpu := telemetry.NewMonitor(telemetry.MonitorConfig{
		Panel:    "Beast",
		Kind:     telemetry.KindGPU,
		Channels: 2,
		Capacity: 3,
		Now:      func() time.Time { return testClock },
		Source: telemetry.SourceFunc(func(context.Context) (telemetry.Reading, error) {
			return telemetry.Reading{Pairs: []telemetry.Pair{{Primary: 42, Secondary: 65}, {Primary: 7, Secondary: 30}}}, nil
		}),
	})
	host := telemetry.NewMonitor(telemetry.MonitorConfig{
		Panel:    "Beast",
		Kind:     telemetry.KindHost,
		Capacity: 3,
		Now:      func() time.Time { return testClock },
		Source: telemetry.SourceFunc(func(context.Context) (telemetry.Reading, error) {
			return telemetry.Reading{}, telemetry.ErrTimeout
		}),
	})
	require.NoError(t, gpu.Receiver.Step(context.Background()))
	return []*telemetry.Monitor{gpu, host}
}

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	s := New(testMonitors(t), opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
		ts.Close()
	})
	return s, ts
}

func getJSON(t *testing.T, url string, into any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if into != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	var body map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["sources"])
}

func TestListSources(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	var sources []SourceView
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/sources", &sources))
	require.Len(t, sources, 2)

	assert.Equal(t, "Beast/gpu", sources[0].Name)
	assert.Equal(t, "gpu", sources[0].Kind)
	assert.Equal(t, 2, sources[0].Channels)
	assert.Equal(t, "ok", sources[0].Status)
	require.NotNil(t, sources[0].UpdatedAt)
	assert.True(t, testClock.Equal(*sources[0].UpdatedAt))

	assert.Equal(t, "Beast/host", sources[1].Name)
	assert.Equal(t, StatusWaiting, sources[1].Status)
	assert.Nil(t, sources[1].UpdatedAt)
}

func TestGetSource(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	var view SeriesView
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/sources/Beast/gpu", &view))

	assert.Equal(t, [2]string{"GPU Usage", "GPU Temperature"}, view.Labels)
	require.Len(t, view.Series, 2)
	require.Len(t, view.Series[0], 3, "baseline samples fill the buffer")

	last := view.Series[0][2]
	assert.Equal(t, 42.0, last.Primary)
	assert.Equal(t, 65.0, last.Secondary)
	assert.Equal(t, "ok", last.Status)
	assert.Equal(t, 7.0, view.Series[1][2].Primary)
}

func TestGetSourceSentinelPlotValues(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	host, ok := s.monitor("Beast/host")
	require.True(t, ok)
	require.NoError(t, host.Receiver.Step(context.Background()))

	var view SeriesView
	require.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/api/sources/Beast/host", &view))

	last := view.Series[0][len(view.Series[0])-1]
	assert.Equal(t, "timeout", last.Status)
	assert.Equal(t, telemetry.TimeoutPlotValue, last.Primary)
	assert.Equal(t, "timeout", view.Status)
}

func TestGetSourceNotFound(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	tests := []string{"/api/sources/Beauty/gpu", "/api/sources/Beast/disk"}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			var body map[string]string
			assert.Equal(t, http.StatusNotFound, getJSON(t, ts.URL+path, &body))
			assert.Contains(t, body["error"], "unknown source")
		})
	}
}

func dialStream(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestStreamPushesSeries(t *testing.T) {
	_, ts := newTestServer(t, Options{PushInterval: 20 * time.Millisecond})
	conn := dialStream(t, ts)

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg StreamMessage
		require.NoError(t, conn.ReadJSON(&msg))

		assert.Equal(t, MessageTypeSeries, msg.Type)
		require.Len(t, msg.Sources, 2)
		assert.Equal(t, "Beast/gpu", msg.Sources[0].Name)
		assert.Equal(t, 42.0, msg.Sources[0].Series[0][2].Primary)
	}
}

func TestShutdownClosesStreams(t *testing.T) {
	s, ts := newTestServer(t, Options{PushInterval: time.Hour})
	conn := dialStream(t, ts)

	var first StreamMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&first))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	// Second shutdown is a no-op.
	assert.NoError(t, s.Shutdown(ctx))
}

func TestStreamRefusedAfterShutdown(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	require.NoError(t, s.Shutdown(context.Background()))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if conn != nil {
		conn.Close()
	}
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	// Plain reads keep working for the remaining lifetime of the handler.
	var body map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, ts.URL+"/healthz", &body))
}

func TestStartAndShutdown(t *testing.T) {
	log := logger.NewBufferLogger()
	s := New(testMonitors(t), Options{Logger: log})

	addr, err := s.Start("127.0.0.1:0")
	require.NoError(t, err)

	var body map[string]any
	assert.Equal(t, http.StatusOK, getJSON(t, "http://"+addr.String()+"/healthz", &body))

	require.NoError(t, s.Shutdown(context.Background()))
	assert.True(t, log.HasLevel("info"))
	assert.True(t, log.HasLevel("debug"), "requests are logged at debug")

	_, err = http.Get("http://" + addr.String() + "/healthz")
	assert.Error(t, err)
}

func TestStartBindError(t *testing.T) {
	first := New(nil, Options{})
	addr, err := first.Start("127.0.0.1:0")
	require.NoError(t, err)
	defer first.Shutdown(context.Background())

	_, err = New(nil, Options{}).Start(addr.String())
	require.Error(t, err)
	assert.True(t, lderrors.IsCode(err, lderrors.ErrBind))
}
