package monitor

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/campusar/wayfinder/internal/config"
	"github.com/campusar/wayfinder/internal/influx"
	"github.com/campusar/wayfinder/internal/roomdb"
	"github.com/campusar/wayfinder/internal/session"
	"github.com/campusar/wayfinder/internal/worker"
	"github.com/campusar/wayfinder/pkg/core"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

func newSession(t *testing.T) *session.Session {
	t.Helper()
	s, err := session.New("monitor-test", config.SceneConfig{
		MetersPerUnit:     100,
		WalkingSpeed:      1.4,
		HideOnLoss:        true,
		TapSameToDeselect: true,
	}, config.GestureConfig{
		HoldDuration:  600 * time.Millisecond,
		PickRadiusPx:  48,
		PixelsPerUnit: 100,
	}, session.Dependencies{Store: roomdb.NewTable()})
	require.NoError(t, err)

	s.PushFrame(core.FrameBatch{Added: []core.MarkerEvent{
		{Identity: "b204", State: core.Tracking},
		{Identity: "c101", Pose: core.Pose{Position: core.Position3D{X: 3}}, State: core.TrackingLimited},
	}})
	s.PushTap("b204")
	s.Step(t0)
	s.PushClear()
	return s
}

func TestGetStatus(t *testing.T) {
	s := newSession(t)
	svc := NewService(Dependencies{
		Session: s,
		Worker:  worker.NewManager(worker.Dependencies{Session: s}),
		Clock:   func() time.Time { return t0 },
	})

	st := svc.GetStatus()
	assert.Equal(t, t0, st.Time)
	assert.Equal(t, "monitor-test", st.Session)
	assert.Equal(t, 2, st.Entities)
	assert.Equal(t, 1, st.Tracked)
	assert.Equal(t, 1, st.PendingInputs)
	assert.Equal(t, "b204", st.SlotA)
	assert.Equal(t, "", st.SlotB)
	assert.Zero(t, st.LastWriteMs)
}

func TestReport_StatusFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	svc := NewService(Dependencies{
		Session:    newSession(t),
		StatusFile: path,
		Clock:      func() time.Time { return t0 },
	})
	require.NoError(t, svc.Report())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Status
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 2, got.Entities)
	assert.Equal(t, "b204", got.SlotA)
	assert.NotContains(t, string(data), "slotB")
	assert.NoFileExists(t, path+".tmp")
}

func TestReport_InfluxBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx.lp.gz")
	m := influx.NewManager(zerolog.Nop(), backup)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx, config.InfluxConfig{
		Enabled: true,
		URL:     "http://127.0.0.1:1",
		Org:     "wayfinder",
		Bucket:  "scene_telemetry",
	}))

	svc := NewService(Dependencies{
		Session: newSession(t),
		Influx:  m,
		Clock:   func() time.Time { return t0 },
	})
	require.NoError(t, svc.Report())
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	sc := bufio.NewScanner(gr)
	require.True(t, sc.Scan())
	line := sc.Text()
	assert.Contains(t, line, "status,session=monitor-test ")
	assert.Contains(t, line, "entities=2i")
	assert.Contains(t, line, "tracked=1i")
}

func TestStartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "status.json")
	svc := NewService(Dependencies{
		Session:    newSession(t),
		StatusFile: path,
		Interval:   10 * time.Millisecond,
	})
	require.NoError(t, svc.Start())
	require.NoError(t, svc.Start())
	assert.True(t, svc.IsRunning())

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	svc.Stop()
	assert.False(t, svc.IsRunning())
	svc.Stop()
}

func TestStart_InvalidInterval(t *testing.T) {
	svc := NewService(Dependencies{Session: newSession(t)})
	assert.Error(t, svc.Start())
	assert.False(t, svc.IsRunning())
}

func TestMetrics_Handler(t *testing.T) {
	svc := NewService(Dependencies{
		Session: newSession(t),
		Worker:  worker.NewManager(worker.Dependencies{}),
	})
	m, err := NewMetrics(svc)
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(m.Registry())
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	mux := http.NewServeMux()
	m.RegisterHandlers(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `wayfinder_scene_entities{session="monitor-test"} 2`)
	assert.Contains(t, body, `wayfinder_scene_tracked_markers{session="monitor-test"} 1`)
}

func TestMetrics_Serve(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	m, err := NewMetrics(NewService(Dependencies{Session: newSession(t)}))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Serve(ctx, addr) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	assert.Eventually(t, func() bool {
		resp, err := client.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
