package worker

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/campusar/wayfinder/internal/config"
	"github.com/campusar/wayfinder/internal/dispatcher"
	"github.com/campusar/wayfinder/internal/hud"
	"github.com/campusar/wayfinder/internal/influx"
	"github.com/campusar/wayfinder/internal/logging"
	"github.com/campusar/wayfinder/internal/parser"
	"github.com/campusar/wayfinder/internal/roomdb"
	"github.com/campusar/wayfinder/internal/session"
	"github.com/campusar/wayfinder/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type fixture struct {
	d       *dispatcher.Dispatcher
	m       *Manager
	s       *session.Session
	logs    *bytes.Buffer
	console *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{logs: &bytes.Buffer{}, console: &bytes.Buffer{}}

	lm := logging.NewSlogManager()
	lm.Setup(f.logs, "debug", logging.Options{})

	s, err := session.New("worker-test", config.SceneConfig{
		MetersPerUnit:     100,
		WalkingSpeed:      1.4,
		HideOnLoss:        true,
		TapSameToDeselect: true,
	}, config.GestureConfig{
		HoldDuration:    600 * time.Millisecond,
		MoveTolerancePx: 20,
		PickRadiusPx:    48,
		PixelsPerUnit:   100,
		ScreenCenterX:   500,
		ScreenCenterY:   500,
	}, session.Dependencies{
		Store:  roomdb.NewTable(core.DetailRecord{RoomID: "b204", SeatsAvailable: 30}),
		HUD:    hud.NewConsole(f.console),
		Logger: lm.Logger(),
	})
	require.NoError(t, err)
	f.s = s

	f.m = NewManager(Dependencies{
		Session:    s,
		Parser:     parser.NewParser(lm.Logger()),
		LogManager: lm,
		Clock:      func() time.Time { return t0 },
	})

	f.d, err = dispatcher.New(lm.Logger())
	require.NoError(t, err)
	t.Cleanup(f.d.Close)
	f.m.RegisterHandlers(f.d)
	return f
}

func (f *fixture) send(t *testing.T, command string, args ...string) {
	t.Helper()
	_, err := f.d.Dispatch(dispatcher.Event{Command: command, Args: args})
	require.NoError(t, err, command)
}

func TestRegisterHandlers_AllCommands(t *testing.T) {
	f := newFixture(t)
	for _, cmd := range []string{
		":MARKER:ADDED:", ":MARKER:UPDATED:", ":MARKER:REMOVED:", ":FRAME:",
		":POINTER:", ":TAP:", ":HOLD:", ":CLEAR:", ":LOG:", ":METRIC:",
	} {
		assert.True(t, f.d.HasHandler(cmd), cmd)
	}
}

func TestMarkers_BatchedUntilFrame(t *testing.T) {
	f := newFixture(t)

	f.send(t, ":MARKER:ADDED:", `"B204"`, "0", "0", "0")
	f.send(t, ":MARKER:ADDED:", `"C101"`, "3", "0", "4", "0", "0", "0", "1", "Tracking")
	assert.Equal(t, 2, f.m.PendingMarkers())
	assert.Equal(t, 0, f.s.Pending())

	f.send(t, ":FRAME:")
	assert.Equal(t, 0, f.m.PendingMarkers())
	assert.Equal(t, 1, f.m.Frames())

	res := f.s.Step(t0)
	assert.Equal(t, 1, res.Frames)
	assert.Equal(t, 2, f.s.Entities().Len())

	f.send(t, ":MARKER:REMOVED:", "C101")
	f.send(t, ":FRAME:")
	f.s.Step(t0.Add(time.Second))
	e, ok := f.s.Entities().Get("c101")
	require.True(t, ok)
	assert.False(t, e.Visible)
}

func TestFrame_EmptyBatchNotCounted(t *testing.T) {
	f := newFixture(t)
	f.send(t, ":FRAME:")
	assert.Equal(t, 0, f.m.Frames())
	assert.Equal(t, 0, f.s.Pending())
}

func TestMarker_BadArgsReturnError(t *testing.T) {
	f := newFixture(t)

	_, err := f.d.Dispatch(dispatcher.Event{Command: ":MARKER:ADDED:", Args: []string{"B204", "1"}})
	assert.ErrorIs(t, err, parser.ErrTooFewArgs)
	assert.Equal(t, 0, f.m.PendingMarkers())
}

func TestTapCommands_ShowDistance(t *testing.T) {
	f := newFixture(t)
	f.send(t, ":MARKER:ADDED:", "B204", "0", "0", "0")
	f.send(t, ":MARKER:ADDED:", "C101", "3", "0", "4")
	f.send(t, ":FRAME:")

	f.send(t, ":TAP:", "b204")
	f.send(t, ":TAP:", " C101 ")
	f.s.Step(t0)

	assert.Contains(t, f.s.HUD().Distance(), "Distance: 500.00 m")

	f.send(t, ":CLEAR:")
	f.s.Step(t0.Add(time.Second))
	assert.Equal(t, "", f.s.HUD().Distance())
}

func TestPointerCommands_HoldOpensPanel(t *testing.T) {
	f := newFixture(t)
	f.send(t, ":MARKER:ADDED:", "B204", "0", "0", "0")
	f.send(t, ":FRAME:")
	f.s.Step(t0)

	_, err := f.d.Dispatch(dispatcher.Event{Command: ":POINTER:", Args: []string{"0", "down", "500", "500"}, Timestamp: t0})
	require.NoError(t, err)
	f.s.Step(t0.Add(700 * time.Millisecond))

	panel, ok := f.s.HUD().Panel()
	require.True(t, ok)
	assert.Equal(t, "b204", panel.Title)

	_, err = f.d.Dispatch(dispatcher.Event{Command: ":POINTER:", Args: []string{"0", "wiggle", "1", "1"}})
	assert.ErrorContains(t, err, "unknown pointer kind")
}

func TestTapCommand_SkipsGesture(t *testing.T) {
	f := newFixture(t)
	f.send(t, ":MARKER:ADDED:", "B204", "0", "0", "0")
	f.send(t, ":MARKER:ADDED:", "C101", "3", "0", "4")
	f.send(t, ":FRAME:")
	f.s.Step(t0)

	_, err := f.d.Dispatch(dispatcher.Event{Command: ":POINTER:", Args: []string{"0", "down", "500", "500"}, Timestamp: t0})
	require.NoError(t, err)
	f.send(t, ":TAP:", "c101")
	f.s.Step(t0.Add(100 * time.Millisecond))

	a, _ := f.s.Selection().Slots()
	assert.Equal(t, core.Identity("c101"), a.Identity())

	// the press still resolves to a hold on its own entity
	f.s.Step(t0.Add(700 * time.Millisecond))
	panel, ok := f.s.HUD().Panel()
	require.True(t, ok)
	assert.Equal(t, "b204", panel.Title)
	a, _ = f.s.Selection().Slots()
	assert.Equal(t, core.Identity("c101"), a.Identity())
}

func TestHoldCommand_NotFoundPanel(t *testing.T) {
	f := newFixture(t)
	f.send(t, ":HOLD:", "Z999")
	f.s.Step(t0)

	panel, ok := f.s.HUD().Panel()
	require.True(t, ok)
	assert.False(t, panel.Found)
}

func TestLogCommand_Buffered(t *testing.T) {
	f := newFixture(t)
	f.send(t, ":LOG:", `"warn"`, `"camera"`, `"lost focus"`)
	f.d.Close()

	assert.Contains(t, f.logs.String(), `level=WARN msg="camera lost focus" command=:LOG:`)
}

func TestMetricCommand_WritesBackup(t *testing.T) {
	f := newFixture(t)
	backup := filepath.Join(t.TempDir(), "metrics.lp.gz")
	im := influx.NewManager(zerolog.Nop(), backup)
	im.BucketNames = []string{influx.PerformanceBucket}
	f.m.deps.Influx = im

	f.send(t, ":METRIC:", influx.PerformanceBucket, "kiosk", "field::int::fps::60")
	f.d.Close()

	// never connected: no writer, no backup
	assert.Contains(t, f.logs.String(), "failed to write metric")
}

func TestGetLastDBWriteDuration_NoBackend(t *testing.T) {
	m := NewManager(Dependencies{Parser: parser.NewParser(slog.Default())})
	assert.Equal(t, time.Duration(0), m.GetLastDBWriteDuration())
}
