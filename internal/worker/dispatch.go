package worker

import (
	"fmt"
	"strings"
	"time"

	"github.com/campusar/wayfinder/internal/dispatcher"
	"github.com/campusar/wayfinder/internal/influx"
	"github.com/campusar/wayfinder/internal/util"
	"github.com/campusar/wayfinder/pkg/core"
)

// RegisterHandlers registers all command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Tracker feed - sync, arrival order is the frame order
	d.Register(":MARKER:ADDED:", m.handleMarkerAdded, dispatcher.Logged())
	d.Register(":MARKER:UPDATED:", m.handleMarkerUpdated, dispatcher.Logged())
	d.Register(":MARKER:REMOVED:", m.handleMarkerRemoved, dispatcher.Logged())
	d.Register(":FRAME:", m.handleFrame, dispatcher.Logged())

	// Touch input - sync. Raw presses go through :POINTER:; :TAP: and :HOLD:
	// are already-resolved commands from a script or operator.
	d.Register(":POINTER:", m.handlePointer, dispatcher.Logged())
	d.Register(":TAP:", m.handleTap, dispatcher.Logged())
	d.Register(":HOLD:", m.handleHold, dispatcher.Logged())
	d.Register(":CLEAR:", m.handleClear, dispatcher.Logged())

	// Side channels - buffered
	d.Register(":LOG:", m.handleLog, dispatcher.Buffered(1000))
	d.Register(":METRIC:", m.handleMetric, dispatcher.Buffered(1000), dispatcher.Logged())
}

func (m *Manager) eventTime(e dispatcher.Event) time.Time {
	if e.Timestamp.IsZero() {
		return m.deps.Clock()
	}
	return e.Timestamp
}

func (m *Manager) handleMarkerAdded(e dispatcher.Event) (any, error) {
	ev, err := m.deps.Parser.ParseMarker(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse added marker: %w", err)
	}
	m.mu.Lock()
	m.pending.Added = append(m.pending.Added, ev)
	m.mu.Unlock()
	return nil, nil
}

func (m *Manager) handleMarkerUpdated(e dispatcher.Event) (any, error) {
	ev, err := m.deps.Parser.ParseMarker(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated marker: %w", err)
	}
	m.mu.Lock()
	m.pending.Updated = append(m.pending.Updated, ev)
	m.mu.Unlock()
	return nil, nil
}

func (m *Manager) handleMarkerRemoved(e dispatcher.Event) (any, error) {
	ev, err := m.deps.Parser.ParseMarkerRemoved(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse removed marker: %w", err)
	}
	m.mu.Lock()
	m.pending.Removed = append(m.pending.Removed, ev)
	m.mu.Unlock()
	return nil, nil
}

// handleFrame closes the pending batch and pushes it to the session.
func (m *Manager) handleFrame(dispatcher.Event) (any, error) {
	m.mu.Lock()
	batch := m.pending
	m.pending = core.FrameBatch{}
	if !batch.Empty() {
		m.frames++
	}
	m.mu.Unlock()

	m.deps.Session.PushFrame(batch)
	return nil, nil
}

func (m *Manager) handlePointer(e dispatcher.Event) (any, error) {
	ev, err := m.deps.Parser.ParsePointer(e.Args, m.eventTime(e))
	if err != nil {
		return nil, fmt.Errorf("failed to parse pointer: %w", err)
	}
	m.deps.Session.PushPointer(ev)
	return nil, nil
}

// handleTap selects an entity by identity. It is a synthetic selection, not an
// echo of a device tap, so it skips the tap-vs-hold disambiguator and leaves any
// press in progress untouched.
func (m *Manager) handleTap(e dispatcher.Event) (any, error) {
	id, err := m.deps.Parser.ParseIdentity(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tap: %w", err)
	}
	m.deps.Session.PushTap(id)
	return nil, nil
}

func (m *Manager) handleHold(e dispatcher.Event) (any, error) {
	id, err := m.deps.Parser.ParseIdentity(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse hold: %w", err)
	}
	m.deps.Session.PushHold(id)
	return nil, nil
}

func (m *Manager) handleClear(dispatcher.Event) (any, error) {
	m.deps.Session.PushClear()
	return nil, nil
}

// handleLog forwards a device log line: level, message...
func (m *Manager) handleLog(e dispatcher.Event) (any, error) {
	if len(e.Args) == 0 {
		return nil, nil
	}
	level := "INFO"
	msg := e.Args
	if len(e.Args) > 1 {
		level = strings.ToUpper(util.FixEscapeQuotes(util.TrimQuotes(e.Args[0])))
		msg = e.Args[1:]
	}
	parts := make([]string, len(msg))
	for i, a := range msg {
		parts[i] = util.FixEscapeQuotes(util.TrimQuotes(a))
	}
	m.deps.LogManager.WriteLog(":LOG:", strings.Join(parts, " "), level)
	return nil, nil
}

func (m *Manager) handleMetric(e dispatcher.Event) (any, error) {
	if m.deps.Influx == nil {
		return nil, nil
	}
	args := append([]string(nil), e.Args...)
	bucket, point, err := influx.ProcessMetricData(args, func(s string) string {
		return util.FixEscapeQuotes(util.TrimQuotes(s))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse metric: %w", err)
	}
	point.SetTime(m.eventTime(e))
	if err := m.deps.Influx.WritePoint(bucket, point); err != nil {
		return nil, fmt.Errorf("failed to write metric: %w", err)
	}
	return nil, nil
}
