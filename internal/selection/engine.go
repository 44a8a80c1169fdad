// Package selection implements the two-slot distance tool.
package selection

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/campusar/wayfinder/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/campusar/wayfinder/internal/selection"

// minSpeed keeps the walk-time division finite.
const minSpeed = 0.01

// EntitySource reads live entity state. The engine never mutates it.
type EntitySource interface {
	Position(id core.Identity) (core.Position3D, bool)
	// Selectable reports whether id is spawned and currently shown.
	Selectable(id core.Identity) bool
}

// Presenter renders the engine's output.
type Presenter interface {
	ShowDistance(a, b core.Identity, meters, minutes, speed float64)
	ClearDistance()
	SetOverlay(id core.Identity, on bool, color core.Color)
	ShowLink(a, b core.Position3D)
	HideLink()
}

// Options are the deployment-time selection settings.
type Options struct {
	MetersPerUnit     float64
	WalkingSpeed      float64
	TapSameToDeselect bool
	ColorA            core.Color
	ColorB            core.Color
}

// Measurement is one published distance between slot A and slot B.
type Measurement struct {
	A, B    core.Identity
	PosA    core.Position3D
	PosB    core.Position3D
	Units   float64
	Meters  float64
	Seconds float64
	Minutes float64
	Speed   float64
	At      time.Time
}

// Measure converts the straight-line distance between two world positions.
func Measure(a, b core.Position3D, metersPerUnit, speed float64) (units, meters, seconds float64) {
	units = a.DistanceTo(b)
	meters = units * metersPerUnit
	seconds = meters / math.Max(minSpeed, speed)
	return units, meters, seconds
}

// Outcome names the rule a tap resolved to.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeDeselected
	OutcomeFirst
	OutcomeSecond
	OutcomeReset
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDeselected:
		return "deselected"
	case OutcomeFirst:
		return "first"
	case OutcomeSecond:
		return "second"
	case OutcomeReset:
		return "reset"
	default:
		return "ignored"
	}
}

// Engine owns slots A and B. It is driven from the session goroutine only.
type Engine struct {
	opts      Options
	source    EntitySource
	presenter Presenter
	logger    *slog.Logger
	now       func() time.Time
	hooks     []func(Measurement)

	// paired is set only when B was filled by a tap, so a pair left over
	// from a deselect shows no distance or link.
	a, b       Slot
	paired     bool
	linkShown  bool
	lastMeters float64

	measurements metric.Int64Counter
}

// NewEngine wires the engine to its entity source and presenter.
func NewEngine(opts Options, source EntitySource, presenter Presenter, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		opts:      opts,
		source:    source,
		presenter: presenter,
		logger:    logger.With("component", "selection"),
		now:       time.Now,
	}

	var err error
	e.measurements, err = otel.Meter(instrumentationName).Int64Counter("selection.measurements",
		metric.WithDescription("Distances published between two selected entities"))
	if err != nil {
		return nil, err
	}
	return e, nil
}

// OnMeasurement registers a hook called for every distance a tap publishes.
func (e *Engine) OnMeasurement(hook func(Measurement)) {
	e.hooks = append(e.hooks, hook)
}

// Slots returns the current slot contents.
func (e *Engine) Slots() (a, b Slot) {
	return e.a, e.b
}

// Overlay is the highlight an entity should carry for the current slots.
func (e *Engine) Overlay(id core.Identity) (bool, core.Color) {
	return overlayFor(e.a, e.b, id, e.opts)
}

func overlayFor(a, b Slot, id core.Identity, opts Options) (bool, core.Color) {
	switch {
	case a.Holds(id):
		return true, opts.ColorA
	case b.Holds(id):
		return true, opts.ColorB
	}
	return false, core.Color{}
}

// Tap applies a tap on entity id. Unknown or hidden entities are ignored.
func (e *Engine) Tap(id core.Identity) Outcome {
	if !e.source.Selectable(id) {
		e.logger.Debug("tap on unselectable entity ignored", "identity", id)
		return OutcomeIgnored
	}

	prevA, prevB := e.a, e.b
	var outcome Outcome

	switch {
	case e.opts.TapSameToDeselect && e.a.Holds(id):
		e.a = Slot{}
		outcome = OutcomeDeselected
	case e.opts.TapSameToDeselect && e.b.Holds(id):
		e.b = Slot{}
		outcome = OutcomeDeselected
	case e.a.Empty() && !e.b.Holds(id):
		e.a = Holding(id)
		outcome = OutcomeFirst
	case e.b.Empty() && !e.a.Holds(id):
		e.b = Holding(id)
		outcome = OutcomeSecond
	default:
		e.a, e.b = Holding(id), Slot{}
		outcome = OutcomeReset
	}

	e.applyOverlayDiff(prevA, prevB)

	e.paired = outcome == OutcomeSecond
	if e.paired {
		e.publish()
	} else {
		e.presenter.ClearDistance()
		e.lastMeters = 0
	}
	e.updateLink()

	e.logger.Debug("tap", "identity", id, "outcome", outcome.String(),
		"a", e.a.Identity(), "b", e.b.Identity())
	return outcome
}

// Refresh re-reads both selected positions, keeps the link aligned and the
// readout current. It never changes the slots.
func (e *Engine) Refresh() {
	e.updateLink()
	if !e.linkShown {
		return
	}
	m, ok := e.measure()
	if ok && math.Abs(m.Meters-e.lastMeters) > 1e-6 {
		e.lastMeters = m.Meters
		e.presenter.ShowDistance(m.A, m.B, m.Meters, m.Minutes, m.Speed)
	}
}

// Clear empties both slots.
func (e *Engine) Clear() {
	if e.a.Empty() && e.b.Empty() {
		return
	}
	prevA, prevB := e.a, e.b
	e.a, e.b = Slot{}, Slot{}
	e.paired = false
	e.applyOverlayDiff(prevA, prevB)
	e.presenter.ClearDistance()
	e.lastMeters = 0
	e.updateLink()
}

func (e *Engine) applyOverlayDiff(prevA, prevB Slot) {
	seen := make(map[core.Identity]bool, 4)
	for _, s := range []Slot{prevA, prevB, e.a, e.b} {
		if s.Empty() || seen[s.Identity()] {
			continue
		}
		id := s.Identity()
		seen[id] = true

		wasOn, wasColor := overlayFor(prevA, prevB, id, e.opts)
		on, color := overlayFor(e.a, e.b, id, e.opts)
		if wasOn == on && wasColor == color {
			continue
		}
		e.presenter.SetOverlay(id, on, color)
	}
}

func (e *Engine) measure() (Measurement, bool) {
	if e.a.Empty() || e.b.Empty() {
		return Measurement{}, false
	}
	pa, okA := e.source.Position(e.a.Identity())
	pb, okB := e.source.Position(e.b.Identity())
	if !okA || !okB {
		return Measurement{}, false
	}
	units, meters, seconds := Measure(pa, pb, e.opts.MetersPerUnit, e.opts.WalkingSpeed)
	return Measurement{
		A:       e.a.Identity(),
		B:       e.b.Identity(),
		PosA:    pa,
		PosB:    pb,
		Units:   units,
		Meters:  meters,
		Seconds: seconds,
		Minutes: seconds / 60,
		Speed:   e.opts.WalkingSpeed,
		At:      e.now(),
	}, true
}

func (e *Engine) publish() {
	m, ok := e.measure()
	if !ok {
		e.presenter.ClearDistance()
		return
	}
	e.lastMeters = m.Meters
	e.presenter.ShowDistance(m.A, m.B, m.Meters, m.Minutes, m.Speed)
	e.measurements.Add(context.Background(), 1)
	e.logger.Info("distance", "a", m.A, "b", m.B,
		"meters", math.Round(m.Meters*100)/100, "minutes", math.Round(m.Minutes*100)/100)
	for _, hook := range e.hooks {
		hook(m)
	}
}

func (e *Engine) updateLink() {
	var pa, pb core.Position3D
	okA, okB := false, false
	if e.paired && !e.a.Empty() && !e.b.Empty() {
		pa, okA = e.source.Position(e.a.Identity())
		pb, okB = e.source.Position(e.b.Identity())
	}
	if okA && okB {
		e.presenter.ShowLink(pa, pb)
		e.linkShown = true
		return
	}
	if e.linkShown {
		e.presenter.HideLink()
		e.linkShown = false
	}
}
