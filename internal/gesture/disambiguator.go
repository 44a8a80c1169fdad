// Package gesture tells a short tap apart from a sustained hold.
package gesture

import (
	"log/slog"
	"time"

	"github.com/campusar/wayfinder/pkg/core"
)

// State is the disambiguator's phase for the tracked pointer.
type State int

const (
	Idle State = iota
	Pressing
	HoldFired
)

func (s State) String() string {
	switch s {
	case Pressing:
		return "pressing"
	case HoldFired:
		return "hold-fired"
	default:
		return "idle"
	}
}

// IntentKind is what the user meant by a press.
type IntentKind int

const (
	IntentTap IntentKind = iota
	IntentHold
)

func (k IntentKind) String() string {
	if k == IntentHold {
		return "hold"
	}
	return "tap"
}

// Intent is a resolved gesture aimed at one entity.
type Intent struct {
	Kind     IntentKind
	Identity core.Identity
	Position core.ScreenPoint
}

// HitTester resolves a screen point to the entity under it.
type HitTester interface {
	HitTest(p core.ScreenPoint) (core.Identity, bool)
}

// Options are the gesture thresholds.
type Options struct {
	HoldDuration    time.Duration
	MoveTolerancePx float64
}

// Disambiguator is a finite-state machine over one pointer at a time.
type Disambiguator struct {
	opts   Options
	hits   HitTester
	logger *slog.Logger

	state     State
	pointer   int
	start     core.ScreenPoint
	startTime time.Time
	candidate core.Identity
}

func New(opts Options, hits HitTester, logger *slog.Logger) *Disambiguator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Disambiguator{
		opts:   opts,
		hits:   hits,
		logger: logger.With("component", "gesture"),
	}
}

// State returns the current phase.
func (d *Disambiguator) State() State {
	return d.state
}

// Candidate returns the entity still eligible for a hold, zero when none.
func (d *Disambiguator) Candidate() core.Identity {
	return d.candidate
}

// Handle is the single transition function for pointer events.
func (d *Disambiguator) Handle(ev core.PointerEvent) []Intent {
	if d.state != Idle && ev.Pointer != d.pointer {
		return nil
	}

	switch ev.Kind {
	case core.PointerDown:
		if d.state != Idle || ev.OverUI {
			return nil
		}
		d.state = Pressing
		d.pointer = ev.Pointer
		d.start = ev.Position
		d.startTime = ev.Time
		d.candidate = ""
		if id, ok := d.hits.HitTest(ev.Position); ok {
			d.candidate = id
		}
		return nil

	case core.PointerMove:
		if d.state != Pressing {
			return nil
		}
		return d.evaluate(ev.Position, ev.Time)

	case core.PointerUp:
		if d.state == Idle {
			return nil
		}
		var intents []Intent
		if d.state == Pressing {
			intents = d.evaluate(ev.Position, ev.Time)
		}
		if d.state == Pressing && !ev.OverUI {
			if id, ok := d.hits.HitTest(ev.Position); ok {
				intents = append(intents, Intent{Kind: IntentTap, Identity: id, Position: ev.Position})
			}
		}
		d.reset()
		return intents

	case core.PointerCancel:
		if d.state != Idle {
			d.logger.Debug("press cancelled", "pointer", ev.Pointer)
			d.reset()
		}
		return nil

	case core.PointerTap:
		// release is the only tap source
		return nil
	}
	return nil
}

// Advance fires a pending hold once its duration has elapsed at now.
func (d *Disambiguator) Advance(now time.Time) []Intent {
	if d.state != Pressing {
		return nil
	}
	return d.checkHold(now)
}

func (d *Disambiguator) evaluate(pos core.ScreenPoint, now time.Time) []Intent {
	if d.candidate.IsZero() {
		return nil
	}
	if pos.DistanceTo(d.start) > d.opts.MoveTolerancePx {
		d.logger.Debug("hold cancelled by movement", "candidate", d.candidate)
		d.candidate = ""
		return nil
	}
	return d.checkHold(now)
}

func (d *Disambiguator) checkHold(now time.Time) []Intent {
	if d.candidate.IsZero() || now.Sub(d.startTime) < d.opts.HoldDuration {
		return nil
	}
	d.state = HoldFired
	return []Intent{{Kind: IntentHold, Identity: d.candidate, Position: d.start}}
}

func (d *Disambiguator) reset() {
	d.state = Idle
	d.pointer = 0
	d.candidate = ""
	d.startTime = time.Time{}
}
