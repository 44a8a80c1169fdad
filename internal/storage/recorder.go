package storage

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/campusar/wayfinder/internal/entity"
	"github.com/campusar/wayfinder/internal/selection"
	"github.com/campusar/wayfinder/pkg/core"
)

// Recorder feeds entity changes and measurements into a Backend. Backend
// errors are logged and counted, never returned to the caller.
type Recorder struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
	failed  atomic.Int64
}

var _ entity.Observer = (*Recorder)(nil)

func NewRecorder(b Backend, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{backend: b, logger: logger.With("component", "recorder"), now: time.Now}
}

// EntityChanged implements entity.Observer.
func (r *Recorder) EntityChanged(c entity.Change) {
	e := c.Entity
	err := r.backend.RecordEntityEvent(&core.EntityEvent{
		Time:     r.now(),
		Identity: e.Identity,
		Kind:     c.Kind.String(),
		Pose:     e.Pose,
		Visible:  e.Visible,
		State:    e.State,
	})
	if err != nil {
		r.failed.Add(1)
		r.logger.Warn("failed to record entity event", "identity", e.Identity, "kind", c.Kind.String(), "error", err)
	}
}

// Measured records one published distance. It matches selection.Engine hooks.
func (r *Recorder) Measured(m selection.Measurement) {
	err := r.backend.RecordMeasurement(&core.MeasurementEvent{
		Time:    m.At,
		A:       m.A,
		B:       m.B,
		PosA:    m.PosA,
		PosB:    m.PosB,
		Units:   m.Units,
		Meters:  m.Meters,
		Seconds: m.Seconds,
		Speed:   m.Speed,
	})
	if err != nil {
		r.failed.Add(1)
		r.logger.Warn("failed to record measurement", "a", m.A, "b", m.B, "error", err)
	}
}

// Failed returns how many writes the backend rejected.
func (r *Recorder) Failed() int64 {
	return r.failed.Load()
}
