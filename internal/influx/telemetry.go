package influx

import (
	"time"

	"github.com/campusar/wayfinder/internal/entity"
	"github.com/campusar/wayfinder/internal/selection"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Telemetry turns scene activity into points. Write errors are logged, never returned.
type Telemetry struct {
	m       *Manager
	bucket  string
	session string
	now     func() time.Time
}

var _ entity.Observer = (*Telemetry)(nil)

// NewTelemetry writes into bucket, tagging every point with the session id.
func NewTelemetry(m *Manager, bucket, session string) *Telemetry {
	return &Telemetry{m: m, bucket: bucket, session: session, now: time.Now}
}

func (t *Telemetry) write(bucket string, p *influxdb2_write.Point) {
	if err := t.m.WritePoint(bucket, p); err != nil {
		t.m.Logger.Error().Err(err).Str("measurement", p.Name()).Msg("Error writing telemetry point")
	}
}

// EntityChanged records one entity lifecycle change.
func (t *Telemetry) EntityChanged(c entity.Change) {
	e := c.Entity
	pos := e.Pose.Position
	p := influxdb2_write.NewPoint("entity",
		map[string]string{
			"session":  t.session,
			"identity": e.Identity.String(),
			"kind":     c.Kind.String(),
		},
		map[string]interface{}{
			"x":       pos.X,
			"y":       pos.Y,
			"z":       pos.Z,
			"visible": e.Visible,
			"state":   e.State.String(),
		},
		t.now())
	t.write(t.bucket, p)
}

// Measured records one published distance.
func (t *Telemetry) Measured(m selection.Measurement) {
	at := m.At
	if at.IsZero() {
		at = t.now()
	}
	p := influxdb2_write.NewPoint("measurement",
		map[string]string{
			"session": t.session,
			"a":       m.A.String(),
			"b":       m.B.String(),
		},
		map[string]interface{}{
			"meters":  m.Meters,
			"seconds": m.Seconds,
			"speed":   m.Speed,
		},
		at)
	t.write(t.bucket, p)
}

// Stepped records how long one session step took and what it drained.
func (t *Telemetry) Stepped(frames, pointers int, took time.Duration) {
	p := influxdb2_write.NewPoint("step",
		map[string]string{"session": t.session},
		map[string]interface{}{
			"frames":   frames,
			"pointers": pointers,
			"took_ms":  float64(took.Microseconds()) / 1000,
		},
		t.now())
	t.write(PerformanceBucket, p)
}
