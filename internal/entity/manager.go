package entity

import (
	"cmp"
	"context"
	"log/slog"
	"slices"

	"github.com/campusar/wayfinder/pkg/core"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/campusar/wayfinder/internal/entity"

// Options are the deployment-time lifecycle policies.
type Options struct {
	// HeightOffset raises the entity along the marker's up axis.
	HeightOffset float64
	// HideOnLoss hides entities whose marker is not in full tracking, and hides
	// rather than retires on removal.
	HideOnLoss bool
}

// Manager is the only place entities are created, moved, shown, hidden or retired.
// It is not safe for concurrent use; the session drives it from one goroutine.
type Manager struct {
	opts      Options
	logger    *slog.Logger
	entities  map[core.Identity]*Entity
	observers []Observer

	spawned metric.Int64Counter
	retired metric.Int64Counter
}

// NewManager creates an empty manager. Metrics go to the global OTel meter provider.
func NewManager(opts Options, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		opts:     opts,
		logger:   logger.With("component", "entity"),
		entities: make(map[core.Identity]*Entity),
	}

	meter := otel.Meter(instrumentationName)
	var err error
	m.spawned, err = meter.Int64Counter("wayfinder.entity.spawned",
		metric.WithDescription("Entities created from marker events"))
	if err != nil {
		return nil, err
	}
	m.retired, err = meter.Int64Counter("wayfinder.entity.retired",
		metric.WithDescription("Entities released after marker removal"))
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Subscribe registers an observer for all subsequent changes.
func (m *Manager) Subscribe(o Observer) {
	m.observers = append(m.observers, o)
}

func (m *Manager) publish(kind ChangeKind, e *Entity) {
	c := Change{Kind: kind, Entity: *e}
	for _, o := range m.observers {
		o.EntityChanged(c)
	}
}

// visibleFor reports the visibility a tracking state implies under the current policy.
func (m *Manager) visibleFor(state core.TrackingState) bool {
	if !m.opts.HideOnLoss {
		return true
	}
	return state == core.Tracking
}

// OnMarkerAdded spawns an entity for a new identity. A duplicate add is an update.
func (m *Manager) OnMarkerAdded(ev core.MarkerEvent) {
	if ev.Identity.IsZero() {
		m.logger.Debug("dropping added event without identity")
		return
	}
	if _, ok := m.entities[ev.Identity]; ok {
		m.OnMarkerUpdated(ev)
		return
	}

	e := &Entity{
		Identity: ev.Identity,
		Marker:   ev.Identity,
		Pose:     ev.Pose.Raised(m.opts.HeightOffset),
		Visible:  m.visibleFor(ev.State),
		State:    ev.State,
	}
	m.entities[ev.Identity] = e
	m.spawned.Add(context.Background(), 1)
	m.logger.Debug("entity spawned", "identity", e.Identity, "visible", e.Visible)
	m.publish(ChangeSpawned, e)
}

// OnMarkerUpdated refreshes visibility and, while visible, the pose. Unknown
// identities are ignored.
func (m *Manager) OnMarkerUpdated(ev core.MarkerEvent) {
	e, ok := m.entities[ev.Identity]
	if !ok {
		return
	}

	e.State = ev.State
	visible := m.visibleFor(ev.State)
	if visible != e.Visible {
		e.Visible = visible
		m.publish(ChangeVisibility, e)
	}
	if e.Visible {
		e.Pose = ev.Pose.Raised(m.opts.HeightOffset)
		m.publish(ChangeMoved, e)
	}
}

// OnMarkerRemoved hides the entity under hide-on-loss and retires it otherwise.
// Unknown identities are ignored.
func (m *Manager) OnMarkerRemoved(ev core.MarkerEvent) {
	e, ok := m.entities[ev.Identity]
	if !ok {
		return
	}

	e.State = core.TrackingNone
	if m.opts.HideOnLoss {
		if e.Visible {
			e.Visible = false
			m.publish(ChangeVisibility, e)
		}
		return
	}

	delete(m.entities, ev.Identity)
	e.Visible = false
	m.retired.Add(context.Background(), 1)
	m.logger.Debug("entity retired", "identity", e.Identity)
	m.publish(ChangeRetired, e)
}

// ApplyFrame processes one tracker frame: added, then updated, then removed,
// each in list order.
func (m *Manager) ApplyFrame(batch core.FrameBatch) {
	for _, ev := range batch.Added {
		m.OnMarkerAdded(ev)
	}
	for _, ev := range batch.Updated {
		m.OnMarkerUpdated(ev)
	}
	for _, ev := range batch.Removed {
		m.OnMarkerRemoved(ev)
	}
}

// Get returns a copy of the entity for id.
func (m *Manager) Get(id core.Identity) (Entity, bool) {
	e, ok := m.entities[id]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

// Position returns the current world position of the entity for id.
func (m *Manager) Position(id core.Identity) (core.Position3D, bool) {
	e, ok := m.entities[id]
	if !ok {
		return core.Position3D{}, false
	}
	return e.Pose.Position, true
}

// Selectable reports whether id is spawned and currently shown.
func (m *Manager) Selectable(id core.Identity) bool {
	e, ok := m.entities[id]
	return ok && e.Visible
}

func (m *Manager) Len() int {
	return len(m.entities)
}

// Visible returns copies of the visible entities ordered by identity.
func (m *Manager) Visible() []Entity {
	out := make([]Entity, 0, len(m.entities))
	for _, e := range m.entities {
		if e.Visible {
			out = append(out, *e)
		}
	}
	slices.SortFunc(out, func(a, b Entity) int {
		return cmp.Compare(a.Identity, b.Identity)
	})
	return out
}

// Tracked returns the identities whose marker is currently in full tracking, sorted.
func (m *Manager) Tracked() []core.Identity {
	out := make([]core.Identity, 0, len(m.entities))
	for id, e := range m.entities {
		if e.State == core.Tracking {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

