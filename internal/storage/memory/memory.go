// internal/storage/memory/memory.go
package memory

import (
	"sync"

	"github.com/campusar/wayfinder/internal/config"
	"github.com/campusar/wayfinder/internal/geo"
	"github.com/campusar/wayfinder/pkg/core"
)

// EntityRecord groups an entity with every recorded change, in arrival order.
type EntityRecord struct {
	Identity core.Identity
	Events   []core.EntityEvent
}

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	georef  *geo.Georeference
	session *core.SessionInfo

	entities     map[core.Identity]*EntityRecord
	order        []core.Identity // first-seen order
	measurements []core.MeasurementEvent

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend. georef may be nil.
func New(cfg config.MemoryConfig, georef *geo.Georeference) *Backend {
	return &Backend{
		cfg:      cfg,
		georef:   georef,
		entities: make(map[core.Identity]*EntityRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session and clears anything previously held.
func (b *Backend) StartSession(s *core.SessionInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	s.ID = b.idCounter
	b.session = s

	b.entities = make(map[core.Identity]*EntityRecord)
	b.order = nil
	b.measurements = nil
	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	return b.exportJSON()
}

// RecordEntityEvent appends e to its entity's history.
func (b *Backend) RecordEntityEvent(e *core.EntityEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, ok := b.entities[e.Identity]
	if !ok {
		rec = &EntityRecord{Identity: e.Identity}
		b.entities[e.Identity] = rec
		b.order = append(b.order, e.Identity)
	}
	rec.Events = append(rec.Events, *e)
	return nil
}

// RecordMeasurement appends m to the measurement log.
func (b *Backend) RecordMeasurement(m *core.MeasurementEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.measurements = append(b.measurements, *m)
	return nil
}

// GetEntity returns a copy of the recorded history of id.
func (b *Backend) GetEntity(id core.Identity) (EntityRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.entities[id]
	if !ok {
		return EntityRecord{}, false
	}
	out := EntityRecord{Identity: rec.Identity, Events: make([]core.EntityEvent, len(rec.Events))}
	copy(out.Events, rec.Events)
	return out, true
}

// Measurements returns a copy of the recorded measurements.
func (b *Backend) Measurements() []core.MeasurementEvent {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.MeasurementEvent, len(b.measurements))
	copy(out, b.measurements)
	return out
}

// ExportedFilePath returns the file written by the last EndSession, or "".
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
