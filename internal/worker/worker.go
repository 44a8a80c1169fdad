package worker

import (
	"sync"
	"time"

	"github.com/campusar/wayfinder/internal/influx"
	"github.com/campusar/wayfinder/internal/logging"
	"github.com/campusar/wayfinder/internal/parser"
	"github.com/campusar/wayfinder/internal/session"
	"github.com/campusar/wayfinder/internal/storage"
	"github.com/campusar/wayfinder/pkg/core"
)

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Session    *session.Session
	Parser     *parser.Parser
	LogManager *logging.SlogManager
	Backend    storage.Backend // optional, write timings only
	Influx     *influx.Manager // optional, :METRIC: is dropped without it
	Clock      func() time.Time
}

// Manager turns dispatched commands into session input. Marker commands
// accumulate into one batch that :FRAME: hands to the session.
type Manager struct {
	deps Dependencies

	mu      sync.Mutex
	pending core.FrameBatch
	frames  int
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Manager{deps: deps}
}

// Frames returns how many non-empty batches were pushed to the session.
func (m *Manager) Frames() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames
}

// PendingMarkers returns how many marker events wait for the next :FRAME:.
func (m *Manager) PendingMarkers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending.Added) + len(m.pending.Updated) + len(m.pending.Removed)
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.deps.Backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}
