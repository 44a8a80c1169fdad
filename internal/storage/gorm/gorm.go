// Package gormstorage implements the storage.Backend interface using GORM
// with internal queues and a background DB writer goroutine.
package gormstorage

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/campusar/wayfinder/internal/database"
	"github.com/campusar/wayfinder/internal/logging"
	"github.com/campusar/wayfinder/internal/model"
	"github.com/campusar/wayfinder/internal/queue"
	"github.com/campusar/wayfinder/pkg/core"

	"gorm.io/gorm"
)

const defaultFlushInterval = time.Second

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	LogManager    *logging.SlogManager
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	EntityEvents *queue.Queue[model.EntityEvent]
	Measurements *queue.Queue[model.Measurement]
}

func newQueues() *queues {
	return &queues{
		EntityEvents: queue.New[model.EntityEvent](),
		Measurements: queue.New[model.Measurement](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	sessionID atomic.Uint64
	session   model.Session

	writeMu       sync.Mutex
	stopChan      chan struct{}
	done          chan struct{}
	lastWriteTime atomic.Int64
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// SetDB injects the connection before Init.
func (b *Backend) SetDB(db *gorm.DB) {
	b.deps.DB = db
}

// Init runs schema migration and starts the DB writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("no database connection")
	}

	b.deps.LogManager.WriteLog("setupDB", "Migrating schema", "INFO")
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.deps.LogManager.WriteLog("setupDB", "Database setup complete", "INFO")

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the DB writer goroutine after a final flush.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	select {
	case <-b.stopChan:
	default:
		close(b.stopChan)
	}
	<-b.done
	return nil
}

// StartSession inserts the session row and stamps every following write with its ID.
func (b *Backend) StartSession(s *core.SessionInfo) error {
	if b.deps.DB == nil {
		return nil
	}
	b.Flush()

	row := model.SessionFromInfo(*s)
	row.ID = 0
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert new session: %w", err)
	}

	s.ID = row.ID
	b.session = row
	b.sessionID.Store(uint64(row.ID))
	return nil
}

// EndSession flushes pending writes and records the end time.
func (b *Backend) EndSession() error {
	if b.deps.DB == nil || b.sessionID.Load() == 0 {
		return nil
	}
	b.Flush()

	end := time.Now()
	err := b.deps.DB.Model(&model.Session{}).
		Where("id = ?", b.sessionID.Load()).
		Update("end_time", end).Error
	if err != nil {
		return fmt.Errorf("failed to update session end: %w", err)
	}
	b.session.EndTime = end
	return nil
}

// SessionID returns the ID of the current session, 0 before StartSession.
func (b *Backend) SessionID() uint {
	return uint(b.sessionID.Load())
}

func (b *Backend) RecordEntityEvent(e *core.EntityEvent) error {
	b.queues.EntityEvents.Push(model.EntityEventFromCore(*e, 0))
	return nil
}

func (b *Backend) RecordMeasurement(m *core.MeasurementEvent) error {
	b.queues.Measurements.Push(model.MeasurementFromCore(*m, 0))
	return nil
}

// Pending returns the number of queued rows.
func (b *Backend) Pending() int {
	return b.queues.EntityEvents.Len() + b.queues.Measurements.Len()
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWriteTime.Load())
}

// writeQueue drains q into one transaction. Failed batches go back on the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log func(string, string, string), prepare func([]T)) {
	items := q.Drain()
	if len(items) == 0 {
		return
	}
	if prepare != nil {
		prepare(items)
	}

	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error creating %s: %v", name, err), "ERROR")
		tx.Rollback()
		q.Push(items...)
		return
	}
	if err := tx.Commit().Error; err != nil {
		log(":DB:WRITER:", fmt.Sprintf("Error committing %s: %v", name, err), "ERROR")
		q.Push(items...)
	}
}

// Flush writes every queued row now.
func (b *Backend) Flush() {
	if b.deps.DB == nil {
		return
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	// rows recorded before any session started stay queued
	sessionID := uint(b.sessionID.Load())
	if sessionID == 0 {
		return
	}

	start := time.Now()
	log := b.deps.LogManager.WriteLog

	writeQueue(b.deps.DB, b.queues.EntityEvents, "entity events", log, func(items []model.EntityEvent) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})
	writeQueue(b.deps.DB, b.queues.Measurements, "measurements", log, func(items []model.Measurement) {
		for i := range items {
			items[i].SessionID = sessionID
		}
	})

	b.lastWriteTime.Store(int64(time.Since(start)))
}

func (b *Backend) writeLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			b.Flush()
			return
		case <-ticker.C:
			b.Flush()
		}
	}
}
