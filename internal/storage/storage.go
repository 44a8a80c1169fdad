package storage

import "github.com/campusar/wayfinder/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management (StartSession assigns ID to the passed pointer)
	StartSession(s *core.SessionInfo) error
	EndSession() error

	// Recording
	RecordEntityEvent(e *core.EntityEvent) error
	RecordMeasurement(m *core.MeasurementEvent) error
}

// Exportable is an optional interface for backends that write a session file.
type Exportable interface {
	ExportedFilePath() string
}
