package core

import "time"

// SessionInfo describes one recorded session. ID is assigned by the storage backend.
type SessionInfo struct {
	ID            uint
	UUID          string
	Tag           string
	StartTime     time.Time
	EndTime       time.Time
	MetersPerUnit float64
	WalkingSpeed  float64
	HideOnLoss    bool

	// Georeferenced is set when OriginLon/OriginLat anchor the scene origin.
	Georeferenced bool
	OriginLon     float64
	OriginLat     float64
}

// EntityEvent is one recorded lifecycle change of an entity.
type EntityEvent struct {
	Time     time.Time
	Identity Identity
	Kind     string // spawned, moved, visibility, retired
	Pose     Pose
	Visible  bool
	State    TrackingState
}

// MeasurementEvent is one recorded distance between two selected entities.
type MeasurementEvent struct {
	Time    time.Time
	A, B    Identity
	PosA    Position3D
	PosB    Position3D
	Units   float64
	Meters  float64
	Seconds float64
	Speed   float64
}
