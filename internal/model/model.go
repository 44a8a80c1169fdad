package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels lists every table of the recording schema, in migration order.
var DatabaseModels = []interface{}{
	&Session{},
	&EntityEvent{},
	&Measurement{},
	&Room{},
}

// Session is one run of the scene, from start to end.
type Session struct {
	gorm.Model
	UUID          string     `json:"uuid" gorm:"size:36;uniqueIndex"`
	Tag           string     `json:"tag" gorm:"size:127"`
	StartTime     time.Time  `json:"sessionStart" gorm:"type:timestamptz;index:idx_session_start"`
	EndTime       time.Time  `json:"sessionEnd" gorm:"type:timestamptz"`
	MetersPerUnit float64    `json:"metersPerUnit" gorm:"default:100"`
	WalkingSpeed  float64    `json:"walkingSpeed" gorm:"default:1.4"`
	HideOnLoss    bool       `json:"hideOnLoss"`
	Origin        geom.Point `json:"origin"` // WGS84 lon/lat of the scene origin, empty when not georeferenced

	EntityEvents []EntityEvent `json:"-"`
	Measurements []Measurement `json:"-"`
}

func (*Session) TableName() string {
	return "sessions"
}

// EntityEvent is one lifecycle change of a spawned entity.
type EntityEvent struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;index:idx_entityevent_time"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_entityevent_session_id"`
	Session   Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`

	Identity      string         `json:"identity" gorm:"size:128;index:idx_entityevent_identity"`
	Kind          string         `json:"kind" gorm:"size:16"` // spawned, moved, visibility, retired
	Position      geom.Point     `json:"position"`            // scene units, Y up
	Orientation   datatypes.JSON `json:"orientation"`         // [x,y,z,w]
	Visible       bool           `json:"visible"`
	TrackingState string         `json:"trackingState" gorm:"size:16"`
}

func (*EntityEvent) TableName() string {
	return "entity_events"
}

// Measurement is one distance published between two selected entities.
type Measurement struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;index:idx_measurement_time"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_measurement_session_id"`
	Session   Session   `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`

	EntityA string          `json:"entityA" gorm:"size:128"`
	EntityB string          `json:"entityB" gorm:"size:128"`
	Segment geom.LineString `json:"segment"` // A to B in scene units
	Units   float64         `json:"units"`
	Meters  float64         `json:"meters"`
	Seconds float64         `json:"seconds"`
	Speed   float64         `json:"speed"`
}

func (*Measurement) TableName() string {
	return "measurements"
}

// Room is the detail record of one building room, keyed by normalized identity.
type Room struct {
	RoomID         string         `json:"roomId" gorm:"primarykey;size:128"`
	SeatsAvailable int            `json:"seatsAvailable"`
	EvacuationMap  string         `json:"evacuationMap" gorm:"size:255"`
	Objects        datatypes.JSON `json:"objects"` // ["projector","whiteboard"]
	UpdatedAt      time.Time      `json:"updatedAt"`
}

func (*Room) TableName() string {
	return "rooms"
}
