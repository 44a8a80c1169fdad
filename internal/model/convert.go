package model

import (
	"encoding/json"
	"time"

	"github.com/campusar/wayfinder/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

// PointFromPosition stores a scene position as an XYZ point.
func PointFromPosition(p core.Position3D) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.X, Y: p.Y},
		Z:    p.Z,
		Type: geom.CoordinatesType(geom.DimXYZ),
	})
}

// PositionFromPoint is the inverse of PointFromPosition. Empty points give the origin.
func PositionFromPoint(pt geom.Point) core.Position3D {
	c, ok := pt.Coordinates()
	if !ok {
		return core.Position3D{}
	}
	return core.Position3D{X: c.X, Y: c.Y, Z: c.Z}
}

// SegmentLineString builds the A to B segment of a measurement.
func SegmentLineString(a, b core.Position3D) geom.LineString {
	seq := geom.NewSequence([]float64{a.X, a.Y, a.Z, b.X, b.Y, b.Z}, geom.DimXYZ)
	return geom.NewLineString(seq)
}

// OrientationJSON encodes an orientation as [x,y,z,w].
func OrientationJSON(q core.Orientation) datatypes.JSON {
	data, _ := json.Marshal([4]float64{q.X, q.Y, q.Z, q.W})
	return datatypes.JSON(data)
}

// ObjectsJSON encodes a room's object list, never null.
func ObjectsJSON(objects []string) datatypes.JSON {
	if len(objects) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(objects)
	return datatypes.JSON(data)
}

// RoomFromRecord converts a detail record to its row.
func RoomFromRecord(r core.DetailRecord) Room {
	return Room{
		RoomID:         r.RoomID.String(),
		SeatsAvailable: r.SeatsAvailable,
		EvacuationMap:  r.EvacuationMap,
		Objects:        ObjectsJSON(r.Objects),
	}
}

// Record converts a room row back to a detail record. A malformed object list
// degrades to empty.
func (r Room) Record() core.DetailRecord {
	var objects []string
	if len(r.Objects) > 0 {
		if err := json.Unmarshal(r.Objects, &objects); err != nil {
			objects = nil
		}
	}
	return core.DetailRecord{
		RoomID:         core.Identity(r.RoomID),
		SeatsAvailable: r.SeatsAvailable,
		EvacuationMap:  r.EvacuationMap,
		Objects:        objects,
	}
}

// SessionFromInfo converts session metadata to its row. origin is the WGS84
// anchor point, or empty when the scene is not georeferenced.
func SessionFromInfo(s core.SessionInfo) Session {
	origin := geom.NewEmptyPoint(geom.DimXY)
	if s.Georeferenced {
		origin = geom.NewPoint(geom.Coordinates{XY: geom.XY{X: s.OriginLon, Y: s.OriginLat}})
	}
	row := Session{
		UUID:          s.UUID,
		Tag:           s.Tag,
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		MetersPerUnit: s.MetersPerUnit,
		WalkingSpeed:  s.WalkingSpeed,
		HideOnLoss:    s.HideOnLoss,
		Origin:        origin,
	}
	row.ID = s.ID
	return row
}

// EntityEventFromCore converts a recorded lifecycle change to its row.
func EntityEventFromCore(e core.EntityEvent, sessionID uint) EntityEvent {
	return EntityEvent{
		Time:          orNow(e.Time),
		SessionID:     sessionID,
		Identity:      e.Identity.String(),
		Kind:          e.Kind,
		Position:      PointFromPosition(e.Pose.Position),
		Orientation:   OrientationJSON(e.Pose.Orientation),
		Visible:       e.Visible,
		TrackingState: e.State.String(),
	}
}

// MeasurementFromCore converts a recorded distance to its row.
func MeasurementFromCore(m core.MeasurementEvent, sessionID uint) Measurement {
	return Measurement{
		Time:      orNow(m.Time),
		SessionID: sessionID,
		EntityA:   m.A.String(),
		EntityB:   m.B.String(),
		Segment:   SegmentLineString(m.PosA, m.PosB),
		Units:     m.Units,
		Meters:    m.Meters,
		Seconds:   m.Seconds,
		Speed:     m.Speed,
	}
}

func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
