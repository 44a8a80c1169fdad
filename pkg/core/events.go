// pkg/core/events.go
package core

import (
	"strings"
	"time"
)

// TrackingState is the tracker's confidence in a marker for the current frame.
type TrackingState int

const (
	TrackingNone TrackingState = iota
	TrackingLimited
	Tracking
)

func (s TrackingState) String() string {
	switch s {
	case Tracking:
		return "tracking"
	case TrackingLimited:
		return "limited"
	default:
		return "none"
	}
}

// ParseTrackingState converts tracker text ("Tracking", "limited", "2") to a state.
// Unknown text maps to TrackingNone.
func ParseTrackingState(s string) TrackingState {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tracking", "2":
		return Tracking
	case "limited", "1":
		return TrackingLimited
	default:
		return TrackingNone
	}
}

// MarkerEvent is one reported change for one marker.
type MarkerEvent struct {
	Identity Identity
	Pose     Pose
	State    TrackingState
}

// FrameBatch is everything the tracker reported during one frame.
// Consumers process Added, then Updated, then Removed, each in slice order.
type FrameBatch struct {
	Added   []MarkerEvent
	Updated []MarkerEvent
	Removed []MarkerEvent
}

// Empty reports whether the batch carries no events.
func (b FrameBatch) Empty() bool {
	return len(b.Added) == 0 && len(b.Updated) == 0 && len(b.Removed) == 0
}

// PointerKind enumerates the raw pointer signals reported by the input surface.
type PointerKind int

const (
	PointerDown PointerKind = iota
	PointerMove
	PointerUp
	PointerTap
	PointerCancel
)

func (k PointerKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	case PointerTap:
		return "tap"
	case PointerCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// PointerEvent is a raw pointer signal. OverUI is set by the input surface when
// the point lies over the presentation layer's own controls.
type PointerEvent struct {
	Pointer  int
	Kind     PointerKind
	Position ScreenPoint
	Time     time.Time
	OverUI   bool
}
