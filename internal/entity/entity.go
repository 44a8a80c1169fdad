// Package entity owns the set of building entities anchored to tracked markers.
package entity

import (
	"github.com/campusar/wayfinder/pkg/core"
)

// Entity is a spawned building anchored above its marker.
type Entity struct {
	Identity core.Identity
	Marker   core.Identity
	Pose     core.Pose
	Visible  bool
	State    core.TrackingState
}

// ChangeKind tells observers what happened to an entity.
type ChangeKind int

const (
	ChangeSpawned ChangeKind = iota
	ChangeMoved
	ChangeVisibility
	ChangeRetired
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeSpawned:
		return "spawned"
	case ChangeMoved:
		return "moved"
	case ChangeVisibility:
		return "visibility"
	case ChangeRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// Change is published after the manager has applied it. Entity is a copy.
type Change struct {
	Kind   ChangeKind
	Entity Entity
}

// Observer receives every lifecycle change in the order it happened.
type Observer interface {
	EntityChanged(Change)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Change)

func (f ObserverFunc) EntityChanged(c Change) { f(c) }
