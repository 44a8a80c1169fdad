package parser

import (
	"github.com/campusar/wayfinder/pkg/core"
)

// Marker argument layout: name, x, y, z, qx, qy, qz, qw, state.
const (
	argName = iota
	argX
	argY
	argZ
	argQX
	argQY
	argQZ
	argQW
	argState
)

// ParseMarker parses an added or updated marker. Name and position are
// required; a missing orientation is the identity rotation and a missing
// state is Tracking.
func (p *Parser) ParseMarker(args []string) (core.MarkerEvent, error) {
	var ev core.MarkerEvent

	args = clean(args)
	if err := need(args, argZ+1); err != nil {
		return ev, err
	}

	ev.Identity = core.NewIdentity(args[argName])
	if ev.Identity.IsZero() {
		return ev, ErrEmptyIdentity
	}

	ev.Pose.Position = core.Position3D{
		X: p.float(args, argX, "x", 0),
		Y: p.float(args, argY, "y", 0),
		Z: p.float(args, argZ, "z", 0),
	}

	ev.Pose.Orientation = core.IdentityRotation
	if len(args) > argQW {
		ev.Pose.Orientation = core.Orientation{
			X: p.float(args, argQX, "qx", 0),
			Y: p.float(args, argQY, "qy", 0),
			Z: p.float(args, argQZ, "qz", 0),
			W: p.float(args, argQW, "qw", 1),
		}
	}

	ev.State = core.Tracking
	if len(args) > argState && args[argState] != "" {
		ev.State = core.ParseTrackingState(args[argState])
	}

	return ev, nil
}

// ParseMarkerRemoved parses a removal. Only the name is required; a pose, if
// present, is parsed like ParseMarker.
func (p *Parser) ParseMarkerRemoved(args []string) (core.MarkerEvent, error) {
	if len(args) > argZ {
		ev, err := p.ParseMarker(args)
		ev.State = core.TrackingNone
		return ev, err
	}

	id, err := p.ParseIdentity(args)
	if err != nil {
		return core.MarkerEvent{}, err
	}
	return core.MarkerEvent{
		Identity: id,
		Pose:     core.Pose{Orientation: core.IdentityRotation},
		State:    core.TrackingNone,
	}, nil
}
