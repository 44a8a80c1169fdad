// Package spatial resolves screen points to the visible entity under them.
package spatial

import (
	"math"

	"github.com/campusar/wayfinder/internal/entity"
	"github.com/campusar/wayfinder/pkg/core"
)

// Projection maps world positions onto the screen, looking straight down the
// Y axis. World +X is screen right and world +Z is screen up.
type Projection struct {
	PixelsPerUnit float64
	Center        core.ScreenPoint
}

// Project returns the screen point for a world position.
func (p Projection) Project(pos core.Position3D) core.ScreenPoint {
	return core.ScreenPoint{
		X: p.Center.X + pos.X*p.PixelsPerUnit,
		Y: p.Center.Y - pos.Z*p.PixelsPerUnit,
	}
}

// Index keeps the screen footprint of every visible entity. It is fed by the
// entity manager's change stream.
type Index struct {
	proj   Projection
	radius float64
	points map[core.Identity]core.Position3D
}

// NewIndex builds an empty index. radius is the pick radius in pixels.
func NewIndex(proj Projection, radius float64) *Index {
	return &Index{
		proj:   proj,
		radius: radius,
		points: make(map[core.Identity]core.Position3D),
	}
}

// EntityChanged implements entity.Observer.
func (ix *Index) EntityChanged(c entity.Change) {
	e := c.Entity
	switch c.Kind {
	case entity.ChangeRetired:
		delete(ix.points, e.Identity)
	default:
		if e.Visible {
			ix.points[e.Identity] = e.Pose.Position
		} else {
			delete(ix.points, e.Identity)
		}
	}
}

// HitTest returns the nearest visible entity within the pick radius of p.
// Ties go to the lexically smaller identity.
func (ix *Index) HitTest(p core.ScreenPoint) (core.Identity, bool) {
	var (
		best     core.Identity
		bestDist = math.Inf(1)
	)
	for id, pos := range ix.points {
		d := ix.proj.Project(pos).DistanceTo(p)
		if d > ix.radius {
			continue
		}
		if d < bestDist || (d == bestDist && id < best) {
			best, bestDist = id, d
		}
	}
	return best, !best.IsZero()
}

// ScreenPosition returns where a visible entity is drawn.
func (ix *Index) ScreenPosition(id core.Identity) (core.ScreenPoint, bool) {
	pos, ok := ix.points[id]
	if !ok {
		return core.ScreenPoint{}, false
	}
	return ix.proj.Project(pos), true
}

func (ix *Index) Len() int {
	return len(ix.points)
}
