// pkg/core/geometry.go
package core

import "math"

// Position3D is a point in tracker world units. Y is the up axis.
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns p translated by o.
func (p Position3D) Add(o Position3D) Position3D {
	return Position3D{X: p.X + o.X, Y: p.Y + o.Y, Z: p.Z + o.Z}
}

// Scale returns p multiplied by s.
func (p Position3D) Scale(s float64) Position3D {
	return Position3D{X: p.X * s, Y: p.Y * s, Z: p.Z * s}
}

// DistanceTo returns the Euclidean distance between p and o.
func (p Position3D) DistanceTo(o Position3D) float64 {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Orientation is a rotation quaternion. The zero value is treated as the identity rotation.
type Orientation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// IdentityRotation is the rotation that leaves vectors unchanged.
var IdentityRotation = Orientation{W: 1}

func (q Orientation) normalized() Orientation {
	n := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if n == 0 {
		return IdentityRotation
	}
	return Orientation{X: q.X / n, Y: q.Y / n, Z: q.Z / n, W: q.W / n}
}

// Rotate applies the rotation to v.
func (q Orientation) Rotate(v Position3D) Position3D {
	q = q.normalized()
	// t = 2 * (q.xyz x v); v' = v + w*t + q.xyz x t
	tx := 2 * (q.Y*v.Z - q.Z*v.Y)
	ty := 2 * (q.Z*v.X - q.X*v.Z)
	tz := 2 * (q.X*v.Y - q.Y*v.X)
	return Position3D{
		X: v.X + q.W*tx + (q.Y*tz - q.Z*ty),
		Y: v.Y + q.W*ty + (q.Z*tx - q.X*tz),
		Z: v.Z + q.W*tz + (q.X*ty - q.Y*tx),
	}
}

// Up returns the unit up axis (+Y) of the rotated frame.
func (q Orientation) Up() Position3D {
	return q.Rotate(Position3D{Y: 1})
}

// Pose is a position plus orientation, as reported by the tracker.
type Pose struct {
	Position    Position3D  `json:"position"`
	Orientation Orientation `json:"orientation"`
}

// Raised returns the pose moved by offset along its own up axis.
func (p Pose) Raised(offset float64) Pose {
	return Pose{
		Position:    p.Position.Add(p.Orientation.Up().Scale(offset)),
		Orientation: p.Orientation,
	}
}

// ScreenPoint is a pointer position in screen pixels.
type ScreenPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the pixel distance between two screen points.
func (s ScreenPoint) DistanceTo(o ScreenPoint) float64 {
	return math.Hypot(s.X-o.X, s.Y-o.Y)
}
