package geo

import (
	"encoding/json"
	"fmt"

	"github.com/campusar/wayfinder/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// ParsePath parses a JSON array of scene positions.
// Input format: "[[x1,y1,z1],[x2,y2,z2],...]"; 2D entries get z = 0.
func ParsePath(input string) ([]core.Position3D, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse path JSON: %w", err)
	}

	if len(coords) < 2 {
		return nil, fmt.Errorf("path must have at least 2 points, got %d", len(coords))
	}

	path := make([]core.Position3D, len(coords))
	for i, c := range coords {
		if len(c) < 2 {
			return nil, fmt.Errorf("coordinate %d has insufficient values", i)
		}
		path[i] = core.Position3D{X: c[0], Y: c[1]}
		if len(c) > 2 {
			path[i].Z = c[2]
		}
	}

	return path, nil
}

// LineString converts a path to an XYZ line string.
func LineString(path []core.Position3D) geom.LineString {
	flat := make([]float64, 0, len(path)*3)
	for _, p := range path {
		flat = append(flat, p.X, p.Y, p.Z)
	}
	return geom.NewLineString(geom.NewSequence(flat, geom.DimXYZ))
}

// Interpolate returns the point a fraction t (0..1) along the path by length.
func Interpolate(path []core.Position3D, t float64) core.Position3D {
	switch {
	case len(path) == 0:
		return core.Position3D{}
	case len(path) == 1 || t <= 0:
		return path[0]
	case t >= 1:
		return path[len(path)-1]
	}

	var total float64
	for i := 1; i < len(path); i++ {
		total += path[i-1].DistanceTo(path[i])
	}
	if total == 0 {
		return path[0]
	}

	remaining := t * total
	for i := 1; i < len(path); i++ {
		seg := path[i-1].DistanceTo(path[i])
		if remaining <= seg {
			f := remaining / seg
			a, b := path[i-1], path[i]
			return core.Position3D{
				X: a.X + (b.X-a.X)*f,
				Y: a.Y + (b.Y-a.Y)*f,
				Z: a.Z + (b.Z-a.Z)*f,
			}
		}
		remaining -= seg
	}
	return path[len(path)-1]
}
