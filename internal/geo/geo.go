// Package geo converts scene coordinates to text, points and WGS84 locations.
package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/campusar/wayfinder/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// Position3DFromString parses "x,y" or "x,y,z" into a core.Position3D.
// Surrounding brackets and spaces are ignored.
func Position3DFromString(coords string) (core.Position3D, error) {
	coords = strings.TrimSpace(coords)
	coords = strings.TrimSuffix(strings.TrimPrefix(coords, "["), "]")

	parts := strings.Split(coords, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return core.Position3D{}, ErrInvalidCoordinates
	}

	var v [3]float64
	for i, s := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return core.Position3D{}, ErrInvalidCoordinates
		}
		v[i] = f
	}
	return core.Position3D{X: v[0], Y: v[1], Z: v[2]}, nil
}

// Georeference anchors the scene origin at a WGS84 location. Scene X points
// east and scene Z points north; Y is height and is carried through unchanged.
type Georeference struct {
	lon, lat float64
	x0, y0   float64
	scale    float64
	inverse  wgs84.Func
}

// NewGeoreference anchors the scene origin at lon/lat (degrees).
func NewGeoreference(lon, lat float64) (*Georeference, error) {
	if math.Abs(lat) >= 85 || math.Abs(lon) > 180 {
		return nil, ErrInvalidCoordinates
	}
	epsg := wgs84.EPSG()
	x0, y0, _ := epsg.Transform(4326, 3857)(lon, lat, 0)
	return &Georeference{
		lon:     lon,
		lat:     lat,
		x0:      x0,
		y0:      y0,
		scale:   1 / math.Cos(lat*math.Pi/180),
		inverse: epsg.Transform(3857, 4326),
	}, nil
}

// Origin returns the anchor longitude and latitude.
func (g *Georeference) Origin() (lon, lat float64) {
	return g.lon, g.lat
}

// LonLat converts a scene position to longitude/latitude (degrees).
// metersPerUnit converts scene units to ground meters.
func (g *Georeference) LonLat(p core.Position3D, metersPerUnit float64) (lon, lat float64) {
	east := p.X * metersPerUnit * g.scale
	north := p.Z * metersPerUnit * g.scale
	lon, lat, _ = g.inverse(g.x0+east, g.y0+north, 0)
	return lon, lat
}

// Point converts a scene position to a WGS84 point with height in meters.
func (g *Georeference) Point(p core.Position3D, metersPerUnit float64) geom.Point {
	lon, lat := g.LonLat(p, metersPerUnit)
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: lon, Y: lat},
		Z:    p.Y * metersPerUnit,
		Type: geom.CoordinatesType(geom.DimXYZ),
	})
}
