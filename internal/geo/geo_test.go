package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/campusar/wayfinder/pkg/core"
)

func TestPosition3DFromString(t *testing.T) {
	tests := []struct {
		input string
		want  core.Position3D
	}{
		{"1.5,2,3", core.Position3D{X: 1.5, Y: 2, Z: 3}},
		{"1,2", core.Position3D{X: 1, Y: 2}},
		{"[ -1, 0.25, -3 ]", core.Position3D{X: -1, Y: 0.25, Z: -3}},
	}
	for _, tt := range tests {
		got, err := Position3DFromString(tt.input)
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("%q: expected %+v, got %+v", tt.input, tt.want, got)
		}
	}
}

func TestPosition3DFromString_Invalid(t *testing.T) {
	for _, input := range []string{"", "1", "a,b", "1,2,3,4", "1,NaN", "1,,2"} {
		_, err := Position3DFromString(input)
		if !errors.Is(err, ErrInvalidCoordinates) {
			t.Errorf("%q: expected ErrInvalidCoordinates, got %v", input, err)
		}
	}
}

func TestNewGeoreference_Invalid(t *testing.T) {
	if _, err := NewGeoreference(0, 89); !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates for polar latitude, got %v", err)
	}
	if _, err := NewGeoreference(181, 0); !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates for longitude, got %v", err)
	}
}

func TestGeoreference_OriginMapsToAnchor(t *testing.T) {
	g, err := NewGeoreference(2.35, 48.85)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lon, lat := g.LonLat(core.Position3D{}, 100)
	if math.Abs(lon-2.35) > 1e-9 || math.Abs(lat-48.85) > 1e-9 {
		t.Errorf("expected origin at anchor, got %f,%f", lon, lat)
	}

	olon, olat := g.Origin()
	if olon != 2.35 || olat != 48.85 {
		t.Errorf("unexpected origin %f,%f", olon, olat)
	}
}

func TestGeoreference_MetersOnTheGround(t *testing.T) {
	g, err := NewGeoreference(2.35, 48.85)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 1 unit * 100 m north is about 0.0009 degrees of latitude
	_, lat := g.LonLat(core.Position3D{Z: 1}, 100)
	dLat := (lat - 48.85) * 111_195
	if math.Abs(dLat-100) > 1 {
		t.Errorf("expected ~100 m north, got %.2f m", dLat)
	}

	lon, _ := g.LonLat(core.Position3D{X: 1}, 100)
	dLon := (lon - 2.35) * 111_195 * math.Cos(48.85*math.Pi/180)
	if math.Abs(dLon-100) > 1 {
		t.Errorf("expected ~100 m east, got %.2f m", dLon)
	}
}

func TestGeoreference_Point(t *testing.T) {
	g, err := NewGeoreference(0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pt := g.Point(core.Position3D{Y: 0.5}, 10)
	c, ok := pt.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if c.Z != 5 {
		t.Errorf("expected height 5 m, got %f", c.Z)
	}
	if math.Abs(c.X) > 1e-9 || math.Abs(c.Y) > 1e-9 {
		t.Errorf("expected anchor lon/lat, got %f,%f", c.X, c.Y)
	}
}
