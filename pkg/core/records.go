// pkg/core/records.go
package core

import (
	"fmt"
	"strconv"
	"strings"
)

// DetailRecord describes one room, keyed by its normalized identity.
type DetailRecord struct {
	RoomID         Identity
	SeatsAvailable int
	EvacuationMap  string
	Objects        []string
}

// Student is one roster row. Rooms holds the room occupied at each hour
// from FirstHour onwards.
type Student struct {
	Name           string
	Gender         string
	Rooms          [5]string
	Hair           string
	Height         int
	Transport      string
	Clothing       string
	Year           int
	Specialization string
}

// FirstHour and LastHour bound the roster's hourly room columns.
const (
	FirstHour = 13
	LastHour  = 17
)

// RoomAt returns the room occupied at hour, or "Unknown" outside the roster hours.
func (s Student) RoomAt(hour int) string {
	if hour < FirstHour || hour > LastHour {
		return "Unknown"
	}
	return s.Rooms[hour-FirstHour]
}

// InRoomAt reports whether the student is in room at hour (case-insensitive).
func (s Student) InRoomAt(room string, hour int) bool {
	return strings.EqualFold(s.RoomAt(hour), room)
}

// InRoomAnyTime reports whether the student passes through room at any roster hour.
func (s Student) InRoomAnyTime(room string) bool {
	for _, r := range s.Rooms {
		if strings.EqualFold(r, room) {
			return true
		}
	}
	return false
}

// Color is an RGBA color with components in [0,1].
type Color struct {
	R, G, B, A float64
}

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA".
func ParseHexColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 && len(h) != 8 {
		return Color{}, fmt.Errorf("invalid color %q", s)
	}
	if len(h) == 6 {
		h += "ff"
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{
		R: float64(v>>24&0xff) / 255,
		G: float64(v>>16&0xff) / 255,
		B: float64(v>>8&0xff) / 255,
		A: float64(v&0xff) / 255,
	}, nil
}

// Hex formats the color as "#RRGGBBAA".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", channel(c.R), channel(c.G), channel(c.B), channel(c.A))
}

func channel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
