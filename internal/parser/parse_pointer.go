package parser

import (
	"fmt"
	"strings"
	"time"

	"github.com/campusar/wayfinder/pkg/core"
)

// ParsePointerKind maps "down", "move", "up", "tap" and "cancel".
func ParsePointerKind(s string) (core.PointerKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "down", "began":
		return core.PointerDown, nil
	case "move", "moved":
		return core.PointerMove, nil
	case "up", "ended":
		return core.PointerUp, nil
	case "tap":
		return core.PointerTap, nil
	case "cancel", "canceled", "cancelled":
		return core.PointerCancel, nil
	}
	return 0, fmt.Errorf("unknown pointer kind %q", s)
}

// ParsePointer parses pointer, kind, x, y and an optional overUI flag.
// The event is stamped with at.
func (p *Parser) ParsePointer(args []string, at time.Time) (core.PointerEvent, error) {
	var ev core.PointerEvent

	args = clean(args)
	if err := need(args, 4); err != nil {
		return ev, err
	}

	kind, err := ParsePointerKind(args[1])
	if err != nil {
		return ev, err
	}

	ev.Pointer = p.int(args, 0, "pointer", 0)
	ev.Kind = kind
	ev.Position = core.ScreenPoint{
		X: p.float(args, 2, "screen x", 0),
		Y: p.float(args, 3, "screen y", 0),
	}
	ev.OverUI = p.bool(args, 4, "overUI")
	ev.Time = at
	return ev, nil
}
