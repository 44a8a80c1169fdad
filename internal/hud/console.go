// Package hud renders the scene readouts as text for the CLI.
package hud

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/campusar/wayfinder/internal/details"
	"github.com/campusar/wayfinder/internal/selection"
	"github.com/campusar/wayfinder/pkg/core"
)

// DistanceText is the distance readout shown once both slots are filled.
func DistanceText(a, b core.Identity, meters, minutes, speed float64) string {
	return fmt.Sprintf("A: %s\nB: %s\nDistance: %.2f m\nWalk time: %.1f min\nSpeed: %.2f m/s",
		a, b, meters, minutes, speed)
}

// TrackedText lists the tracked markers. Empty input hides the list.
func TrackedText(ids []core.Identity) string {
	if len(ids) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Tracked markers (%d):", len(ids))
	for _, id := range ids {
		sb.WriteString("\n- ")
		sb.WriteString(id.String())
	}
	return sb.String()
}

// Console keeps the current HUD state and prints every visible change to w.
// It is driven from the session goroutine only.
type Console struct {
	w io.Writer

	distance string
	overlays map[core.Identity]core.Color
	link     *[2]core.Position3D
	panel    *details.Panel
	tracked  []core.Identity
}

var (
	_ selection.Presenter = (*Console)(nil)
	_ details.Presenter   = (*Console)(nil)
)

// NewConsole prints to w. A nil writer keeps state without printing.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = io.Discard
	}
	return &Console{w: w, overlays: make(map[core.Identity]core.Color)}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.w, format, args...)
}

func (c *Console) ShowDistance(a, b core.Identity, meters, minutes, speed float64) {
	c.distance = DistanceText(a, b, meters, minutes, speed)
	c.printf("[distance]\n%s\n", c.distance)
}

func (c *Console) ClearDistance() {
	if c.distance == "" {
		return
	}
	c.distance = ""
	c.printf("[distance] cleared\n")
}

func (c *Console) SetOverlay(id core.Identity, on bool, color core.Color) {
	if !on {
		delete(c.overlays, id)
		c.printf("[overlay] %s off\n", id)
		return
	}
	c.overlays[id] = color
	c.printf("[overlay] %s %s\n", id, color.Hex())
}

// ShowLink is called every tick while both slots resolve; only the first call prints.
func (c *Console) ShowLink(a, b core.Position3D) {
	shown := c.link != nil
	c.link = &[2]core.Position3D{a, b}
	if !shown {
		c.printf("[link] shown\n")
	}
}

func (c *Console) HideLink() {
	if c.link == nil {
		return
	}
	c.link = nil
	c.printf("[link] hidden\n")
}

func (c *Console) ShowPanel(p details.Panel) {
	c.panel = &p
	c.printf("[details]\n%s\n", p.String())
}

func (c *Console) HidePanel() {
	if c.panel == nil {
		return
	}
	c.panel = nil
	c.printf("[details] closed\n")
}

// SetTracked replaces the tracked-marker list and prints it when it changed.
func (c *Console) SetTracked(ids []core.Identity) {
	if slices.Equal(ids, c.tracked) {
		return
	}
	c.tracked = slices.Clone(ids)
	if text := TrackedText(ids); text != "" {
		c.printf("[tracked]\n%s\n", text)
	} else {
		c.printf("[tracked] none\n")
	}
}

// Distance returns the current readout, empty when hidden.
func (c *Console) Distance() string {
	return c.distance
}

// Overlay returns the highlight color on id.
func (c *Console) Overlay(id core.Identity) (core.Color, bool) {
	color, ok := c.overlays[id]
	return color, ok
}

// Highlighted lists identities with an overlay on, sorted.
func (c *Console) Highlighted() []core.Identity {
	return slices.Sorted(maps.Keys(c.overlays))
}

// Link returns the link end points while it is shown.
func (c *Console) Link() (a, b core.Position3D, ok bool) {
	if c.link == nil {
		return a, b, false
	}
	return c.link[0], c.link[1], true
}

// Panel returns the open detail panel.
func (c *Console) Panel() (details.Panel, bool) {
	if c.panel == nil {
		return details.Panel{}, false
	}
	return *c.panel, true
}

// Tracked returns the tracked-marker list last set.
func (c *Console) Tracked() []core.Identity {
	return slices.Clone(c.tracked)
}
