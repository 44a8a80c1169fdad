// Package details opens the detail panel for a held building.
package details

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/campusar/wayfinder/internal/roomdb"
	"github.com/campusar/wayfinder/internal/students"
	"github.com/campusar/wayfinder/pkg/core"
)

const unknown = "?"

// Presenter shows or hides the detail panel.
type Presenter interface {
	ShowPanel(p Panel)
	HidePanel()
}

// Panel is the rendered content of one detail lookup. A miss still yields a panel.
type Panel struct {
	Identity   core.Identity
	Found      bool
	Title      string
	Seats      string
	Evacuation string
	Objects    string
	Students   []string
}

// Lines returns the panel body, one entry per text row.
func (p Panel) Lines() []string {
	lines := []string{
		"Seats available: " + p.Seats,
		"Evacuation: " + p.Evacuation,
		"Objects: " + p.Objects,
	}
	if len(p.Students) > 0 {
		lines = append(lines, fmt.Sprintf("Students (%d): %s", len(p.Students), strings.Join(p.Students, ", ")))
	}
	return lines
}

func (p Panel) String() string {
	return p.Title + "\n" + strings.Join(p.Lines(), "\n")
}

// Build formats a lookup result without any side effects.
func Build(id core.Identity, rec core.DetailRecord, found bool) Panel {
	p := Panel{Identity: id, Found: found, Title: id.String()}
	if !found {
		p.Seats = unknown
		p.Evacuation = unknown
		p.Objects = "(not found)"
		return p
	}

	p.Seats = fmt.Sprint(rec.SeatsAvailable)
	p.Evacuation = rec.EvacuationMap
	if p.Evacuation == "" {
		p.Evacuation = unknown
	}
	p.Objects = strings.Join(rec.Objects, ", ")
	if p.Objects == "" {
		p.Objects = "(none)"
	}
	return p
}

// Flow looks up held entities and drives the panel.
type Flow struct {
	store     roomdb.Store
	roster    *students.Roster
	presenter Presenter
	logger    *slog.Logger

	current *Panel
	opened  []func(Panel)
}

// NewFlow wires the flow. roster may be nil.
func NewFlow(store roomdb.Store, roster *students.Roster, presenter Presenter, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flow{
		store:     store,
		roster:    roster,
		presenter: presenter,
		logger:    logger.With("component", "details"),
	}
}

// OnOpen registers a hook called with every panel the flow opens.
func (f *Flow) OnOpen(hook func(Panel)) {
	f.opened = append(f.opened, hook)
}

// Open looks id up and shows its panel, replacing any open one.
func (f *Flow) Open(id core.Identity) Panel {
	var (
		rec   core.DetailRecord
		found bool
	)
	if f.store != nil && !id.IsZero() {
		rec, found = f.store.Lookup(id)
	}

	p := Build(id, rec, found)
	if f.roster != nil {
		for _, s := range f.roster.InRoom(id.String()) {
			p.Students = append(p.Students, s.Name)
		}
	}

	if found {
		f.logger.Info("details opened", "identity", id, "seats", rec.SeatsAvailable, "students", len(p.Students))
	} else {
		f.logger.Info("details not found", "identity", id)
	}

	f.current = &p
	if f.presenter != nil {
		f.presenter.ShowPanel(p)
	}
	for _, hook := range f.opened {
		hook(p)
	}
	return p
}

// Close hides the open panel, if any.
func (f *Flow) Close() {
	if f.current == nil {
		return
	}
	f.current = nil
	if f.presenter != nil {
		f.presenter.HidePanel()
	}
}

// Current returns the open panel.
func (f *Flow) Current() (Panel, bool) {
	if f.current == nil {
		return Panel{}, false
	}
	return *f.current, true
}
