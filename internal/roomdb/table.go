// Package roomdb holds the room detail records looked up when a building is opened.
package roomdb

import (
	"slices"

	"github.com/campusar/wayfinder/pkg/core"
)

// Store looks up a detail record by normalized identity.
type Store interface {
	Lookup(id core.Identity) (core.DetailRecord, bool)
}

// Table is an in-memory Store.
type Table struct {
	byID map[core.Identity]core.DetailRecord
}

// NewTable builds a table from records. Later duplicates win.
func NewTable(records ...core.DetailRecord) *Table {
	t := &Table{byID: make(map[core.Identity]core.DetailRecord, len(records))}
	for _, r := range records {
		t.Put(r)
	}
	return t
}

// Put inserts or replaces a record. Records without an identity are ignored.
func (t *Table) Put(r core.DetailRecord) {
	if r.RoomID.IsZero() {
		return
	}
	t.byID[r.RoomID] = r
}

func (t *Table) Lookup(id core.Identity) (core.DetailRecord, bool) {
	r, ok := t.byID[id]
	return r, ok
}

func (t *Table) Len() int {
	return len(t.byID)
}

// Records returns every record ordered by identity.
func (t *Table) Records() []core.DetailRecord {
	out := make([]core.DetailRecord, 0, len(t.byID))
	for _, r := range t.byID {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b core.DetailRecord) int {
		switch {
		case a.RoomID < b.RoomID:
			return -1
		case a.RoomID > b.RoomID:
			return 1
		}
		return 0
	})
	return out
}
