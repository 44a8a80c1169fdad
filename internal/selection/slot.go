package selection

import "github.com/campusar/wayfinder/pkg/core"

// Slot is either empty or holds one entity identity.
type Slot struct {
	id core.Identity
}

// Holding returns a slot holding id.
func Holding(id core.Identity) Slot {
	return Slot{id: id}
}

func (s Slot) Empty() bool {
	return s.id.IsZero()
}

// Identity returns the held identity, zero when empty.
func (s Slot) Identity() core.Identity {
	return s.id
}

// Holds reports whether the slot holds id.
func (s Slot) Holds(id core.Identity) bool {
	return !s.Empty() && s.id == id
}

func (s Slot) String() string {
	if s.Empty() {
		return "empty"
	}
	return s.id.String()
}
