// pkg/core/identity.go
package core

import "strings"

// byteOrderMark is stripped from identities; spreadsheet exports often prefix the first cell with it.
const byteOrderMark = "\uFEFF"

// Identity is the shared key that names a marker, the entity spawned above it,
// and the detail record describing it. Values are normalized once, at the
// boundary where raw text enters the system, and compared as-is afterwards.
type Identity string

// NewIdentity normalizes raw text into an Identity: byte-order marks are
// removed, surrounding whitespace trimmed, and the result lowercased.
func NewIdentity(raw string) Identity {
	s := strings.ReplaceAll(raw, byteOrderMark, "")
	s = strings.TrimSpace(s)
	return Identity(strings.ToLower(s))
}

// String returns the normalized identity text.
func (id Identity) String() string {
	return string(id)
}

// IsZero reports whether the identity is empty.
func (id Identity) IsZero() bool {
	return id == ""
}
