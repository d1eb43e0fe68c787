package types

import "strings"

// RunMode is the set of reconciliation phases selected for a run.
type RunMode uint8

const (
	// ModeCreate creates and adjusts entries.
	ModeCreate RunMode = 1 << iota
	// ModeClean removes entries older than a rule's age.
	ModeClean
	// ModeRemove removes entries named by remove rules.
	ModeRemove
)

// Phases lists the phases in execution order.
var Phases = []RunMode{ModeRemove, ModeCreate, ModeClean}

// Has reports whether every phase in p is selected.
func (m RunMode) Has(p RunMode) bool {
	return p != 0 && m&p == p
}

// Any reports whether at least one phase of p is selected.
func (m RunMode) Any(p RunMode) bool {
	return m&p != 0
}

func (m RunMode) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	if m.Has(ModeCreate) {
		parts = append(parts, "create")
	}
	if m.Has(ModeClean) {
		parts = append(parts, "clean")
	}
	if m.Has(ModeRemove) {
		parts = append(parts, "remove")
	}
	return strings.Join(parts, "+")
}

// MarshalText renders the mode for JSON, YAML and TOML output.
func (m RunMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}
