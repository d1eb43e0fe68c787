package core

import "github.com/arthur-debert/tmpfiles/pkg/types"

// Eligibility lists, per type letter, the phases a rule takes part in.
// Letters that map to no phase (x, X) only feed exclusions to clean.
// A rule in a phase it is not listed for is silently passed over.
var Eligibility = map[byte]types.RunMode{
	'f': types.ModeCreate,
	'w': types.ModeCreate,
	'p': types.ModeCreate,
	'L': types.ModeCreate,
	'c': types.ModeCreate,
	'b': types.ModeCreate,
	'C': types.ModeCreate,
	'z': types.ModeCreate,
	'Z': types.ModeCreate,
	't': types.ModeCreate,
	'T': types.ModeCreate,
	'h': types.ModeCreate,
	'H': types.ModeCreate,
	'a': types.ModeCreate,
	'A': types.ModeCreate,

	'd': types.ModeCreate | types.ModeClean,
	'v': types.ModeCreate | types.ModeClean,
	'q': types.ModeCreate | types.ModeClean,
	'Q': types.ModeCreate | types.ModeClean,
	'e': types.ModeCreate | types.ModeClean,

	'D': types.ModeCreate | types.ModeClean | types.ModeRemove,

	'r': types.ModeRemove,
	'R': types.ModeRemove,

	'x': 0,
	'X': 0,
}

// Eligible reports whether rule runs in phase. Clean additionally needs
// an age.
func Eligible(rule types.Rule, phase types.RunMode) bool {
	if !Eligibility[rule.Type].Has(phase) {
		return false
	}
	if phase == types.ModeClean && !rule.Age.Set {
		return false
	}
	return true
}
