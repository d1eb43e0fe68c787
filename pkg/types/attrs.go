package types

import (
	"fmt"
	"strings"
)

// Inode flag bits as used by FS_IOC_GETFLAGS / FS_IOC_SETFLAGS.
const (
	FlagSecureRm    uint32 = 0x00000001 // s
	FlagUndelete    uint32 = 0x00000002 // u
	FlagCompress    uint32 = 0x00000004 // c
	FlagSync        uint32 = 0x00000008 // S
	FlagImmutable   uint32 = 0x00000010 // i
	FlagAppend      uint32 = 0x00000020 // a
	FlagNoDump      uint32 = 0x00000040 // d
	FlagNoAtime     uint32 = 0x00000080 // A
	FlagNoCompress  uint32 = 0x00000400 // m
	FlagJournalData uint32 = 0x00004000 // j
	FlagNoTail      uint32 = 0x00008000 // t
	FlagDirSync     uint32 = 0x00010000 // D
	FlagTopDir      uint32 = 0x00020000 // T
	FlagExtents     uint32 = 0x00080000 // e
	FlagNoCOW       uint32 = 0x00800000 // C
	FlagDAX         uint32 = 0x02000000 // x
	FlagProjInherit uint32 = 0x20000000 // P
	FlagCaseFold    uint32 = 0x40000000 // F
)

var attrLetters = map[byte]uint32{
	's': FlagSecureRm,
	'u': FlagUndelete,
	'c': FlagCompress,
	'S': FlagSync,
	'i': FlagImmutable,
	'a': FlagAppend,
	'd': FlagNoDump,
	'A': FlagNoAtime,
	'm': FlagNoCompress,
	'j': FlagJournalData,
	't': FlagNoTail,
	'D': FlagDirSync,
	'T': FlagTopDir,
	'e': FlagExtents,
	'C': FlagNoCOW,
	'x': FlagDAX,
	'P': FlagProjInherit,
	'F': FlagCaseFold,
}

// AttrChange is a parsed h/H argument. Bits under Mask are forced to the
// corresponding bit of Value; everything else is left as it is.
type AttrChange struct {
	Value uint32
	Mask  uint32
}

// Apply returns flags with the change applied.
func (a AttrChange) Apply(flags uint32) uint32 {
	return flags&^a.Mask | a.Value&a.Mask
}

// ParseAttrs parses a chattr style argument: an optional operator ('+'
// sets, '-' clears, '=' sets the listed letters and clears every other
// known one) followed by attribute letters. No operator means '+'.
func ParseAttrs(arg string) (AttrChange, error) {
	if arg == "" {
		return AttrChange{}, fmt.Errorf("empty attribute list")
	}

	op := byte('+')
	switch arg[0] {
	case '+', '-', '=':
		op = arg[0]
		arg = arg[1:]
	}

	var bits uint32
	for i := 0; i < len(arg); i++ {
		bit, ok := attrLetters[arg[i]]
		if !ok {
			return AttrChange{}, fmt.Errorf("unknown attribute %q", arg[i])
		}
		bits |= bit
	}
	if bits == 0 && op != '=' {
		return AttrChange{}, fmt.Errorf("no attributes given")
	}

	switch op {
	case '-':
		return AttrChange{Value: 0, Mask: bits}, nil
	case '=':
		var all uint32
		for _, bit := range attrLetters {
			all |= bit
		}
		return AttrChange{Value: bits, Mask: all}, nil
	default:
		return AttrChange{Value: bits, Mask: bits}, nil
	}
}

// FormatAttrs renders flags as the letters of the known attributes set in
// them, in a stable order.
func FormatAttrs(flags uint32) string {
	var b strings.Builder
	for _, l := range []byte("suSicadAmjtDTeCxPF") {
		if flags&attrLetters[l] != 0 {
			b.WriteByte(l)
		}
	}
	return b.String()
}
