package types

import (
	"fmt"
	"io/fs"
	"strings"
	"time"
)

// Source records where a rule came from. Only used for diagnostics.
type Source struct {
	File string `json:"file" yaml:"file" toml:"file"`
	Line int    `json:"line" yaml:"line" toml:"line"`
}

func (s Source) String() string {
	if s.File == "" {
		return fmt.Sprintf("line %d", s.Line)
	}
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// ModeOp says how Mode.Bits combine with an existing mode.
type ModeOp int

const (
	ModeUnset ModeOp = iota
	// ModeReplace sets the bits outright.
	ModeReplace
	// ModeAdd ORs the bits into the existing mode.
	ModeAdd
	// ModeClearBits clears the bits from the existing mode.
	ModeClearBits
	// ModeMask keeps only the existing bits that are also in Bits.
	ModeMask
)

// Mode is the permission field of a rule. Bits are unix octal bits
// (including setuid, setgid and sticky).
type Mode struct {
	Op   ModeOp
	Bits uint32
	// KeepExisting applies the mode only when the entry is created.
	KeepExisting bool
}

// IsSet reports whether the line specified a mode.
func (m Mode) IsSet() bool {
	return m.Op != ModeUnset
}

// Apply computes the resulting unix bits given the existing ones.
// fallback is used as the base when nothing exists yet.
func (m Mode) Apply(existing uint32, exists bool, fallback uint32) uint32 {
	base := existing
	if !exists {
		base = fallback
	}
	switch m.Op {
	case ModeReplace:
		return m.Bits
	case ModeAdd:
		return base | m.Bits
	case ModeClearBits:
		return base &^ m.Bits
	case ModeMask:
		return base & m.Bits
	default:
		return base
	}
}

// FileMode converts unix permission bits into an fs.FileMode.
func FileMode(bits uint32) fs.FileMode {
	mode := fs.FileMode(bits & 0o777)
	if bits&0o4000 != 0 {
		mode |= fs.ModeSetuid
	}
	if bits&0o2000 != 0 {
		mode |= fs.ModeSetgid
	}
	if bits&0o1000 != 0 {
		mode |= fs.ModeSticky
	}
	return mode
}

// UnixBits converts an fs.FileMode back to unix permission bits.
func UnixBits(mode fs.FileMode) uint32 {
	bits := uint32(mode.Perm())
	if mode&fs.ModeSetuid != 0 {
		bits |= 0o4000
	}
	if mode&fs.ModeSetgid != 0 {
		bits |= 0o2000
	}
	if mode&fs.ModeSticky != 0 {
		bits |= 0o1000
	}
	return bits
}

// Owner is a user or group reference from a rule.
type Owner struct {
	Set  bool
	Name string
	ID   uint32
	// IsID is true when the field was numeric.
	IsID bool
	// KeepExisting applies the owner only when the entry is created.
	KeepExisting bool
}

func (o Owner) String() string {
	if !o.Set {
		return "-"
	}
	prefix := ""
	if o.KeepExisting {
		prefix = ":"
	}
	if o.IsID {
		return fmt.Sprintf("%s%d", prefix, o.ID)
	}
	return prefix + o.Name
}

// Timestamp is one of the timestamps considered by age cleanup.
type Timestamp uint8

const (
	TimeAtime Timestamp = 1 << iota
	TimeBtime
	TimeCtime
	TimeMtime
)

// AgeForm records how the age field was written, so it can be formatted back.
type AgeForm int

const (
	// AgePlain is a bare duration: newest of mtime and atime.
	AgePlain AgeForm = iota
	// AgeCtime is "~DURATION": ctime only.
	AgeCtime
	// AgeSelectors is "[~]aAbBcCmM:DURATION".
	AgeSelectors
)

// Age is the cleanup threshold of a rule.
type Age struct {
	Set      bool
	Duration time.Duration
	Form     AgeForm
	// Files and Dirs select the timestamps compared for files and
	// directories. The newest selected timestamp wins.
	Files Timestamp
	Dirs  Timestamp
	// SecondLevel keeps the entries directly inside the cleaned directory
	// and only cleans below them.
	SecondLevel bool
}

// Rule is one parsed configuration directive. Rules are values: the
// loader never changes one after handing it out, it makes a copy.
type Rule struct {
	Type      byte
	Kind      Kind
	Recursive bool
	Device    DeviceType

	Force      bool // '+'
	Boot       bool // '!'
	NoError    bool // '-'
	Replace    bool // '='
	Base64     bool // '~'
	Credential bool // '^'

	Path        string
	Mode        Mode
	User        Owner
	Group       Owner
	Age         Age
	Argument    string
	HasArgument bool

	Source Source
}

// Modifiers returns the modifier characters in canonical order.
func (r Rule) Modifiers() string {
	var b strings.Builder
	if r.Force {
		b.WriteByte('+')
	}
	if r.NoError {
		b.WriteByte('-')
	}
	if r.Replace {
		b.WriteByte('=')
	}
	if r.Boot {
		b.WriteByte('!')
	}
	if r.Base64 {
		b.WriteByte('~')
	}
	if r.Credential {
		b.WriteByte('^')
	}
	return b.String()
}

// TypeString is the type letter followed by its modifiers.
func (r Rule) TypeString() string {
	return string(r.Type) + r.Modifiers()
}

// WithExpansion returns a copy of the rule with path and argument replaced.
func (r Rule) WithExpansion(path, argument string) Rule {
	out := r
	out.Path = path
	out.Argument = argument
	return out
}

// IsCreateKind reports kinds that bring an entry into existence.
func (r Rule) IsCreateKind() bool {
	switch r.Kind {
	case KindCreateFile, KindCreateDir, KindCreateDirCleanPath, KindCreateFifo,
		KindCreateDevice, KindCreateSymlink, KindCopy:
		return true
	case KindWriteFile, KindEmptyDir, KindIgnore, KindAdjustMode, KindSetXattr,
		KindSetAttr, KindSetACL, KindRemove, KindRemoveRecursive:
		return false
	}
	return false
}

// DefaultBits returns the permission bits used when the rule has no mode.
func (r Rule) DefaultBits() uint32 {
	switch r.Kind {
	case KindCreateDir, KindCreateDirCleanPath, KindEmptyDir:
		return 0o755
	case KindCreateSymlink:
		return 0o777
	case KindCreateFile, KindWriteFile, KindCreateFifo, KindCreateDevice, KindCopy,
		KindIgnore, KindAdjustMode, KindSetXattr, KindSetAttr, KindSetACL,
		KindRemove, KindRemoveRecursive:
		return 0o644
	}
	return 0o644
}

func (r Rule) String() string {
	return fmt.Sprintf("%s %s", r.TypeString(), r.Path)
}
