package types

import "fmt"

// Kind is the closed set of actions a configuration line can request.
// Switches over Kind are expected to be exhaustive.
type Kind int

const (
	KindCreateFile Kind = iota
	KindWriteFile
	KindCreateDir
	KindCreateDirCleanPath
	// KindEmptyDir never creates anything: it adjusts existing directories
	// and age-cleans their contents.
	KindEmptyDir
	KindCreateFifo
	KindCreateDevice
	KindCreateSymlink
	KindCopy
	KindIgnore
	KindAdjustMode
	KindSetXattr
	KindSetAttr
	KindSetACL
	KindRemove
	KindRemoveRecursive
)

var kindNames = map[Kind]string{
	KindCreateFile:         "create-file",
	KindWriteFile:          "write-file",
	KindCreateDir:          "create-dir",
	KindCreateDirCleanPath: "create-dir-clean-path",
	KindEmptyDir:           "empty-dir",
	KindCreateFifo:         "create-fifo",
	KindCreateDevice:       "create-device",
	KindCreateSymlink:      "create-symlink",
	KindCopy:               "copy",
	KindIgnore:             "ignore",
	KindAdjustMode:         "adjust-mode",
	KindSetXattr:           "set-xattr",
	KindSetAttr:            "set-attr",
	KindSetACL:             "set-acl",
	KindRemove:             "remove",
	KindRemoveRecursive:    "remove-recursive",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DeviceType distinguishes character and block device nodes.
type DeviceType int

const (
	DeviceNone DeviceType = iota
	DeviceChar
	DeviceBlock
)

func (d DeviceType) String() string {
	switch d {
	case DeviceChar:
		return "char"
	case DeviceBlock:
		return "block"
	default:
		return "none"
	}
}

// TypeSpec describes what a type letter maps to.
type TypeSpec struct {
	Letter    byte
	Kind      Kind
	Recursive bool
	Device    DeviceType
	// NeedsArgument is set for letters whose argument has no default.
	NeedsArgument bool
}

var typeSpecs = map[byte]TypeSpec{
	'f': {Letter: 'f', Kind: KindCreateFile},
	'w': {Letter: 'w', Kind: KindWriteFile, NeedsArgument: true},
	'd': {Letter: 'd', Kind: KindCreateDir},
	'v': {Letter: 'v', Kind: KindCreateDir},
	'q': {Letter: 'q', Kind: KindCreateDir},
	'Q': {Letter: 'Q', Kind: KindCreateDir},
	'D': {Letter: 'D', Kind: KindCreateDirCleanPath},
	'e': {Letter: 'e', Kind: KindEmptyDir},
	'p': {Letter: 'p', Kind: KindCreateFifo},
	'c': {Letter: 'c', Kind: KindCreateDevice, Device: DeviceChar, NeedsArgument: true},
	'b': {Letter: 'b', Kind: KindCreateDevice, Device: DeviceBlock, NeedsArgument: true},
	'L': {Letter: 'L', Kind: KindCreateSymlink},
	'C': {Letter: 'C', Kind: KindCopy},
	'x': {Letter: 'x', Kind: KindIgnore, Recursive: true},
	'X': {Letter: 'X', Kind: KindIgnore},
	'z': {Letter: 'z', Kind: KindAdjustMode},
	'Z': {Letter: 'Z', Kind: KindAdjustMode, Recursive: true},
	't': {Letter: 't', Kind: KindSetXattr, NeedsArgument: true},
	'T': {Letter: 'T', Kind: KindSetXattr, Recursive: true, NeedsArgument: true},
	'h': {Letter: 'h', Kind: KindSetAttr, NeedsArgument: true},
	'H': {Letter: 'H', Kind: KindSetAttr, Recursive: true, NeedsArgument: true},
	'a': {Letter: 'a', Kind: KindSetACL, NeedsArgument: true},
	'A': {Letter: 'A', Kind: KindSetACL, Recursive: true, NeedsArgument: true},
	'r': {Letter: 'r', Kind: KindRemove},
	'R': {Letter: 'R', Kind: KindRemoveRecursive},
}

// LookupType returns the TypeSpec for a type letter.
func LookupType(letter byte) (TypeSpec, bool) {
	spec, ok := typeSpecs[letter]
	return spec, ok
}

// TypeLetters returns every accepted type letter.
func TypeLetters() []byte {
	letters := make([]byte, 0, len(typeSpecs))
	for l := range typeSpecs {
		letters = append(letters, l)
	}
	return letters
}
