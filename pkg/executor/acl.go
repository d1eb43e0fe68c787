package executor

import (
	"bytes"
	"encoding/binary"
	stderrors "errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"syscall"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/types"
)

// Extended attributes holding POSIX ACLs
const (
	ACLAccessXattr  = "system.posix_acl_access"
	ACLDefaultXattr = "system.posix_acl_default"
)

const (
	aclVersion     = 2
	aclUndefinedID = 0xFFFFFFFF
	aclHeaderSize  = 4
	aclEntrySize   = 8
)

// aclEntry is one entry of the binary xattr form.
type aclEntry struct {
	tag   types.ACLTag
	perms uint16
	id    uint32
}

// encodeACL renders entries in the little-endian layout the kernel expects,
// sorted by tag and then id.
func encodeACL(entries []aclEntry) []byte {
	sorted := append([]aclEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].tag != sorted[j].tag {
			return sorted[i].tag < sorted[j].tag
		}
		return sorted[i].id < sorted[j].id
	})

	buf := make([]byte, aclHeaderSize+aclEntrySize*len(sorted))
	binary.LittleEndian.PutUint32(buf, aclVersion)
	for i, en := range sorted {
		off := aclHeaderSize + aclEntrySize*i
		binary.LittleEndian.PutUint16(buf[off:], uint16(en.tag))
		binary.LittleEndian.PutUint16(buf[off+2:], en.perms)
		binary.LittleEndian.PutUint32(buf[off+4:], en.id)
	}
	return buf
}

func decodeACL(data []byte) ([]aclEntry, error) {
	if len(data) < aclHeaderSize || (len(data)-aclHeaderSize)%aclEntrySize != 0 {
		return nil, fmt.Errorf("malformed ACL of %d bytes", len(data))
	}
	if v := binary.LittleEndian.Uint32(data); v != aclVersion {
		return nil, fmt.Errorf("unsupported ACL version %d", v)
	}
	entries := make([]aclEntry, 0, (len(data)-aclHeaderSize)/aclEntrySize)
	for off := aclHeaderSize; off < len(data); off += aclEntrySize {
		entries = append(entries, aclEntry{
			tag:   types.ACLTag(binary.LittleEndian.Uint16(data[off:])),
			perms: binary.LittleEndian.Uint16(data[off+2:]),
			id:    binary.LittleEndian.Uint32(data[off+4:]),
		})
	}
	return entries, nil
}

// baseACL is the minimal ACL equivalent to permission bits.
func baseACL(bits uint32) []aclEntry {
	return []aclEntry{
		{tag: types.ACLUserObj, perms: uint16(bits>>6) & 7, id: aclUndefinedID},
		{tag: types.ACLGroupObj, perms: uint16(bits>>3) & 7, id: aclUndefinedID},
		{tag: types.ACLOther, perms: uint16(bits) & 7, id: aclUndefinedID},
	}
}

// setEntry replaces the entry with the same tag and id, or appends one.
func setEntry(entries []aclEntry, en aclEntry) []aclEntry {
	for i := range entries {
		if entries[i].tag == en.tag && entries[i].id == en.id {
			entries[i].perms = en.perms
			return entries
		}
	}
	return append(entries, en)
}

// maskFor returns the mask an ACL with named entries needs, and whether it
// needs one at all.
func maskFor(entries []aclEntry) (uint16, bool) {
	var mask uint16
	named := false
	for _, en := range entries {
		switch en.tag {
		case types.ACLUser, types.ACLGroup:
			named = true
			mask |= en.perms
		case types.ACLGroupObj:
			mask |= en.perms
		}
	}
	return mask, named
}

// setACLs applies the access and default ACL entries of an a or A rule.
// With '+' the entries are merged into the existing ACL instead of
// replacing it.
func (e *Executor) setACLs(o *types.Outcome, rule types.Rule) {
	entries, err := types.ParseACL(rule.Argument)
	if err != nil {
		o.Fail(rule.Path, errors.Wrap(err, errors.ErrInvalidInput, "invalid ACL argument"))
		return
	}
	var access, defaults []types.ACLEntry
	for _, en := range entries {
		if en.Default {
			defaults = append(defaults, en)
		} else {
			access = append(access, en)
		}
	}

	n := e.each(o, rule, rule.Recursive, func(p string, info fs.FileInfo) error {
		if isSymlink(info) {
			return nil
		}
		if len(access) > 0 {
			if err := e.touchIf(o, p)(e.applyACL(p, info, ACLAccessXattr, access, rule.Force)); err != nil {
				return err
			}
		}
		if len(defaults) > 0 && info.IsDir() {
			return e.touchIf(o, p)(e.applyACL(p, info, ACLDefaultXattr, defaults, rule.Force))
		}
		return nil
	})
	if n == 0 {
		o.Skip(rule.Path, "no such path")
	}
}

func (e *Executor) applyACL(p string, info fs.FileInfo, xattr string, want []types.ACLEntry, merge bool) (bool, error) {
	real := e.real(p)

	current, err := e.fs.Lgetxattr(real, xattr)
	var have []aclEntry
	switch {
	case err == nil:
		if have, err = decodeACL(current); err != nil {
			return false, errors.Wrapf(err, errors.ErrExecute, "cannot read ACL of %s", p).
				WithDetail("path", p)
		}
	case stderrors.Is(err, syscall.ENODATA):
	default:
		return false, errors.FromFS(err, "getxattr", p)
	}

	result := baseACL(types.UnixBits(info.Mode()))
	if merge && len(have) > 0 {
		result = append([]aclEntry(nil), have...)
	}

	explicitMask := false
	for _, w := range want {
		en := aclEntry{tag: w.Tag, perms: w.Perms, id: aclUndefinedID}
		switch w.Tag {
		case types.ACLUser:
			if en.id, err = e.aclID(w.Qualifier, true); err != nil {
				return false, err
			}
		case types.ACLGroup:
			if en.id, err = e.aclID(w.Qualifier, false); err != nil {
				return false, err
			}
		case types.ACLMask:
			explicitMask = true
		case types.ACLUserObj, types.ACLGroupObj, types.ACLOther:
		}
		result = setEntry(result, en)
	}
	if mask, needed := maskFor(result); needed && !explicitMask {
		result = setEntry(result, aclEntry{tag: types.ACLMask, perms: mask, id: aclUndefinedID})
	}

	encoded := encodeACL(result)
	if bytes.Equal(encoded, current) {
		return false, nil
	}
	if err := e.fs.Lsetxattr(real, xattr, encoded); err != nil {
		return false, errors.FromFS(err, "setxattr", p)
	}
	return true, nil
}

func (e *Executor) aclID(qualifier string, user bool) (uint32, error) {
	if id, err := strconv.ParseUint(qualifier, 10, 32); err == nil {
		return uint32(id), nil
	}
	var (
		id  int
		err error
	)
	if user {
		id, err = e.lookupUser(types.Owner{Set: true, Name: qualifier})
	} else {
		id, err = e.lookupGroup(types.Owner{Set: true, Name: qualifier})
	}
	if err != nil {
		return 0, err
	}
	return uint32(id), nil
}
