package types

import (
	"fmt"
	"strings"
)

// ACLTag is the kind of a POSIX ACL entry.
type ACLTag uint16

// Tag values match the on-disk posix_acl xattr encoding.
const (
	ACLUserObj  ACLTag = 0x01
	ACLUser     ACLTag = 0x02
	ACLGroupObj ACLTag = 0x04
	ACLGroup    ACLTag = 0x08
	ACLMask     ACLTag = 0x10
	ACLOther    ACLTag = 0x20
)

// ACL permission bits
const (
	ACLRead    uint16 = 0x04
	ACLWrite   uint16 = 0x02
	ACLExecute uint16 = 0x01
)

// ACLEntry is one entry of the short text form, e.g. "user:alice:rw-" or
// "d:g::r-x". Qualifier is a name or numeric id for ACLUser/ACLGroup.
type ACLEntry struct {
	Default   bool
	Tag       ACLTag
	Qualifier string
	Perms     uint16
}

func (e ACLEntry) String() string {
	var b strings.Builder
	if e.Default {
		b.WriteString("default:")
	}
	switch e.Tag {
	case ACLUserObj, ACLUser:
		b.WriteString("user:")
	case ACLGroupObj, ACLGroup:
		b.WriteString("group:")
	case ACLMask:
		b.WriteString("mask:")
	case ACLOther:
		b.WriteString("other:")
	}
	b.WriteString(e.Qualifier)
	b.WriteByte(':')
	b.WriteString(FormatACLPerms(e.Perms))
	return b.String()
}

// FormatACLPerms renders permission bits as "rwx" with dashes.
func FormatACLPerms(p uint16) string {
	out := []byte("---")
	if p&ACLRead != 0 {
		out[0] = 'r'
	}
	if p&ACLWrite != 0 {
		out[1] = 'w'
	}
	if p&ACLExecute != 0 {
		out[2] = 'x'
	}
	return string(out)
}

// ParseACL parses a comma separated list of ACL entries in short or long
// text form.
func ParseACL(text string) ([]ACLEntry, error) {
	var entries []ACLEntry
	for _, raw := range strings.Split(text, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		entry, err := parseACLEntry(raw)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("empty ACL")
	}
	return entries, nil
}

func parseACLEntry(raw string) (ACLEntry, error) {
	parts := strings.Split(raw, ":")
	var entry ACLEntry
	if parts[0] == "d" || parts[0] == "default" {
		entry.Default = true
		parts = parts[1:]
	}

	if len(parts) != 3 && !(len(parts) == 2 && isOtherOrMask(parts[0])) {
		return ACLEntry{}, fmt.Errorf("malformed ACL entry %q", raw)
	}

	qualifier := ""
	permsText := parts[len(parts)-1]
	if len(parts) == 3 {
		qualifier = parts[1]
	}

	switch parts[0] {
	case "u", "user":
		entry.Tag = ACLUserObj
		if qualifier != "" {
			entry.Tag = ACLUser
		}
	case "g", "group":
		entry.Tag = ACLGroupObj
		if qualifier != "" {
			entry.Tag = ACLGroup
		}
	case "m", "mask":
		entry.Tag = ACLMask
	case "o", "other":
		entry.Tag = ACLOther
	default:
		return ACLEntry{}, fmt.Errorf("unknown ACL entry type %q", parts[0])
	}
	if (entry.Tag == ACLMask || entry.Tag == ACLOther) && qualifier != "" {
		return ACLEntry{}, fmt.Errorf("ACL entry %q takes no qualifier", raw)
	}
	entry.Qualifier = qualifier

	perms, err := parseACLPerms(permsText)
	if err != nil {
		return ACLEntry{}, fmt.Errorf("ACL entry %q: %w", raw, err)
	}
	entry.Perms = perms
	return entry, nil
}

func isOtherOrMask(tag string) bool {
	switch tag {
	case "o", "other", "m", "mask":
		return true
	}
	return false
}

func parseACLPerms(text string) (uint16, error) {
	var perms uint16
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case 'r':
			perms |= ACLRead
		case 'w':
			perms |= ACLWrite
		case 'x':
			perms |= ACLExecute
		case '-':
		default:
			return 0, fmt.Errorf("invalid permission %q", text[i])
		}
	}
	return perms, nil
}
