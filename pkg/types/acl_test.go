// pkg/types/acl_test.go
// TEST TYPE: Unit Tests
// DEPENDENCIES: None
// PURPOSE: Test ACL text and inode attribute argument parsing

package types_test

import (
	"testing"

	"github.com/arthur-debert/tmpfiles/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseACL(t *testing.T) {
	entries, err := types.ParseACL("u::rwx, user:alice:rw-,g::r-x,d:g:wheel:r,m::rwx,other::---,o:r")
	require.NoError(t, err)
	require.Len(t, entries, 7)

	assert.Equal(t, types.ACLEntry{Tag: types.ACLUserObj, Perms: 7}, entries[0])
	assert.Equal(t, types.ACLEntry{Tag: types.ACLUser, Qualifier: "alice", Perms: types.ACLRead | types.ACLWrite}, entries[1])
	assert.Equal(t, types.ACLEntry{Tag: types.ACLGroupObj, Perms: 5}, entries[2])
	assert.Equal(t, types.ACLEntry{Default: true, Tag: types.ACLGroup, Qualifier: "wheel", Perms: types.ACLRead}, entries[3])
	assert.Equal(t, types.ACLMask, entries[4].Tag)
	assert.Equal(t, types.ACLEntry{Tag: types.ACLOther}, entries[5])
	assert.Equal(t, types.ACLEntry{Tag: types.ACLOther, Perms: types.ACLRead}, entries[6])

	assert.Equal(t, "default:group:wheel:r--", entries[3].String())
	assert.Equal(t, "user::rwx", entries[0].String())
}

func TestParseACL_Errors(t *testing.T) {
	for _, text := range []string{
		"",
		" , ",
		"q:1:rw-",
		"u:alice",
		"u:alice:rwz",
		"m:alice:rw-",
		"o:bob:r--",
		"u:a:b:c:d",
	} {
		t.Run(text, func(t *testing.T) {
			_, err := types.ParseACL(text)
			assert.Error(t, err)
		})
	}
}

func TestParseAttrs(t *testing.T) {
	t.Run("add_is_default", func(t *testing.T) {
		change, err := types.ParseAttrs("iA")
		require.NoError(t, err)
		assert.Equal(t, types.FlagImmutable|types.FlagNoAtime, change.Value)
		assert.Equal(t, change.Value, change.Mask)
		assert.Equal(t, types.FlagImmutable|types.FlagNoAtime|types.FlagExtents, change.Apply(types.FlagExtents))
	})

	t.Run("remove", func(t *testing.T) {
		change, err := types.ParseAttrs("-i")
		require.NoError(t, err)
		assert.Equal(t, types.FlagExtents, change.Apply(types.FlagImmutable|types.FlagExtents))
	})

	t.Run("set_clears_other_known_flags", func(t *testing.T) {
		change, err := types.ParseAttrs("=C")
		require.NoError(t, err)
		assert.Equal(t, types.FlagNoCOW, change.Apply(types.FlagImmutable|types.FlagExtents))
		assert.Equal(t, types.FlagNoCOW|0x100, change.Apply(0x100), "unknown bits are kept")
	})

	t.Run("set_nothing", func(t *testing.T) {
		change, err := types.ParseAttrs("=")
		require.NoError(t, err)
		assert.Zero(t, change.Apply(types.FlagAppend|types.FlagSync))
	})

	for _, bad := range []string{"", "+", "-", "iq"} {
		t.Run("invalid_"+bad, func(t *testing.T) {
			_, err := types.ParseAttrs(bad)
			assert.Error(t, err)
		})
	}
}

func TestFormatAttrs(t *testing.T) {
	assert.Equal(t, "iAe", types.FormatAttrs(types.FlagExtents|types.FlagImmutable|types.FlagNoAtime))
	assert.Equal(t, "", types.FormatAttrs(0x100))
}
