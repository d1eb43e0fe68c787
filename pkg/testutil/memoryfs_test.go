// pkg/testutil/memoryfs_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test MemoryFS implementation

package testutil

import (
	"io/fs"
	"testing"
	"time"

	"github.com/arthur-debert/tmpfiles/pkg/types"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFS_BasicOperations(t *testing.T) {
	mfs := NewMemoryFS()

	t.Run("WriteAndRead", func(t *testing.T) {
		require.NoError(t, mfs.WriteFile("/test.txt", []byte("test content"), 0644))

		read, err := mfs.ReadFile("/test.txt")
		require.NoError(t, err)
		assert.Equal(t, "test content", string(read))

		require.NoError(t, mfs.AppendFile("/test.txt", []byte("!")))
		read, err = mfs.ReadFile("/test.txt")
		require.NoError(t, err)
		assert.Equal(t, "test content!", string(read))
	})

	t.Run("WriteNeedsParent", func(t *testing.T) {
		err := mfs.WriteFile("/missing/file", nil, 0644)
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("MkdirAll", func(t *testing.T) {
		require.NoError(t, mfs.MkdirAll("/path/to/dir", 0755))

		info, err := mfs.Stat("/path/to/dir")
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, fs.FileMode(0755), info.Mode().Perm())
	})

	t.Run("Symlink", func(t *testing.T) {
		require.NoError(t, mfs.WriteFile("/target.txt", []byte("target content"), 0644))
		require.NoError(t, mfs.Symlink("/target.txt", "/link.txt"))

		dest, err := mfs.Readlink("/link.txt")
		require.NoError(t, err)
		assert.Equal(t, "/target.txt", dest)

		content, err := mfs.ReadFile("/link.txt")
		require.NoError(t, err)
		assert.Equal(t, "target content", string(content))

		info, err := mfs.Lstat("/link.txt")
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&fs.ModeSymlink)
	})

	t.Run("IntermediateSymlink", func(t *testing.T) {
		require.NoError(t, mfs.Symlink("path/to", "/short"))
		info, err := mfs.Stat("/short/dir")
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("SymlinkLoop", func(t *testing.T) {
		require.NoError(t, mfs.Symlink("/loop-b", "/loop-a"))
		require.NoError(t, mfs.Symlink("/loop-a", "/loop-b"))
		_, err := mfs.Stat("/loop-a")
		assert.Error(t, err)
	})

	t.Run("RemoveNonEmpty", func(t *testing.T) {
		assert.Error(t, mfs.Remove("/path"))
		require.NoError(t, mfs.RemoveAll("/path"))
		_, err := mfs.Stat("/path")
		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.NoError(t, mfs.RemoveAll("/path"))
	})

	t.Run("ReadDirSorted", func(t *testing.T) {
		require.NoError(t, mfs.MkdirAll("/sorted", 0755))
		for _, name := range []string{"c", "a", "b"} {
			require.NoError(t, mfs.WriteFile("/sorted/"+name, nil, 0644))
		}
		entries, err := mfs.ReadDir("/sorted")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, "a", entries[0].Name())
		assert.Equal(t, "c", entries[2].Name())
	})
}

func TestMemoryFS_SpecialFiles(t *testing.T) {
	mfs := NewMemoryFS()

	require.NoError(t, mfs.Mkfifo("/fifo", 0600))
	info, err := mfs.Lstat("/fifo")
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&fs.ModeNamedPipe)

	require.NoError(t, mfs.Mknod("/null", 0666, types.DeviceChar, 1, 3))
	info, err = mfs.Lstat("/null")
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&fs.ModeCharDevice)
	major, minor, err := mfs.DeviceNumbers("/null")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), major)
	assert.Equal(t, uint32(3), minor)

	_, err = mfs.GetFlags("/fifo")
	assert.Error(t, err)
}

func TestMemoryFS_Metadata(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	mfs := NewMemoryFSWithClock(clock)

	require.NoError(t, mfs.WriteFile("/f", []byte("x"), 0644))
	require.NoError(t, mfs.SetAge("/f", 48*time.Hour))

	inode, err := mfs.Inspect("/f")
	require.NoError(t, err)
	assert.Equal(t, clock.Now().Add(-48*time.Hour), inode.Mtime)
	assert.True(t, inode.HasBtime)

	require.NoError(t, mfs.Lsetxattr("/f", "user.test", []byte("v")))
	value, err := mfs.Lgetxattr("/f", "user.test")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	require.NoError(t, mfs.SetFlags("/f", 0x10))
	flags, err := mfs.GetFlags("/f")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x10), flags)

	require.NoError(t, mfs.Lchown("/f", 1000, -1))
	inode, err = mfs.Inspect("/f")
	require.NoError(t, err)
	assert.Equal(t, 1000, inode.UID)
	assert.Equal(t, 0, inode.GID)

	require.NoError(t, mfs.Chmod("/f", 0600|fs.ModeSetuid))
	info, err := mfs.Stat("/f")
	require.NoError(t, err)
	assert.Equal(t, uint32(0o4600), types.UnixBits(info.Mode()))
}

func TestMemoryFS_ErrorInjection(t *testing.T) {
	mfs := NewMemoryFS()
	mfs.WithError("/denied", fs.ErrPermission)

	err := mfs.WriteFile("/denied", nil, 0644)
	assert.ErrorIs(t, err, fs.ErrPermission)
}
