// pkg/filesystem/os_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: Real filesystem (t.TempDir)
// PURPOSE: Test the OS backed types.FS implementation

package filesystem_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/arthur-debert/tmpfiles/pkg/filesystem"
	"github.com/arthur-debert/tmpfiles/pkg/types"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOS(t *testing.T) {
	fsys := filesystem.NewOS()
	require.NotNil(t, fsys)

	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")

	require.NoError(t, fsys.WriteFile(testFile, []byte("hello"), 0644))
	require.NoError(t, fsys.AppendFile(testFile, []byte(" world")))

	content, err := fsys.ReadFile(testFile)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))

	require.NoError(t, fsys.MkdirAll(filepath.Join(tmpDir, "sub", "dir"), 0755))
	entries, err := fsys.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	link := filepath.Join(tmpDir, "link")
	require.NoError(t, fsys.Symlink("test.txt", link))
	dest, err := fsys.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, "test.txt", dest)

	info, err := fsys.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&fs.ModeSymlink)

	require.NoError(t, fsys.Chmod(testFile, 0600))
	info, err = fsys.Stat(testFile)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0600), info.Mode().Perm())

	require.NoError(t, fsys.Remove(link))
	require.NoError(t, fsys.RemoveAll(filepath.Join(tmpDir, "sub")))
	_, err = fsys.Stat(filepath.Join(tmpDir, "sub"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestAppendFileRequiresExisting(t *testing.T) {
	fsys := filesystem.NewOS()
	err := fsys.AppendFile(filepath.Join(t.TempDir(), "missing"), []byte("x"))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestInspect(t *testing.T) {
	fsys := filesystem.NewOS()
	testFile := filepath.Join(t.TempDir(), "aged")
	require.NoError(t, fsys.WriteFile(testFile, []byte("data"), 0644))

	then := time.Now().Add(-72 * time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(testFile, then, then))

	inode, err := fsys.Inspect(testFile)
	require.NoError(t, err)
	assert.True(t, inode.Mtime.Equal(then))
	assert.True(t, inode.Atime.Equal(then))
	assert.Equal(t, int64(4), inode.Size)
	if runtime.GOOS == "linux" {
		assert.Equal(t, os.Getuid(), inode.UID)
	}
}

func TestMkfifo(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("fifo creation is only implemented on linux")
	}
	fsys := filesystem.NewOS()
	fifo := filepath.Join(t.TempDir(), "pipe")

	require.NoError(t, fsys.Mkfifo(fifo, 0600))
	info, err := fsys.Lstat(fifo)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&fs.ModeNamedPipe)
}

func TestMknodRejectsPlainType(t *testing.T) {
	fsys := filesystem.NewOS()
	err := fsys.Mknod(filepath.Join(t.TempDir(), "dev"), 0600, types.DeviceNone, 1, 3)
	assert.Error(t, err)
}

func TestNewConfigFS(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "etc", "tmpfiles.d"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "etc", "tmpfiles.d", "a.conf"), []byte("d /x\n"), 0644))

	cfs := filesystem.NewConfigFS(root)
	content, err := afero.ReadFile(cfs, "/etc/tmpfiles.d/a.conf")
	require.NoError(t, err)
	assert.Equal(t, "d /x\n", string(content))

	_, ok := filesystem.NewConfigFS("/").(*afero.OsFs)
	assert.True(t, ok)

	ro := filesystem.NewReadOnlyConfigFS(root)
	assert.Error(t, afero.WriteFile(ro, "/etc/tmpfiles.d/b.conf", nil, 0644))
}

func TestHostIdentity(t *testing.T) {
	id := filesystem.NewHostIdentity()

	uid, err := id.LookupUser("root")
	if err != nil {
		t.Skipf("no user database available: %v", err)
	}
	assert.Equal(t, 0, uid)

	_, err = id.LookupUser("no-such-user-for-tmpfiles-tests")
	assert.Error(t, err)
}
