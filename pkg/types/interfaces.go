package types

import (
	"io/fs"
	"time"

	"github.com/jonboulle/clockwork"
)

// FS is the filesystem interface the executor and matcher work against.
type FS interface {
	// File operations
	Stat(name string) (fs.FileInfo, error)
	Lstat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	AppendFile(name string, data []byte) error

	// Directory operations
	ReadDir(name string) ([]fs.DirEntry, error)
	Mkdir(path string, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error

	// Symlink operations
	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)

	// Removal
	Remove(name string) error
	RemoveAll(path string) error

	// Metadata
	Chmod(name string, mode fs.FileMode) error
	Lchown(name string, uid, gid int) error
	Inspect(name string) (Inode, error)

	// Special files
	Mkfifo(path string, perm fs.FileMode) error
	Mknod(path string, perm fs.FileMode, dev DeviceType, major, minor uint32) error

	// Extended attributes and inode flags
	Lsetxattr(path, name string, value []byte) error
	Lgetxattr(path, name string) ([]byte, error)
	GetFlags(path string) (uint32, error)
	SetFlags(path string, flags uint32) error
}

// Inode carries the lstat data that fs.FileInfo does not expose portably.
type Inode struct {
	Atime    time.Time
	Btime    time.Time
	Ctime    time.Time
	Mtime    time.Time
	HasBtime bool
	Dev      uint64
	UID      int
	GID      int
	Size     int64
}

// Newest returns the newest of the selected timestamps.
func (i Inode) Newest(sel Timestamp) time.Time {
	var newest time.Time
	pick := func(t time.Time) {
		if t.After(newest) {
			newest = t
		}
	}
	if sel&TimeAtime != 0 {
		pick(i.Atime)
	}
	if sel&TimeBtime != 0 && i.HasBtime {
		pick(i.Btime)
	}
	if sel&TimeCtime != 0 {
		pick(i.Ctime)
	}
	if sel&TimeMtime != 0 {
		pick(i.Mtime)
	}
	return newest
}

// IdentityResolver maps user and group names to numeric ids.
type IdentityResolver interface {
	LookupUser(name string) (int, error)
	LookupGroup(name string) (int, error)
}

// Env is the filesystem context injected into every component that touches
// the live filesystem: where the tree is rooted, how it is accessed, what
// time it is and how names map to ids.
type Env struct {
	Root     string
	FS       FS
	Clock    clockwork.Clock
	Identity IdentityResolver
}
