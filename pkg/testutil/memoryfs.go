package testutil

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/arthur-debert/tmpfiles/pkg/types"
	"github.com/jonboulle/clockwork"
)

const maxSymlinkHops = 40

// MemoryFS implements types.FS with in-memory storage. Timestamps come from
// the injected clock, so age based cleanup can be tested deterministically.
type MemoryFS struct {
	mu    sync.RWMutex
	root  *fileNode
	clock clockwork.Clock

	// Owner assigned to new entries
	uid, gid int

	// Error injection
	errorPaths map[string]error

	// Statistics
	readCount  int
	writeCount int
}

// fileNode is a file, directory, symlink or special file in memory
type fileNode struct {
	mode     fs.FileMode
	content  []byte
	linkDest string
	children map[string]*fileNode

	uid, gid int
	atime    time.Time
	mtime    time.Time
	ctime    time.Time
	btime    time.Time

	dev          uint64
	major, minor uint32
	xattrs       map[string][]byte
	flags        uint32
}

func (n *fileNode) isDir() bool  { return n.mode.IsDir() }
func (n *fileNode) isLink() bool { return n.mode&fs.ModeSymlink != 0 }

// Times overrides the timestamps of an entry. Zero values are left alone.
type Times struct {
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
	Btime time.Time
}

// NewMemoryFS creates a new in-memory filesystem whose clock is the real one.
func NewMemoryFS() *MemoryFS {
	return NewMemoryFSWithClock(clockwork.NewRealClock())
}

// NewMemoryFSWithClock creates a new in-memory filesystem using clock for
// every timestamp it records.
func NewMemoryFSWithClock(clock clockwork.Clock) *MemoryFS {
	m := &MemoryFS{
		clock:      clock,
		errorPaths: make(map[string]error),
	}
	m.root = m.newNode(fs.ModeDir|0o755, nil)
	m.root.dev = 1
	return m
}

func (m *MemoryFS) newNode(mode fs.FileMode, parent *fileNode) *fileNode {
	now := m.clock.Now()
	n := &fileNode{
		mode:  mode,
		uid:   m.uid,
		gid:   m.gid,
		atime: now,
		mtime: now,
		ctime: now,
		btime: now,
	}
	if mode.IsDir() {
		n.children = make(map[string]*fileNode)
	}
	if parent != nil {
		n.dev = parent.dev
	}
	return n
}

func pathErr(op, name string, errno syscall.Errno) error {
	return &fs.PathError{Op: op, Path: name, Err: errno}
}

func splitPath(p string) []string {
	p = path.Clean("/" + p)
	if p == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

// lookup walks p from the root. Intermediate symlinks are always followed, the
// last component only when followLast is set. It returns the directory holding
// the entry, the entry name and the entry itself (nil when it does not exist).
func (m *MemoryFS) lookup(op, p string, followLast bool) (*fileNode, string, *fileNode, error) {
	return m.lookupHops(op, p, followLast, 0)
}

func (m *MemoryFS) lookupHops(op, p string, followLast bool, hops int) (*fileNode, string, *fileNode, error) {
	if err, ok := m.errorPaths[path.Clean("/"+p)]; ok {
		return nil, "", nil, err
	}
	parts := splitPath(p)
	if len(parts) == 0 {
		return nil, "/", m.root, nil
	}

	cur := m.root
	curPath := "/"
	for i, part := range parts {
		if !cur.isDir() {
			return nil, "", nil, pathErr(op, p, syscall.ENOTDIR)
		}
		last := i == len(parts)-1
		child := cur.children[part]
		if last && (child == nil || !followLast || !child.isLink()) {
			return cur, part, child, nil
		}
		if child == nil {
			return nil, "", nil, pathErr(op, p, syscall.ENOENT)
		}
		if child.isLink() {
			if hops >= maxSymlinkHops {
				return nil, "", nil, pathErr(op, p, syscall.ELOOP)
			}
			target := child.linkDest
			if !path.IsAbs(target) {
				target = path.Join(curPath, target)
			}
			rest := path.Join(append([]string{target}, parts[i+1:]...)...)
			return m.lookupHops(op, rest, followLast, hops+1)
		}
		cur = child
		curPath = path.Join(curPath, part)
	}
	return nil, "", nil, pathErr(op, p, syscall.ENOENT)
}

// existing resolves p and fails with ENOENT when nothing is there.
func (m *MemoryFS) existing(op, p string, followLast bool) (*fileNode, string, *fileNode, error) {
	dir, name, n, err := m.lookup(op, p, followLast)
	if err != nil {
		return nil, "", nil, err
	}
	if n == nil {
		return nil, "", nil, pathErr(op, p, syscall.ENOENT)
	}
	return dir, name, n, nil
}

func (m *MemoryFS) touchDir(dir *fileNode) {
	now := m.clock.Now()
	dir.mtime = now
	dir.ctime = now
}

// add links a new entry into dir, failing when the name is taken.
func (m *MemoryFS) add(op, p string, followLast bool, mode fs.FileMode) (*fileNode, error) {
	dir, name, n, err := m.lookup(op, p, followLast)
	if err != nil {
		return nil, err
	}
	if n != nil {
		return nil, pathErr(op, p, syscall.EEXIST)
	}
	if dir == nil {
		return nil, pathErr(op, p, syscall.EEXIST)
	}
	node := m.newNode(mode, dir)
	dir.children[name] = node
	m.touchDir(dir)
	return node, nil
}

// Stat returns file info, following symlinks
func (m *MemoryFS) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, base, n, err := m.existing("stat", name, true)
	if err != nil {
		return nil, err
	}
	return &fileInfo{node: n, name: base}, nil
}

// Lstat returns file info without following a final symlink
func (m *MemoryFS) Lstat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, base, n, err := m.existing("lstat", name, false)
	if err != nil {
		return nil, err
	}
	return &fileInfo{node: n, name: base}, nil
}

// ReadFile reads the entire file content
func (m *MemoryFS) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readCount++

	_, _, n, err := m.existing("open", name, true)
	if err != nil {
		return nil, err
	}
	if n.isDir() {
		return nil, pathErr("read", name, syscall.EISDIR)
	}

	content := make([]byte, len(n.content))
	copy(content, n.content)
	return content, nil
}

// WriteFile writes data to a file, creating it if necessary. The mode is
// only used when the file is created.
func (m *MemoryFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeCount++

	dir, base, n, err := m.lookup("open", name, true)
	if err != nil {
		return err
	}
	if n == nil {
		if dir == nil {
			return pathErr("open", name, syscall.EISDIR)
		}
		n = m.newNode(perm&fs.ModePerm, dir)
		dir.children[base] = n
		m.touchDir(dir)
	}
	if n.isDir() {
		return pathErr("open", name, syscall.EISDIR)
	}

	n.content = append([]byte(nil), data...)
	now := m.clock.Now()
	n.mtime = now
	n.ctime = now
	return nil
}

// AppendFile appends data to an existing file
func (m *MemoryFS) AppendFile(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeCount++

	_, _, n, err := m.existing("open", name, true)
	if err != nil {
		return err
	}
	if n.isDir() {
		return pathErr("open", name, syscall.EISDIR)
	}
	n.content = append(n.content, data...)
	now := m.clock.Now()
	n.mtime = now
	n.ctime = now
	return nil
}

// ReadDir reads a directory and returns its entries sorted by name
func (m *MemoryFS) ReadDir(name string) ([]fs.DirEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, _, n, err := m.existing("open", name, true)
	if err != nil {
		return nil, err
	}
	if !n.isDir() {
		return nil, pathErr("readdirent", name, syscall.ENOTDIR)
	}

	entries := make([]fs.DirEntry, 0, len(n.children))
	for childName, child := range n.children {
		entries = append(entries, fs.FileInfoToDirEntry(&fileInfo{node: child, name: childName}))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// Mkdir creates a single directory
func (m *MemoryFS) Mkdir(name string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.add("mkdir", name, false, fs.ModeDir|perm&fs.ModePerm)
	return err
}

// MkdirAll creates a directory and all necessary parents
func (m *MemoryFS) MkdirAll(name string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.mkdirAll(name, perm)
}

func (m *MemoryFS) mkdirAll(name string, perm fs.FileMode) error {
	_, _, n, err := m.lookup("mkdir", name, true)
	if err == nil && n != nil {
		if n.isDir() {
			return nil
		}
		return pathErr("mkdir", name, syscall.ENOTDIR)
	}

	clean := path.Clean("/" + name)
	if parent := path.Dir(clean); parent != clean {
		if err := m.mkdirAll(parent, perm); err != nil {
			return err
		}
	}
	_, err = m.add("mkdir", clean, false, fs.ModeDir|perm&fs.ModePerm)
	return err
}

// Symlink creates a symbolic link
func (m *MemoryFS) Symlink(target, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.add("symlink", link, false, fs.ModeSymlink|0o777)
	if err != nil {
		return err
	}
	n.linkDest = target
	return nil
}

// Readlink returns the destination of a symbolic link
func (m *MemoryFS) Readlink(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, _, n, err := m.existing("readlink", name, false)
	if err != nil {
		return "", err
	}
	if !n.isLink() {
		return "", pathErr("readlink", name, syscall.EINVAL)
	}
	return n.linkDest, nil
}

// Remove removes a file or empty directory
func (m *MemoryFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir, base, n, err := m.existing("remove", name, false)
	if err != nil {
		return err
	}
	if dir == nil {
		return pathErr("remove", name, syscall.EBUSY)
	}
	if n.isDir() && len(n.children) > 0 {
		return pathErr("remove", name, syscall.ENOTEMPTY)
	}
	delete(dir.children, base)
	m.touchDir(dir)
	return nil
}

// RemoveAll removes a path and any children it contains. A missing path is
// not an error.
func (m *MemoryFS) RemoveAll(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir, base, n, err := m.lookup("unlinkat", name, false)
	if err != nil {
		if pe, ok := err.(*fs.PathError); ok && pe.Err == syscall.ENOENT {
			return nil
		}
		return err
	}
	if n == nil {
		return nil
	}
	if dir == nil {
		return pathErr("unlinkat", name, syscall.EBUSY)
	}
	delete(dir.children, base)
	m.touchDir(dir)
	return nil
}

// Chmod changes the permission bits, following symlinks
func (m *MemoryFS) Chmod(name string, mode fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, _, n, err := m.existing("chmod", name, true)
	if err != nil {
		return err
	}
	n.mode = n.mode.Type() | mode&(fs.ModePerm|fs.ModeSetuid|fs.ModeSetgid|fs.ModeSticky)
	n.ctime = m.clock.Now()
	return nil
}

// Lchown changes ownership without following symlinks. -1 keeps a value.
func (m *MemoryFS) Lchown(name string, uid, gid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, _, n, err := m.existing("lchown", name, false)
	if err != nil {
		return err
	}
	if uid >= 0 {
		n.uid = uid
	}
	if gid >= 0 {
		n.gid = gid
	}
	n.ctime = m.clock.Now()
	return nil
}

// Inspect returns the timestamps, device and owner of an entry without
// following a final symlink
func (m *MemoryFS) Inspect(name string) (types.Inode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, _, n, err := m.existing("statx", name, false)
	if err != nil {
		return types.Inode{}, err
	}
	return types.Inode{
		Atime:    n.atime,
		Btime:    n.btime,
		Ctime:    n.ctime,
		Mtime:    n.mtime,
		HasBtime: true,
		Dev:      n.dev,
		UID:      n.uid,
		GID:      n.gid,
		Size:     int64(len(n.content)),
	}, nil
}

// Mkfifo creates a named pipe
func (m *MemoryFS) Mkfifo(name string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, err := m.add("mkfifo", name, false, fs.ModeNamedPipe|perm&fs.ModePerm)
	return err
}

// Mknod creates a character or block device node
func (m *MemoryFS) Mknod(name string, perm fs.FileMode, dev types.DeviceType, major, minor uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mode := fs.ModeDevice | perm&fs.ModePerm
	switch dev {
	case types.DeviceChar:
		mode |= fs.ModeCharDevice
	case types.DeviceBlock:
	default:
		return pathErr("mknod", name, syscall.EINVAL)
	}
	n, err := m.add("mknod", name, false, mode)
	if err != nil {
		return err
	}
	n.major, n.minor = major, minor
	return nil
}

// Lsetxattr sets an extended attribute on the entry itself
func (m *MemoryFS) Lsetxattr(name, attr string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, _, n, err := m.existing("lsetxattr", name, false)
	if err != nil {
		return err
	}
	if n.xattrs == nil {
		n.xattrs = make(map[string][]byte)
	}
	n.xattrs[attr] = append([]byte(nil), value...)
	n.ctime = m.clock.Now()
	return nil
}

// Lgetxattr reads an extended attribute of the entry itself
func (m *MemoryFS) Lgetxattr(name, attr string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, _, n, err := m.existing("lgetxattr", name, false)
	if err != nil {
		return nil, err
	}
	value, ok := n.xattrs[attr]
	if !ok {
		return nil, pathErr("lgetxattr", name, syscall.ENODATA)
	}
	return append([]byte(nil), value...), nil
}

// GetFlags returns the inode flags of a regular file or directory
func (m *MemoryFS) GetFlags(name string) (uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, err := m.flaggable("getflags", name)
	if err != nil {
		return 0, err
	}
	return n.flags, nil
}

// SetFlags replaces the inode flags of a regular file or directory
func (m *MemoryFS) SetFlags(name string, flags uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.flaggable("setflags", name)
	if err != nil {
		return err
	}
	n.flags = flags
	n.ctime = m.clock.Now()
	return nil
}

func (m *MemoryFS) flaggable(op, name string) (*fileNode, error) {
	_, _, n, err := m.existing(op, name, false)
	if err != nil {
		return nil, err
	}
	if n.isLink() {
		return nil, pathErr(op, name, syscall.ELOOP)
	}
	if !n.isDir() && !n.mode.IsRegular() {
		return nil, pathErr(op, name, syscall.ENOTTY)
	}
	return n, nil
}

// SetTimes overrides the timestamps of an entry without following symlinks
func (m *MemoryFS) SetTimes(name string, t Times) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, _, n, err := m.existing("utimensat", name, false)
	if err != nil {
		return err
	}
	if !t.Atime.IsZero() {
		n.atime = t.Atime
	}
	if !t.Mtime.IsZero() {
		n.mtime = t.Mtime
	}
	if !t.Ctime.IsZero() {
		n.ctime = t.Ctime
	}
	if !t.Btime.IsZero() {
		n.btime = t.Btime
	}
	return nil
}

// SetAge backdates every timestamp of an entry to age before the clock's now
func (m *MemoryFS) SetAge(name string, age time.Duration) error {
	then := m.clock.Now().Add(-age)
	return m.SetTimes(name, Times{Atime: then, Mtime: then, Ctime: then, Btime: then})
}

// SetDevice marks an entry as living on another device. New entries below it
// inherit the device, which simulates a mount point.
func (m *MemoryFS) SetDevice(name string, dev uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, _, n, err := m.existing("stat", name, false)
	if err != nil {
		return err
	}
	n.dev = dev
	return nil
}

// DeviceNumbers returns the major and minor numbers of a device node
func (m *MemoryFS) DeviceNumbers(name string) (uint32, uint32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, _, n, err := m.existing("stat", name, false)
	if err != nil {
		return 0, 0, err
	}
	return n.major, n.minor, nil
}

// SetOwner sets the owner recorded for entries created from now on
func (m *MemoryFS) SetOwner(uid, gid int) *MemoryFS {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.uid, m.gid = uid, gid
	return m
}

// WithError configures the filesystem to return an error for a specific path
func (m *MemoryFS) WithError(name string, err error) *MemoryFS {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errorPaths[path.Clean("/"+name)] = err
	return m
}

// Stats returns filesystem operation statistics
func (m *MemoryFS) Stats() (reads, writes int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readCount, m.writeCount
}

// fileInfo implements fs.FileInfo
type fileInfo struct {
	node *fileNode
	name string
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return int64(len(fi.node.content)) }
func (fi *fileInfo) Mode() fs.FileMode  { return fi.node.mode }
func (fi *fileInfo) ModTime() time.Time { return fi.node.mtime }
func (fi *fileInfo) IsDir() bool        { return fi.node.isDir() }
func (fi *fileInfo) Sys() interface{}   { return nil }

var _ types.FS = (*MemoryFS)(nil)
