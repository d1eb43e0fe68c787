//go:build linux

package filesystem

import (
	"io/fs"
	"time"

	"github.com/arthur-debert/tmpfiles/pkg/types"
	"golang.org/x/sys/unix"
)

func (o *osFS) Inspect(name string) (types.Inode, error) {
	var stx unix.Statx_t
	err := unix.Statx(unix.AT_FDCWD, name, unix.AT_SYMLINK_NOFOLLOW,
		unix.STATX_BASIC_STATS|unix.STATX_BTIME, &stx)
	if err == unix.ENOSYS {
		return inspectLstat(name)
	}
	if err != nil {
		return types.Inode{}, &fs.PathError{Op: "statx", Path: name, Err: err}
	}

	inode := types.Inode{
		Atime: statxTime(stx.Atime),
		Ctime: statxTime(stx.Ctime),
		Mtime: statxTime(stx.Mtime),
		Dev:   unix.Mkdev(stx.Dev_major, stx.Dev_minor),
		UID:   int(stx.Uid),
		GID:   int(stx.Gid),
		Size:  int64(stx.Size),
	}
	if stx.Mask&unix.STATX_BTIME != 0 {
		inode.Btime = statxTime(stx.Btime)
		inode.HasBtime = true
	}
	return inode, nil
}

func inspectLstat(name string) (types.Inode, error) {
	var st unix.Stat_t
	if err := unix.Lstat(name, &st); err != nil {
		return types.Inode{}, &fs.PathError{Op: "lstat", Path: name, Err: err}
	}
	return types.Inode{
		Atime: time.Unix(st.Atim.Unix()),
		Ctime: time.Unix(st.Ctim.Unix()),
		Mtime: time.Unix(st.Mtim.Unix()),
		Dev:   uint64(st.Dev),
		UID:   int(st.Uid),
		GID:   int(st.Gid),
		Size:  st.Size,
	}, nil
}

func statxTime(ts unix.StatxTimestamp) time.Time {
	return time.Unix(ts.Sec, int64(ts.Nsec))
}

func (o *osFS) Mkfifo(path string, perm fs.FileMode) error {
	if err := unix.Mkfifo(path, types.UnixBits(perm)); err != nil {
		return &fs.PathError{Op: "mkfifo", Path: path, Err: err}
	}
	return nil
}

func (o *osFS) Mknod(path string, perm fs.FileMode, dev types.DeviceType, major, minor uint32) error {
	mode := types.UnixBits(perm)
	switch dev {
	case types.DeviceChar:
		mode |= unix.S_IFCHR
	case types.DeviceBlock:
		mode |= unix.S_IFBLK
	default:
		return &fs.PathError{Op: "mknod", Path: path, Err: unix.EINVAL}
	}
	if err := unix.Mknod(path, mode, int(unix.Mkdev(major, minor))); err != nil {
		return &fs.PathError{Op: "mknod", Path: path, Err: err}
	}
	return nil
}

func (o *osFS) Lsetxattr(path, name string, value []byte) error {
	if err := unix.Lsetxattr(path, name, value, 0); err != nil {
		return &fs.PathError{Op: "lsetxattr", Path: path, Err: err}
	}
	return nil
}

func (o *osFS) Lgetxattr(path, name string) ([]byte, error) {
	size, err := unix.Lgetxattr(path, name, nil)
	if err != nil {
		return nil, &fs.PathError{Op: "lgetxattr", Path: path, Err: err}
	}
	buf := make([]byte, size)
	n, err := unix.Lgetxattr(path, name, buf)
	if err != nil {
		return nil, &fs.PathError{Op: "lgetxattr", Path: path, Err: err}
	}
	return buf[:n], nil
}

func (o *osFS) GetFlags(path string) (uint32, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, &fs.PathError{Op: "open", Path: path, Err: err}
	}
	defer unix.Close(fd)

	flags, err := unix.IoctlGetUint32(fd, unix.FS_IOC_GETFLAGS)
	if err != nil {
		return 0, &fs.PathError{Op: "getflags", Path: path, Err: err}
	}
	return flags, nil
}

func (o *osFS) SetFlags(path string, flags uint32) error {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return &fs.PathError{Op: "open", Path: path, Err: err}
	}
	defer unix.Close(fd)

	if err := unix.IoctlSetPointerInt(fd, unix.FS_IOC_SETFLAGS, int(flags)); err != nil {
		return &fs.PathError{Op: "setflags", Path: path, Err: err}
	}
	return nil
}
