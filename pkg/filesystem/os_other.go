//go:build !linux

package filesystem

import (
	"errors"
	"io/fs"
	"os"

	"github.com/arthur-debert/tmpfiles/pkg/types"
)

func (o *osFS) Inspect(name string) (types.Inode, error) {
	info, err := os.Lstat(name)
	if err != nil {
		return types.Inode{}, err
	}
	mtime := info.ModTime()
	return types.Inode{
		Atime: mtime,
		Ctime: mtime,
		Mtime: mtime,
		UID:   -1,
		GID:   -1,
		Size:  info.Size(),
	}, nil
}

func unsupported(op, path string) error {
	return &fs.PathError{Op: op, Path: path, Err: errors.ErrUnsupported}
}

func (o *osFS) Mkfifo(path string, perm fs.FileMode) error {
	return unsupported("mkfifo", path)
}

func (o *osFS) Mknod(path string, perm fs.FileMode, dev types.DeviceType, major, minor uint32) error {
	return unsupported("mknod", path)
}

func (o *osFS) Lsetxattr(path, name string, value []byte) error {
	return unsupported("lsetxattr", path)
}

func (o *osFS) Lgetxattr(path, name string) ([]byte, error) {
	return nil, unsupported("lgetxattr", path)
}

func (o *osFS) GetFlags(path string) (uint32, error) {
	return 0, unsupported("getflags", path)
}

func (o *osFS) SetFlags(path string, flags uint32) error {
	return unsupported("setflags", path)
}
