package executor

import (
	"io/fs"
	"path"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/types"
)

// copyTree copies src to dst, both below the root. Directories are copied
// recursively with their permissions. Device nodes and sockets are skipped.
func (e *Executor) copyTree(src, dst string) error {
	info, err := e.fs.Lstat(e.real(src))
	if err != nil {
		return errors.FromFS(err, "lstat", src)
	}
	realDst := e.real(dst)
	bits := types.UnixBits(info.Mode())

	switch mode := info.Mode(); {
	case mode&fs.ModeSymlink != 0:
		target, err := e.fs.Readlink(e.real(src))
		if err != nil {
			return errors.FromFS(err, "readlink", src)
		}
		return errors.FromFS(e.fs.Symlink(target, realDst), "symlink", dst)

	case mode.IsDir():
		if err := e.fs.Mkdir(realDst, types.FileMode(bits)); err != nil {
			return errors.FromFS(err, "mkdir", dst)
		}
		entries, err := e.fs.ReadDir(e.real(src))
		if err != nil {
			return errors.FromFS(err, "readdir", src)
		}
		for _, entry := range entries {
			if err := e.copyTree(path.Join(src, entry.Name()), path.Join(dst, entry.Name())); err != nil {
				return err
			}
		}

	case mode.IsRegular():
		data, err := e.fs.ReadFile(e.real(src))
		if err != nil {
			return errors.FromFS(err, "read", src)
		}
		if err := e.fs.WriteFile(realDst, data, types.FileMode(bits)); err != nil {
			return errors.FromFS(err, "write", dst)
		}

	case mode&fs.ModeNamedPipe != 0:
		if err := e.fs.Mkfifo(realDst, types.FileMode(bits)); err != nil {
			return errors.FromFS(err, "mkfifo", dst)
		}

	default:
		e.logger.Debug().Str("path", src).Str("mode", mode.String()).Msg("Not copying special file")
		return nil
	}

	return errors.FromFS(e.fs.Chmod(realDst, types.FileMode(bits)), "chmod", dst)
}
