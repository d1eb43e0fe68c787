package matchers

import (
	"io/fs"
	"path"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
)

// walk yields every descendant of dir in pre-order. Symlinks are yielded
// but never descended into.
func (e *expander) walk(dir string, depth int) bool {
	if e.opts.MaxDepth > 0 && depth > e.opts.MaxDepth {
		return true
	}

	entries, err := e.fsys.ReadDir(e.real(dir))
	if err != nil {
		if missing(err) {
			return true
		}
		return e.emit(Hit{}, errors.FromFS(err, "readdir", dir))
	}

	for _, entry := range entries {
		child := path.Join(dir, entry.Name())
		info, err := e.fsys.Lstat(e.real(child))
		if err != nil {
			if missing(err) {
				continue
			}
			if !e.emit(Hit{}, errors.FromFS(err, "lstat", child)) {
				return false
			}
			continue
		}

		if !e.emit(Hit{Path: child, Info: info, Depth: depth}, nil) {
			return false
		}
		if info.Mode()&fs.ModeSymlink == 0 && info.IsDir() {
			if !e.walk(child, depth+1) {
				return false
			}
		}
	}
	return true
}
