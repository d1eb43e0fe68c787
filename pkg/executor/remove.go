package executor

import (
	stderrors "errors"
	"io/fs"
	"path"
	"strings"
	"syscall"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/types"
)

// remove handles the remove phase: r, R and the contents of D directories.
func (e *Executor) remove(o *types.Outcome, rule types.Rule) {
	switch rule.Kind {
	case types.KindRemove:
		e.removePaths(o, rule, false)
	case types.KindRemoveRecursive:
		e.removePaths(o, rule, true)
	case types.KindCreateDirCleanPath:
		e.removeContents(o, rule)
	case types.KindCreateFile, types.KindWriteFile, types.KindCreateDir, types.KindEmptyDir,
		types.KindCreateFifo, types.KindCreateDevice, types.KindCreateSymlink, types.KindCopy,
		types.KindIgnore, types.KindAdjustMode, types.KindSetXattr, types.KindSetAttr,
		types.KindSetACL:
	}
}

// removePaths deletes every match. Without recursive, directories that are
// not empty are kept. The outcome is Skipped only when nothing was removed;
// otherwise the kept directories are noted in the reason.
func (e *Executor) removePaths(o *types.Outcome, rule types.Rule, recursive bool) {
	var kept []string
	e.each(o, rule, false, func(p string, _ fs.FileInfo) error {
		if p == "/" {
			return errors.New(errors.ErrInvalidInput, "refusing to remove /").WithDetail("path", p)
		}
		real := e.real(p)

		if recursive {
			if err := e.fs.RemoveAll(real); err != nil {
				return errors.FromFS(err, "remove", p)
			}
		} else if err := e.fs.Remove(real); err != nil {
			if notEmpty(err) {
				kept = append(kept, p)
				return nil
			}
			if isMissing(err) {
				return nil
			}
			return errors.FromFS(err, "remove", p)
		}
		o.Removed++
		o.Touch(p)
		return nil
	})

	if len(kept) == 0 || o.Status == types.StatusFailed {
		return
	}
	if !o.Changed {
		o.Skip(kept[0], "directory not empty")
		return
	}
	o.Reason = "kept non-empty: " + strings.Join(kept, ", ")
}

// removeContents empties the directory of a D rule but keeps it.
func (e *Executor) removeContents(o *types.Outcome, rule types.Rule) {
	p := rule.Path
	real := e.real(p)

	info, err := e.fs.Lstat(real)
	if err != nil {
		if !isMissing(err) {
			o.Fail(p, errors.FromFS(err, "lstat", p))
		}
		return
	}
	if !info.IsDir() {
		o.Skip(p, "not a directory")
		return
	}

	entries, err := e.fs.ReadDir(real)
	if err != nil {
		o.Fail(p, errors.FromFS(err, "readdir", p))
		return
	}
	for _, entry := range entries {
		child := path.Join(p, entry.Name())
		if err := e.fs.RemoveAll(e.real(child)); err != nil {
			o.Fail(child, errors.FromFS(err, "remove", child))
			continue
		}
		o.Removed++
		o.Touch(child)
	}
}

func notEmpty(err error) bool {
	return stderrors.Is(err, syscall.ENOTEMPTY) || stderrors.Is(err, syscall.EEXIST)
}
