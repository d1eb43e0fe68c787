package executor

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/parser"
	"github.com/arthur-debert/tmpfiles/pkg/types"
)

// create handles the create phase of every kind.
func (e *Executor) create(o *types.Outcome, rule types.Rule) {
	switch rule.Kind {
	case types.KindCreateFile, types.KindCreateDir, types.KindCreateDirCleanPath,
		types.KindCreateFifo, types.KindCreateDevice, types.KindCreateSymlink, types.KindCopy:
		e.createEntry(o, rule)
	case types.KindWriteFile:
		e.write(o, rule)
	case types.KindEmptyDir:
		e.adjustDirs(o, rule)
	case types.KindAdjustMode:
		e.adjustAll(o, rule)
	case types.KindSetXattr:
		e.setXattrs(o, rule)
	case types.KindSetAttr:
		e.setAttrs(o, rule)
	case types.KindSetACL:
		e.setACLs(o, rule)
	case types.KindIgnore, types.KindRemove, types.KindRemoveRecursive:
	}
}

// createEntry brings a missing entry into existence, or reconciles the
// mode and owner of an existing one of the right type.
func (e *Executor) createEntry(o *types.Outcome, rule types.Rule) {
	p := rule.Path
	real := e.real(p)

	info, err := e.fs.Lstat(real)
	switch {
	case err == nil:
		mismatch := e.mismatch(rule, p, info)
		if mismatch == "" {
			if rule.Force {
				o.Skip(p, "already exists")
				return
			}
			changed, err := e.fixup(rule, p, false)
			if changed {
				o.Touch(p)
			}
			if err != nil {
				o.Fail(p, err)
			}
			return
		}

		switch {
		case rule.Replace:
			e.logger.Debug().Str("path", p).Str("mismatch", mismatch).Msg("Replacing existing entry")
			if err := e.fs.RemoveAll(real); err != nil {
				o.Fail(p, errors.FromFS(err, "remove", p))
				return
			}
		case rule.Force:
			o.Skip(p, "already exists: "+mismatch)
			return
		default:
			o.Fail(p, errors.Newf(errors.ErrAlreadyExistsMismatch, "%s already exists: %s", p, mismatch).
				WithDetail("path", p))
			return
		}
	case !isMissing(err):
		o.Fail(p, errors.FromFS(err, "lstat", p))
		return
	}

	if rule.Kind == types.KindCopy {
		if _, err := e.fs.Lstat(e.real(copySource(rule))); err != nil {
			if isMissing(err) {
				o.Skip(p, "copy source "+copySource(rule)+" does not exist")
				return
			}
			o.Fail(p, errors.FromFS(err, "lstat", copySource(rule)))
			return
		}
	}

	if err := e.fs.MkdirAll(path.Dir(real), 0o755); err != nil {
		o.Fail(p, errors.FromFS(err, "mkdir", path.Dir(p)))
		return
	}
	if err := e.make(rule, p); err != nil {
		o.Fail(p, err)
		return
	}
	o.Touch(p)

	if _, err := e.fixup(rule, p, true); err != nil {
		o.Fail(p, err)
	}
}

// mismatch describes why an existing entry does not satisfy the rule, or
// returns "" when it does.
func (e *Executor) mismatch(rule types.Rule, p string, info fs.FileInfo) string {
	mode := info.Mode()
	switch rule.Kind {
	case types.KindCreateFile:
		if !mode.IsRegular() {
			return "not a regular file"
		}
	case types.KindCreateDir, types.KindCreateDirCleanPath, types.KindEmptyDir:
		if !mode.IsDir() {
			return "not a directory"
		}
	case types.KindCreateFifo:
		if mode&fs.ModeNamedPipe == 0 {
			return "not a fifo"
		}
	case types.KindCreateDevice:
		if mode&fs.ModeDevice == 0 {
			return "not a device node"
		}
		if isChar := mode&fs.ModeCharDevice != 0; isChar != (rule.Device == types.DeviceChar) {
			return "not a " + rule.Device.String() + " device"
		}
	case types.KindCreateSymlink:
		if mode&fs.ModeSymlink == 0 {
			return "not a symlink"
		}
		target, err := e.fs.Readlink(e.real(p))
		if err != nil {
			return "unreadable symlink"
		}
		if want := symlinkTarget(rule); target != want {
			return fmt.Sprintf("symlink points to %s, not %s", target, want)
		}
	case types.KindCopy, types.KindWriteFile, types.KindIgnore, types.KindAdjustMode,
		types.KindSetXattr, types.KindSetAttr, types.KindSetACL, types.KindRemove,
		types.KindRemoveRecursive:
	}
	return ""
}

// make creates the entry for rule at p. The parent exists.
func (e *Executor) make(rule types.Rule, p string) error {
	real := e.real(p)
	perm := types.FileMode(rule.DefaultBits())

	switch rule.Kind {
	case types.KindCreateFile:
		data, err := content(rule)
		if err != nil {
			return err
		}
		return errors.FromFS(e.fs.WriteFile(real, data, perm), "create", p)
	case types.KindCreateDir, types.KindCreateDirCleanPath, types.KindEmptyDir:
		return errors.FromFS(e.fs.Mkdir(real, perm), "mkdir", p)
	case types.KindCreateFifo:
		return errors.FromFS(e.fs.Mkfifo(real, perm), "mkfifo", p)
	case types.KindCreateDevice:
		major, minor, err := parser.ParseDevice(rule.Argument)
		if err != nil {
			return errors.Wrap(err, errors.ErrInvalidInput, "invalid device argument")
		}
		return errors.FromFS(e.fs.Mknod(real, perm, rule.Device, major, minor), "mknod", p)
	case types.KindCreateSymlink:
		return errors.FromFS(e.fs.Symlink(symlinkTarget(rule), real), "symlink", p)
	case types.KindCopy:
		return e.copyTree(copySource(rule), p)
	case types.KindWriteFile, types.KindIgnore, types.KindAdjustMode, types.KindSetXattr,
		types.KindSetAttr, types.KindSetACL, types.KindRemove, types.KindRemoveRecursive:
	}
	return errors.Newf(errors.ErrInternal, "%s rules do not create entries", rule.Kind)
}

func symlinkTarget(rule types.Rule) string {
	if rule.HasArgument {
		return rule.Argument
	}
	return path.Join(FactoryDir, rule.Path)
}

func copySource(rule types.Rule) string {
	if rule.HasArgument {
		return rule.Argument
	}
	return path.Join(FactoryDir, rule.Path)
}

// write replaces, or with '+' appends to, the content of existing files.
func (e *Executor) write(o *types.Outcome, rule types.Rule) {
	data, err := content(rule)
	if err != nil {
		o.Fail(rule.Path, err)
		return
	}

	n := e.each(o, rule, false, func(p string, _ fs.FileInfo) error {
		real := e.real(p)
		target, err := e.fs.Stat(real)
		if err != nil {
			return errors.FromFS(err, "stat", p)
		}
		if !target.Mode().IsRegular() {
			return errors.Newf(errors.ErrAlreadyExistsMismatch, "%s is not a regular file", p).
				WithDetail("path", p)
		}

		if rule.Force {
			if err := e.fs.AppendFile(real, data); err != nil {
				return errors.FromFS(err, "append", p)
			}
			o.Touch(p)
			return nil
		}

		if current, err := e.fs.ReadFile(real); err == nil && bytes.Equal(current, data) {
			return nil
		}
		if err := e.fs.WriteFile(real, data, target.Mode().Perm()); err != nil {
			return errors.FromFS(err, "write", p)
		}
		o.Touch(p)
		return nil
	})
	if n == 0 {
		o.Skip(rule.Path, "no such file")
	}
}
