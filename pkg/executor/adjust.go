package executor

import (
	"bytes"
	"io/fs"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/parser"
	"github.com/arthur-debert/tmpfiles/pkg/types"
)

// adjustDirs reconciles existing directories of an e rule. Anything that is
// not a directory is left alone.
func (e *Executor) adjustDirs(o *types.Outcome, rule types.Rule) {
	n := e.each(o, rule, false, func(p string, info fs.FileInfo) error {
		if !info.IsDir() {
			e.logger.Debug().Str("path", p).Msg("Not a directory, leaving alone")
			return nil
		}
		return e.touchIf(o, p)(e.adjust(rule, p))
	})
	if n == 0 {
		o.Skip(rule.Path, "no such directory")
	}
}

// adjustAll reconciles mode and owner of every match of a z or Z rule.
func (e *Executor) adjustAll(o *types.Outcome, rule types.Rule) {
	n := e.each(o, rule, rule.Recursive, func(p string, _ fs.FileInfo) error {
		return e.touchIf(o, p)(e.adjust(rule, p))
	})
	if n == 0 {
		o.Skip(rule.Path, "no such path")
	}
}

// setXattrs writes the extended attribute of a t or T rule.
func (e *Executor) setXattrs(o *types.Outcome, rule types.Rule) {
	name, value, err := parser.ParseXattr(rule.Argument)
	if err != nil {
		o.Fail(rule.Path, errors.Wrap(err, errors.ErrInvalidInput, "invalid xattr argument"))
		return
	}

	n := e.each(o, rule, rule.Recursive, func(p string, _ fs.FileInfo) error {
		real := e.real(p)
		if current, err := e.fs.Lgetxattr(real, name); err == nil && bytes.Equal(current, []byte(value)) {
			return nil
		}
		if err := e.fs.Lsetxattr(real, name, []byte(value)); err != nil {
			return errors.FromFS(err, "setxattr", p)
		}
		o.Touch(p)
		return nil
	})
	if n == 0 {
		o.Skip(rule.Path, "no such path")
	}
}

// setAttrs changes the inode flags of an h or H rule. Only regular files
// and directories carry flags; other entries are passed over.
func (e *Executor) setAttrs(o *types.Outcome, rule types.Rule) {
	change, err := types.ParseAttrs(rule.Argument)
	if err != nil {
		o.Fail(rule.Path, errors.Wrap(err, errors.ErrInvalidInput, "invalid attribute argument"))
		return
	}

	n := e.each(o, rule, rule.Recursive, func(p string, info fs.FileInfo) error {
		if !info.Mode().IsRegular() && !info.IsDir() {
			return nil
		}
		real := e.real(p)
		flags, err := e.fs.GetFlags(real)
		if err != nil {
			return errors.FromFS(err, "getflags", p)
		}
		want := change.Apply(flags)
		if want == flags {
			return nil
		}
		if err := e.fs.SetFlags(real, want); err != nil {
			return errors.FromFS(err, "setflags", p)
		}
		e.logger.Debug().
			Str("path", p).
			Str("from", types.FormatAttrs(flags)).
			Str("to", types.FormatAttrs(want)).
			Msg("Changed inode flags")
		o.Touch(p)
		return nil
	})
	if n == 0 {
		o.Skip(rule.Path, "no such path")
	}
}

// touchIf records p as changed when an adjustment reports a change.
func (e *Executor) touchIf(o *types.Outcome, p string) func(bool, error) error {
	return func(changed bool, err error) error {
		if changed {
			o.Touch(p)
		}
		return err
	}
}
