package executor

import (
	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/types"
)

// fixup reconciles the mode and ownership of p with the rule. created
// tells whether the entry was just made, which is when KeepExisting parts
// still apply. It reports whether anything changed.
func (e *Executor) fixup(rule types.Rule, p string, created bool) (bool, error) {
	real := e.real(p)
	info, err := e.fs.Lstat(real)
	if err != nil {
		return false, errors.FromFS(err, "lstat", p)
	}

	changed := false
	if !isSymlink(info) && (created || (rule.Mode.IsSet() && !rule.Mode.KeepExisting)) {
		existing := types.UnixBits(info.Mode())
		want := rule.Mode.Apply(existing, !created, rule.DefaultBits())
		if created && !rule.Mode.IsSet() {
			want = rule.DefaultBits()
			if rule.Kind == types.KindCopy {
				want = existing
			}
		}
		if want != existing {
			if err := e.fs.Chmod(real, types.FileMode(want)); err != nil {
				return changed, errors.FromFS(err, "chmod", p)
			}
			changed = true
		}
	}

	uid, gid := -1, -1
	if rule.User.Set && (created || !rule.User.KeepExisting) {
		if uid, err = e.lookupUser(rule.User); err != nil {
			return changed, err
		}
	}
	if rule.Group.Set && (created || !rule.Group.KeepExisting) {
		if gid, err = e.lookupGroup(rule.Group); err != nil {
			return changed, err
		}
	}
	if uid < 0 && gid < 0 {
		return changed, nil
	}

	ino, err := e.fs.Inspect(real)
	if err != nil {
		return changed, errors.FromFS(err, "stat", p)
	}
	if (uid >= 0 && uid != ino.UID) || (gid >= 0 && gid != ino.GID) {
		if err := e.fs.Lchown(real, uid, gid); err != nil {
			return changed, errors.FromFS(err, "lchown", p)
		}
		changed = true
	}
	return changed, nil
}

// adjust is fixup for entries the rule did not create.
func (e *Executor) adjust(rule types.Rule, p string) (bool, error) {
	if !rule.Mode.IsSet() && !rule.User.Set && !rule.Group.Set {
		return false, nil
	}
	return e.fixup(rule, p, false)
}

func (e *Executor) lookupUser(o types.Owner) (int, error) {
	if o.IsID {
		return int(o.ID), nil
	}
	uid, err := e.identity.LookupUser(o.Name)
	if err != nil {
		return -1, errors.Wrapf(err, errors.ErrIdentity, "unknown user %q", o.Name).
			WithDetail("user", o.Name)
	}
	return uid, nil
}

func (e *Executor) lookupGroup(o types.Owner) (int, error) {
	if o.IsID {
		return int(o.ID), nil
	}
	gid, err := e.identity.LookupGroup(o.Name)
	if err != nil {
		return -1, errors.Wrapf(err, errors.ErrIdentity, "unknown group %q", o.Name).
			WithDetail("group", o.Name)
	}
	return gid, nil
}
