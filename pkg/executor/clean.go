package executor

import (
	"context"
	"io/fs"
	"path"
	"time"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/types"
	"github.com/dustin/go-humanize"
	"github.com/gobwas/glob"
)

type exclusionKind int

const (
	notExcluded exclusionKind = iota
	// excludePath keeps the entry itself but still cleans inside it (X).
	excludePath
	// excludeTree keeps the entry and everything below it (x).
	excludeTree
)

type exclusion struct {
	pattern glob.Glob
	tree    bool
}

type exclusions []exclusion

// compileExclusions turns x and X rules into matchers. Invalid patterns are
// dropped with a warning.
func (e *Executor) compileExclusions(ignores []types.Rule) exclusions {
	var out exclusions
	for _, r := range ignores {
		if r.Kind != types.KindIgnore {
			continue
		}
		g, err := glob.Compile(r.Path, '/')
		if err != nil {
			e.logger.Warn().Err(err).Str("pattern", r.Path).Msg("Ignoring invalid exclusion pattern")
			continue
		}
		out = append(out, exclusion{pattern: g, tree: r.Recursive})
	}
	return out
}

func (x exclusions) match(p string) exclusionKind {
	result := notExcluded
	for _, ex := range x {
		if !ex.pattern.Match(p) {
			continue
		}
		if ex.tree {
			return excludeTree
		}
		result = excludePath
	}
	return result
}

// cleaner holds the state of one age cleanup below one directory.
type cleaner struct {
	e          *Executor
	o          *types.Outcome
	age        types.Age
	cutoff     time.Time
	dev        uint64
	exclusions exclusions
}

// clean removes entries older than the rule's age from every matched
// directory. The matched directory itself always survives.
func (e *Executor) clean(ctx context.Context, o *types.Outcome, rule types.Rule, ignores []types.Rule) {
	if !rule.Age.Set {
		return
	}
	switch rule.Kind {
	case types.KindCreateDir, types.KindCreateDirCleanPath, types.KindEmptyDir, types.KindCopy:
	case types.KindCreateFile, types.KindWriteFile, types.KindCreateFifo, types.KindCreateDevice,
		types.KindCreateSymlink, types.KindIgnore, types.KindAdjustMode, types.KindSetXattr,
		types.KindSetAttr, types.KindSetACL, types.KindRemove, types.KindRemoveRecursive:
		return
	}

	now := e.clock.Now()
	excl := e.compileExclusions(ignores)

	e.each(o, rule, false, func(p string, info fs.FileInfo) error {
		if isSymlink(info) || !info.IsDir() {
			return nil
		}
		if excl.match(p) == excludeTree {
			return nil
		}
		ino, err := e.fs.Inspect(e.real(p))
		if err != nil {
			return errors.FromFS(err, "stat", p)
		}

		c := &cleaner{
			e:          e,
			o:          o,
			age:        rule.Age,
			cutoff:     now.Add(-rule.Age.Duration),
			dev:        ino.Dev,
			exclusions: excl,
		}
		return c.dir(ctx, p, 0)
	})

	if o.Removed > 0 {
		e.logger.Info().
			Str("path", rule.Path).
			Int("removed", o.Removed).
			Str("freed", humanize.Bytes(uint64(o.Freed))).
			Msg("Cleaned old entries")
	}
}

// dir cleans below dir, children first. Per-entry failures are recorded on
// the outcome; only cancellation is returned.
func (c *cleaner) dir(ctx context.Context, dir string, depth int) error {
	fsys := c.e.fs
	entries, err := fsys.ReadDir(c.e.real(dir))
	if err != nil {
		if !isMissing(err) {
			c.o.Fail(dir, errors.FromFS(err, "readdir", dir))
		}
		return nil
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, errors.ErrExecute, "run cancelled")
		}

		p := path.Join(dir, entry.Name())
		excluded := c.exclusions.match(p)
		if excluded == excludeTree {
			continue
		}

		real := c.e.real(p)
		ino, err := fsys.Inspect(real)
		if err != nil {
			if !isMissing(err) {
				c.o.Fail(p, errors.FromFS(err, "stat", p))
			}
			continue
		}
		if ino.Dev != c.dev {
			c.e.logger.Trace().Str("path", p).Msg("Not crossing into another filesystem")
			continue
		}

		keep := excluded == excludePath || (depth == 0 && c.age.SecondLevel)

		if entry.IsDir() {
			// Children change the directory's times, so read them first.
			newest := ino.Newest(c.age.Dirs)
			if err := c.dir(ctx, p, depth+1); err != nil {
				return err
			}
			if keep || !newest.Before(c.cutoff) {
				continue
			}
			if err := fsys.Remove(real); err != nil {
				if !notEmpty(err) && !isMissing(err) {
					c.o.Fail(p, errors.FromFS(err, "remove", p))
				}
				continue
			}
			c.removed(p, 0, newest)
			continue
		}

		if keep {
			continue
		}
		if info, err := entry.Info(); err == nil && info.Mode().IsRegular() && info.Mode()&fs.ModeSticky != 0 {
			continue
		}
		newest := ino.Newest(c.age.Files)
		if !newest.Before(c.cutoff) {
			continue
		}
		if err := fsys.Remove(real); err != nil {
			if !isMissing(err) {
				c.o.Fail(p, errors.FromFS(err, "remove", p))
			}
			continue
		}
		c.removed(p, ino.Size, newest)
	}
	return nil
}

func (c *cleaner) removed(p string, size int64, newest time.Time) {
	c.o.Removed++
	c.o.Freed += size
	c.o.Touch(p)
	c.e.logger.Debug().
		Str("path", p).
		Str("age", humanize.RelTime(newest, c.cutoff.Add(c.age.Duration), "old", "from now")).
		Msg("Removed old entry")
}
