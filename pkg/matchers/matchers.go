package matchers

import (
	stderrors "errors"
	"io/fs"
	"iter"
	"path"
	"strings"
	"syscall"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/logging"
	"github.com/arthur-debert/tmpfiles/pkg/types"
	"github.com/gobwas/glob"
)

// Options controls how a pattern is expanded.
type Options struct {
	// Root is prepended to every path before it reaches the filesystem.
	// Yielded paths never include it.
	Root string

	// Recursive also yields every descendant of each match.
	Recursive bool

	// FollowSymlinks descends into symlinks matched by a wildcard segment.
	FollowSymlinks bool

	// MaxDepth limits recursive descent. 0 means unlimited.
	MaxDepth int
}

// Hit is one existing path matched by a pattern.
type Hit struct {
	// Path is the path as the configuration sees it, without Root.
	Path string
	// Info is the lstat result of the path.
	Info fs.FileInfo
	// Depth is 0 for the match itself and grows for descendants.
	Depth int
}

// HasGlob reports whether p contains wildcard characters.
func HasGlob(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// Match expands pattern against the live filesystem. Paths that do not
// exist are simply not yielded. Read errors are yielded with an empty Hit
// and expansion continues with the next candidate.
func Match(fsys types.FS, pattern string, opts Options) iter.Seq2[Hit, error] {
	return func(yield func(Hit, error) bool) {
		logger := logging.GetLogger("matchers")

		if !path.IsAbs(pattern) {
			yield(Hit{}, errors.Newf(errors.ErrInvalidInput, "pattern %q is not absolute", pattern).
				WithDetail("pattern", pattern))
			return
		}

		segments := splitSegments(pattern)
		compiled := make([]glob.Glob, len(segments))
		for i, seg := range segments {
			if !HasGlob(seg) {
				continue
			}
			g, err := glob.Compile(seg)
			if err != nil {
				yield(Hit{}, errors.Wrapf(err, errors.ErrInvalidInput, "invalid pattern %q", pattern).
					WithDetail("pattern", pattern))
				return
			}
			compiled[i] = g
		}

		e := &expander{fsys: fsys, opts: opts, segments: segments, compiled: compiled, yield: yield}
		e.expand("/", 0)
		logger.Trace().Str("pattern", pattern).Int("matches", e.count).Msg("pattern expanded")
	}
}

func splitSegments(pattern string) []string {
	var segments []string
	for _, seg := range strings.Split(path.Clean(pattern), "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return segments
}

type expander struct {
	fsys     types.FS
	opts     Options
	segments []string
	compiled []glob.Glob
	yield    func(Hit, error) bool
	count    int
	stopped  bool
}

func (e *expander) real(p string) string {
	if e.opts.Root == "" || e.opts.Root == "/" {
		return p
	}
	return path.Join(e.opts.Root, p)
}

// expand matches segments[i:] below dir. It returns false once the consumer
// stopped the iteration.
func (e *expander) expand(dir string, i int) bool {
	if i == len(e.segments) {
		info, err := e.fsys.Lstat(e.real(dir))
		if err != nil {
			if missing(err) {
				return true
			}
			return e.emit(Hit{}, errors.FromFS(err, "lstat", dir))
		}
		return e.found(dir, info)
	}

	if e.compiled[i] == nil {
		return e.expand(path.Join(dir, e.segments[i]), i+1)
	}

	entries, err := e.fsys.ReadDir(e.real(dir))
	if err != nil {
		if missing(err) {
			return true
		}
		return e.emit(Hit{}, errors.FromFS(err, "readdir", dir))
	}

	seg := e.segments[i]
	last := i == len(e.segments)-1
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(seg, ".") {
			continue
		}
		if !e.compiled[i].Match(name) {
			continue
		}

		child := path.Join(dir, name)
		if last {
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
			if !e.found(child, info) {
				return false
			}
			continue
		}

		if entry.Type()&fs.ModeSymlink != 0 && !e.opts.FollowSymlinks {
			continue
		}
		if !e.expand(child, i+1) {
			return false
		}
	}
	return true
}

func (e *expander) found(p string, info fs.FileInfo) bool {
	e.count++
	if !e.emit(Hit{Path: p, Info: info}, nil) {
		return false
	}
	if e.opts.Recursive && info.IsDir() {
		return e.walk(p, 1)
	}
	return true
}

func (e *expander) emit(m Hit, err error) bool {
	if e.stopped {
		return false
	}
	if !e.yield(m, err) {
		e.stopped = true
		return false
	}
	return true
}

// missing reports errors that mean the path is simply not there.
func missing(err error) bool {
	return stderrors.Is(err, fs.ErrNotExist) || stderrors.Is(err, syscall.ENOTDIR)
}
