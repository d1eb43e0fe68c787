package executor

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"io/fs"
	"path"
	"syscall"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/filesystem"
	"github.com/arthur-debert/tmpfiles/pkg/logging"
	"github.com/arthur-debert/tmpfiles/pkg/matchers"
	"github.com/arthur-debert/tmpfiles/pkg/types"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// FactoryDir holds the default sources of L and C rules without an argument.
const FactoryDir = "/usr/share/factory"

// Options contains configuration for the executor
type Options struct {
	Env    types.Env
	DryRun bool
	// Logger defaults to the "executor" component logger when nil.
	Logger *zerolog.Logger
}

// Executor applies rules against one filesystem context
type Executor struct {
	root     string
	fs       types.FS
	clock    clockwork.Clock
	identity types.IdentityResolver
	dryRun   bool
	logger   zerolog.Logger
}

// New creates a new executor instance. Missing parts of the environment
// default to the host: the OS filesystem, the real clock and the system
// user database.
func New(opts Options) *Executor {
	logger := logging.GetLogger("executor")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	env := opts.Env
	if env.FS == nil {
		env.FS = filesystem.NewOS()
	}
	if env.Clock == nil {
		env.Clock = clockwork.NewRealClock()
	}
	if env.Identity == nil {
		env.Identity = filesystem.NewHostIdentity()
	}

	return &Executor{
		root:     env.Root,
		fs:       env.FS,
		clock:    env.Clock,
		identity: env.Identity,
		dryRun:   opts.DryRun,
		logger:   logger,
	}
}

// Apply runs rule for one phase. ignores are the x/X rules consulted by age
// cleanup. The returned Outcome is Applied, Skipped or Failed; Apply never
// panics on filesystem errors and never returns an error of its own.
func (e *Executor) Apply(ctx context.Context, rule types.Rule, phase types.RunMode, ignores []types.Rule) types.Outcome {
	o := types.NewOutcome(rule, phase)
	logger := logging.WithSource(e.logger, rule.Source.File, rule.Source.Line).With().
		Str("rule", rule.String()).
		Str("phase", phase.String()).
		Logger()

	if err := ctx.Err(); err != nil {
		o.Fail(rule.Path, errors.Wrap(err, errors.ErrExecute, "run cancelled"))
		return o
	}

	if e.dryRun {
		e.dryRunTargets(&o, rule)
		o.Skip(rule.Path, "dry run")
		logger.Info().Strs("paths", o.Paths).Msg("Dry run - no changes made")
		return o
	}

	switch phase {
	case types.ModeCreate:
		e.create(&o, rule)
	case types.ModeRemove:
		e.remove(&o, rule)
	case types.ModeClean:
		e.clean(ctx, &o, rule, ignores)
	default:
		o.Fail(rule.Path, errors.Newf(errors.ErrInternal, "invalid phase %s", phase))
	}

	if o.Status == types.StatusFailed && rule.NoError {
		o.Status = types.StatusSkipped
		o.Reason = "error ignored: " + o.Reason
	}

	switch o.Status {
	case types.StatusFailed:
		logger.Error().Err(o.Err).Str("path", o.Path).Str("code", string(o.Code)).Msg("Rule failed")
	case types.StatusSkipped:
		logger.Debug().Str("path", o.Path).Str("reason", o.Reason).Msg("Rule skipped")
	case types.StatusApplied:
		if o.Changed {
			logger.Info().Strs("paths", o.Paths).Msg("Rule applied")
		} else {
			logger.Debug().Msg("Nothing to do")
		}
	}
	return o
}

// real maps a configuration path onto the backing filesystem.
func (e *Executor) real(p string) string {
	if e.root == "" || e.root == "/" {
		return p
	}
	return path.Join(e.root, p)
}

// globbed reports kinds that operate on existing entries and therefore
// expand wildcards. Other kinds take their path literally.
func globbed(k types.Kind) bool {
	switch k {
	case types.KindWriteFile, types.KindEmptyDir, types.KindIgnore, types.KindAdjustMode,
		types.KindSetXattr, types.KindSetAttr, types.KindSetACL, types.KindRemove,
		types.KindRemoveRecursive:
		return true
	case types.KindCreateFile, types.KindCreateDir, types.KindCreateDirCleanPath,
		types.KindCreateFifo, types.KindCreateDevice, types.KindCreateSymlink, types.KindCopy:
		return false
	}
	return false
}

// each calls fn for every existing path the rule applies to and returns how
// many there were. Errors from fn are recorded on o and iteration goes on.
func (e *Executor) each(o *types.Outcome, rule types.Rule, recursive bool, fn func(p string, info fs.FileInfo) error) int {
	if !globbed(rule.Kind) || (!recursive && !matchers.HasGlob(rule.Path)) {
		info, err := e.fs.Lstat(e.real(rule.Path))
		if err != nil {
			if !isMissing(err) {
				o.Fail(rule.Path, errors.FromFS(err, "lstat", rule.Path))
			}
			return 0
		}
		if err := fn(rule.Path, info); err != nil {
			o.Fail(rule.Path, err)
		}
		return 1
	}

	count := 0
	opts := matchers.Options{Root: e.root, Recursive: recursive}
	for m, err := range matchers.Match(e.fs, rule.Path, opts) {
		if err != nil {
			o.Fail(rule.Path, err)
			continue
		}
		count++
		if err := fn(m.Path, m.Info); err != nil {
			o.Fail(m.Path, err)
		}
	}
	return count
}

func (e *Executor) dryRunTargets(o *types.Outcome, rule types.Rule) {
	if !globbed(rule.Kind) {
		o.Paths = append(o.Paths, rule.Path)
		return
	}
	for m, err := range matchers.Match(e.fs, rule.Path, matchers.Options{Root: e.root, Recursive: rule.Recursive}) {
		if err == nil {
			o.Paths = append(o.Paths, m.Path)
		}
	}
}

// content returns the bytes a f or w rule writes.
func content(rule types.Rule) ([]byte, error) {
	if !rule.HasArgument {
		return nil, nil
	}
	if !rule.Base64 {
		return []byte(rule.Argument), nil
	}
	data, err := base64.StdEncoding.DecodeString(rule.Argument)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "argument is not valid base64")
	}
	return data, nil
}

func isMissing(err error) bool {
	return stderrors.Is(err, fs.ErrNotExist) || stderrors.Is(err, syscall.ENOTDIR)
}

func isSymlink(info fs.FileInfo) bool {
	return info.Mode()&fs.ModeSymlink != 0
}
