package core

import (
	"context"
	"iter"
	"path"
	"strings"

	"github.com/arthur-debert/tmpfiles/pkg/executor"
	"github.com/arthur-debert/tmpfiles/pkg/logging"
	"github.com/arthur-debert/tmpfiles/pkg/types"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Options contains options for a reconciliation run
type Options struct {
	Env    types.Env
	DryRun bool

	// Boot enables rules marked with '!'.
	Boot bool

	// Prefixes keeps only rules whose path is below one of them;
	// ExcludePrefixes drops rules below any of them.
	Prefixes        []string
	ExcludePrefixes []string

	// Logger defaults to the "core.reconcile" component logger when nil.
	Logger *zerolog.Logger
}

// Stream applies the configuration and yields one outcome per applied
// rule and phase. Phases run remove, create, clean; within a phase rules
// run in configuration order. The stream ends early when ctx is done or
// the consumer stops.
func Stream(ctx context.Context, cfg types.EffectiveConfig, mode types.RunMode, opts Options) iter.Seq[types.Outcome] {
	return func(yield func(types.Outcome) bool) {
		logger := opts.logger()

		ex := executor.New(executor.Options{
			Env:    opts.Env,
			DryRun: opts.DryRun,
			Logger: &logger,
		})
		ignores := exclusions(cfg.Rules)

		for _, phase := range types.Phases {
			if !mode.Has(phase) {
				continue
			}
			logger.Debug().Stringer("phase", phase).Msg("Starting phase")

			for _, rule := range cfg.Rules {
				if ctx.Err() != nil {
					logger.Warn().Stringer("phase", phase).Msg("Run cancelled")
					return
				}
				if !Eligible(rule, phase) || !opts.selects(rule) {
					continue
				}
				if !yield(ex.Apply(ctx, rule, phase, ignores)) {
					return
				}
			}
		}
	}
}

// Reconcile applies the configuration in the given mode and collects a
// report. Individual failures never stop the run.
func Reconcile(ctx context.Context, cfg types.EffectiveConfig, mode types.RunMode, opts Options) types.RunReport {
	logger := opts.logger()
	opts.Logger = &logger
	done := logging.LogOperationStart(logger, "reconcile")
	defer done()

	clock := opts.Env.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	report := types.RunReport{
		Mode:        mode,
		Boot:        opts.Boot,
		DryRun:      opts.DryRun,
		Started:     clock.Now(),
		Diagnostics: cfg.Diagnostics,
	}

	for o := range Stream(ctx, cfg, mode, opts) {
		report.Add(o)
	}
	report.Cancelled = ctx.Err() != nil
	report.Finished = clock.Now()

	logger.Info().
		Stringer("mode", mode).
		Int("applied", report.Summary.Applied).
		Int("changed", report.Summary.Changed).
		Int("skipped", report.Summary.Skipped).
		Int("failed", report.Summary.Failed).
		Int("diagnostics", len(report.Diagnostics)).
		Bool("cancelled", report.Cancelled).
		Msg("Reconciliation finished")
	return report
}

// exclusions returns the x and X rules. They apply to every clean
// regardless of boot or prefix selection.
func exclusions(rules []types.Rule) []types.Rule {
	var out []types.Rule
	for _, r := range rules {
		if r.Kind == types.KindIgnore {
			out = append(out, r)
		}
	}
	return out
}

func (o Options) logger() zerolog.Logger {
	if o.Logger != nil {
		return *o.Logger
	}
	return logging.GetLogger("core.reconcile")
}

func (o Options) selects(rule types.Rule) bool {
	if rule.Boot && !o.Boot {
		return false
	}
	if len(o.Prefixes) > 0 && !underAny(rule.Path, o.Prefixes) {
		return false
	}
	return !underAny(rule.Path, o.ExcludePrefixes)
}

func underAny(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		prefix = path.Clean(prefix)
		if prefix == "/" || p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}
