package layers

import (
	"path"
	"strings"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/logging"
	"github.com/arthur-debert/tmpfiles/pkg/parser"
	"github.com/arthur-debert/tmpfiles/pkg/specifier"
	"github.com/arthur-debert/tmpfiles/pkg/types"
)

// loadFile parses every line of one configuration file into cfg. Bad lines
// become diagnostics and are skipped.
func loadFile(cfg *types.EffectiveConfig, file string, data []byte, opts Options) {
	logger := logging.GetLogger("layers")

	for i, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		src := types.Source{File: file, Line: i + 1}

		rule, err := parser.ParseLine(line, src)
		if err != nil {
			lineLogger := logging.WithSource(logger, file, i+1)
			lineLogger.Warn().Err(err).Msg("skipping invalid line")
			cfg.Diagnostics = append(cfg.Diagnostics, types.NewDiagnostic(src, err))
			continue
		}

		rule, warnings, err := resolve(rule, opts.Resolver)
		for _, w := range warnings {
			cfg.Diagnostics = append(cfg.Diagnostics, types.Diagnostic{
				Source:   src,
				Severity: types.SeverityWarning,
				Code:     errors.ErrSpecifierUnresolved,
				Message:  w.String(),
			})
		}
		if err != nil {
			lineLogger := logging.WithSource(logger, file, i+1)
			lineLogger.Warn().Err(err).Msg("skipping rule with unresolved specifier")
			cfg.Diagnostics = append(cfg.Diagnostics, types.NewDiagnostic(src, err))
			continue
		}

		if opts.Filter != nil && !opts.Filter(rule) {
			continue
		}
		cfg.Rules = append(cfg.Rules, rule)
	}
}

// resolve expands specifiers and credentials and returns the rule to run.
func resolve(rule types.Rule, resolver *specifier.Resolver) (types.Rule, []specifier.Warning, error) {
	if resolver == nil {
		if rule.Credential {
			return rule, nil, errors.New(errors.ErrCredentialMissing, "credentials are not available").
				WithDetail("credential", rule.Argument)
		}
		return rule, nil, nil
	}

	p, warnings, err := resolver.Resolve(rule.Path)
	if err != nil {
		return rule, warnings, err
	}
	if !path.IsAbs(p) {
		return rule, warnings, errors.Newf(errors.ErrParsePath, "path %q is not absolute after expansion", p).
			WithDetail("field", "path").
			WithDetail("value", p)
	}

	arg := rule.Argument
	switch {
	case rule.Credential:
		if arg, err = resolver.Credential(rule.Argument); err != nil {
			return rule, warnings, err
		}
	case rule.HasArgument && !rule.Base64:
		var argWarnings []specifier.Warning
		arg, argWarnings, err = resolver.Resolve(rule.Argument)
		warnings = append(warnings, argWarnings...)
		if err != nil {
			return rule, warnings, err
		}
	}

	return rule.WithExpansion(path.Clean(p), arg), warnings, nil
}
