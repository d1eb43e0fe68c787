package core

import (
	"context"
	"time"

	"github.com/arthur-debert/tmpfiles/pkg/filesystem"
	"github.com/arthur-debert/tmpfiles/pkg/layers"
	"github.com/arthur-debert/tmpfiles/pkg/logging"
	"github.com/arthur-debert/tmpfiles/pkg/specifier"
	"github.com/arthur-debert/tmpfiles/pkg/types"
	"github.com/spf13/afero"
)

// LoadOptions contains options for loading the effective configuration
type LoadOptions struct {
	// Dirs lists configuration directories (or files), highest precedence
	// first.
	Dirs []string

	// Root jails configuration reads below a directory. Ignored when FS
	// is set.
	Root string
	FS   afero.Fs

	// User selects per-user directories for specifiers.
	User bool

	// Overrides, Credentials and CredentialsDir feed the specifier
	// resolver.
	Overrides      map[string]string
	Credentials    map[string]string
	CredentialsDir string

	// Specifiers replaces probing the host for specifier values.
	Specifiers *specifier.Context

	// Filter drops rules at load time.
	Filter func(types.Rule) bool
}

// Load builds the effective configuration: it probes the host for
// specifier values, then merges, parses and resolves every layer.
func Load(ctx context.Context, opts LoadOptions) (types.EffectiveConfig, error) {
	logger := logging.GetLogger("core.load")
	logger.Debug().
		Strs("dirs", opts.Dirs).
		Str("root", opts.Root).
		Bool("user", opts.User).
		Msg("Loading configuration")
	defer logging.LogDuration(time.Now(), "load")

	fsys := opts.FS
	if fsys == nil {
		fsys = filesystem.NewReadOnlyConfigFS(opts.Root)
	}

	var sctx specifier.Context
	if opts.Specifiers != nil {
		sctx = *opts.Specifiers
	} else {
		sctx = specifier.Probe(specifier.ProbeOptions{
			FS:             fsys,
			User:           opts.User,
			Overrides:      opts.Overrides,
			Credentials:    opts.Credentials,
			CredentialsDir: opts.CredentialsDir,
		})
	}

	return layers.Load(ctx, layers.Options{
		Dirs:     opts.Dirs,
		FS:       fsys,
		Resolver: specifier.New(sctx),
		Filter:   opts.Filter,
	})
}
