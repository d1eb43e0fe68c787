package layers

import (
	"context"
	stderrors "errors"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/logging"
	"github.com/arthur-debert/tmpfiles/pkg/specifier"
	"github.com/arthur-debert/tmpfiles/pkg/types"
	"github.com/spf13/afero"
)

// ConfigSuffix is the extension of configuration files.
const ConfigSuffix = ".conf"

// DevNull is the symlink target that masks a configuration file.
const DevNull = "/dev/null"

// Options controls Load.
type Options struct {
	// Dirs lists configuration directories, highest precedence first. An
	// entry may also name a single file.
	Dirs []string
	FS   afero.Fs

	// Resolver expands specifiers in paths and arguments. Without one,
	// rules are kept as written.
	Resolver *specifier.Resolver

	// Filter drops rules it returns false for.
	Filter func(types.Rule) bool
}

// entry is one candidate configuration file found in a layer.
type entry struct {
	name     string
	path     string
	rank     int
	disabled bool
}

// Load discovers, masks, parses and resolves every configuration file.
// Only a directory that exists but cannot be read is fatal; everything
// else ends up in the Diagnostics of the returned config.
func Load(ctx context.Context, opts Options) (types.EffectiveConfig, error) {
	logger := logging.GetLogger("layers")
	done := logging.LogOperationStart(logger, "load")
	defer done()

	fsys := opts.FS
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	var cfg types.EffectiveConfig
	winners := make(map[string]entry)
	for rank, dir := range opts.Dirs {
		cfg.Layers = append(cfg.Layers, types.ConfigLayer{Dir: dir, Rank: rank})

		entries, err := scanLayer(fsys, dir, rank)
		if err != nil {
			return types.EffectiveConfig{}, err
		}
		for _, e := range entries {
			if winner, ok := winners[e.name]; ok {
				cfg.Masked = append(cfg.Masked, types.MaskedFile{Path: e.path, By: winner.path})
				logger.Debug().Str("path", e.path).Str("by", winner.path).Msg("configuration file masked")
				continue
			}
			winners[e.name] = e
		}
	}

	names := make([]string, 0, len(winners))
	for name := range winners {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return types.EffectiveConfig{}, errors.Wrap(err, errors.ErrConfigLoad, "loading cancelled")
		}

		e := winners[name]
		cfg.Files = append(cfg.Files, types.SourceFile{
			Name:     e.name,
			Path:     e.path,
			Layer:    e.rank,
			Disabled: e.disabled,
		})
		if e.disabled {
			logger.Debug().Str("name", name).Str("path", e.path).Msg("configuration file disabled")
			continue
		}

		data, err := afero.ReadFile(fsys, e.path)
		if err != nil {
			cfg.Diagnostics = append(cfg.Diagnostics, types.NewDiagnostic(
				types.Source{File: e.path},
				errors.Wrapf(err, errors.ErrConfigLoad, "cannot read %s", e.path),
			))
			continue
		}
		loadFile(&cfg, e.path, data, opts)
	}

	logger.Info().
		Int("files", len(cfg.Files)).
		Int("rules", len(cfg.Rules)).
		Int("diagnostics", len(cfg.Diagnostics)).
		Msg("configuration loaded")
	return cfg, nil
}

// scanLayer lists the configuration files of one layer. Within a layer a
// "-name.conf" file or a symlink to /dev/null disables name.conf.
func scanLayer(fsys afero.Fs, dir string, rank int) ([]entry, error) {
	info, err := fsys.Stat(dir)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot access %s", dir).
			WithDetail("dir", dir)
	}

	if !info.IsDir() {
		name := path.Base(dir)
		return []entry{{name: strings.TrimPrefix(name, "-"), path: dir, rank: rank, disabled: isMask(fsys, dir, name)}}, nil
	}

	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot read %s", dir).
			WithDetail("dir", dir)
	}

	byName := make(map[string]entry)
	var order []string
	for _, fi := range infos {
		name := fi.Name()
		if !strings.HasSuffix(name, ConfigSuffix) || name == ConfigSuffix || name == "-"+ConfigSuffix {
			continue
		}
		p := path.Join(dir, name)
		if !isRegularOrLink(fsys, p, fi) {
			continue
		}

		key := strings.TrimPrefix(name, "-")
		e := entry{name: key, path: p, rank: rank, disabled: isMask(fsys, p, name)}
		if prev, ok := byName[key]; ok {
			if prev.disabled || !e.disabled {
				continue
			}
		} else {
			order = append(order, key)
		}
		byName[key] = e
	}

	entries := make([]entry, 0, len(order))
	for _, key := range order {
		entries = append(entries, byName[key])
	}
	return entries, nil
}

func isRegularOrLink(fsys afero.Fs, p string, fi fs.FileInfo) bool {
	if fi.Mode().IsRegular() {
		return true
	}
	if fi.Mode()&fs.ModeSymlink == 0 {
		return false
	}
	target, err := fsys.Stat(p)
	if err != nil {
		return false
	}
	return target.Mode().IsRegular() || target.Mode()&fs.ModeCharDevice != 0
}

// isMask reports files that disable their name instead of contributing
// rules.
func isMask(fsys afero.Fs, p, name string) bool {
	if strings.HasPrefix(name, "-") {
		return true
	}
	if reader, ok := fsys.(afero.LinkReader); ok {
		if target, err := reader.ReadlinkIfPossible(p); err == nil && target == DevNull {
			return true
		}
	}
	if info, err := fsys.Stat(p); err == nil && info.Mode()&fs.ModeCharDevice != 0 {
		return true
	}
	return false
}
