package config

import (
	stderrors "errors"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/logging"
	"github.com/arthur-debert/tmpfiles/pkg/paths"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides. A double underscore
// separates sections: TMPFILES_OUTPUT__FORMAT=json sets output.format.
const EnvPrefix = "TMPFILES_"

// LoadOptions controls LoadConfiguration
type LoadOptions struct {
	// File is an explicit config file. It must exist. When empty the
	// default location is used if a file exists there.
	File string

	// Overrides are applied last, keyed by dotted path ("run.boot").
	Overrides map[string]interface{}

	SkipFile bool
	SkipEnv  bool
}

// LoadConfiguration merges the embedded defaults, the config file, the
// environment and explicit overrides, in that order.
func LoadConfiguration(opts LoadOptions) (*Config, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	// 1. Embedded defaults
	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load defaults")
	}

	// 2. Config file
	var source string
	if !opts.SkipFile {
		explicit := opts.File != ""
		candidate := opts.File
		if !explicit {
			candidate = paths.New(false).ConfigFile()
		}
		candidate = paths.ExpandHome(candidate)

		if _, err := os.Stat(candidate); err == nil {
			if err := k.Load(file.Provider(candidate), toml.Parser()); err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to load config from %s", candidate).
					WithDetail("path", candidate)
			}
			source = candidate
		} else if explicit || !stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot read config %s", candidate).
				WithDetail("path", candidate)
		}
	}

	// 3. Environment
	if !opts.SkipEnv {
		err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
			key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
			return strings.ReplaceAll(key, "__", ".")
		}), nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load env vars")
		}
	}

	// 4. Explicit overrides
	if len(opts.Overrides) > 0 {
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to apply overrides")
		}
	}

	// 5. Unmarshal
	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}
	cfg.Source = source

	// 6. Validate
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	logger.Debug().
		Str("source", source).
		Str("format", cfg.Output.Format).
		Strs("system_dirs", cfg.Directories.System).
		Msg("Configuration loaded")
	return &cfg, nil
}

func validate(cfg *Config) error {
	formats := []string{FormatText, FormatJSON, FormatYAML, FormatTOML}
	if !slices.Contains(formats, cfg.Output.Format) {
		return errors.Newf(errors.ErrConfigParse, "unknown output format %q", cfg.Output.Format).
			WithDetail("allowed", formats)
	}
	colors := []string{ColorAuto, ColorAlways, ColorNever}
	if !slices.Contains(colors, cfg.Output.Color) {
		return errors.Newf(errors.ErrConfigParse, "unknown color mode %q", cfg.Output.Color).
			WithDetail("allowed", colors)
	}
	if cfg.Run.Timeout < 0 {
		return errors.Newf(errors.ErrConfigParse, "negative run timeout %s", cfg.Run.Timeout)
	}

	for _, list := range [][]string{cfg.Directories.System, cfg.Directories.User, cfg.Run.ExcludePrefixes} {
		for _, p := range list {
			if !path.IsAbs(p) {
				return errors.Newf(errors.ErrConfigParse, "path %q must be absolute", p)
			}
		}
	}
	if cfg.Run.Root == "" {
		cfg.Run.Root = "/"
	}
	return nil
}
