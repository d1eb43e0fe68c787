// Package config loads the settings of the tmpfiles tool itself (not the
// tmpfiles.d rules). Sources are merged with koanf in increasing priority:
// the embedded defaults.toml, the config file (see paths.ConfigFile), the
// TMPFILES_* environment and finally command-line overrides.
package config
