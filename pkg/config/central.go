package config

import (
	"time"

	"github.com/arthur-debert/tmpfiles/pkg/paths"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// Color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Directories holds the rule directory lists
type Directories struct {
	System []string `koanf:"system" toml:"system"`
	// User is empty when the XDG defaults apply
	User []string `koanf:"user" toml:"user"`
}

// Run holds defaults for a reconciliation run
type Run struct {
	Root            string        `koanf:"root" toml:"root"`
	Boot            bool          `koanf:"boot" toml:"boot"`
	ExcludePrefixes []string      `koanf:"exclude_prefixes" toml:"exclude_prefixes"`
	Timeout         time.Duration `koanf:"timeout" toml:"timeout"`
}

// Output holds report rendering settings
type Output struct {
	Format string `koanf:"format" toml:"format"`
	Color  string `koanf:"color" toml:"color"`
}

// Credentials holds where "^" rules read credentials from
type Credentials struct {
	Dir string `koanf:"dir" toml:"dir"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Verbosity int  `koanf:"verbosity" toml:"verbosity"`
	File      bool `koanf:"file" toml:"file"`
}

// Config is the main configuration structure
type Config struct {
	Directories Directories       `koanf:"directories"`
	Run         Run               `koanf:"run"`
	Output      Output            `koanf:"output"`
	Credentials Credentials       `koanf:"credentials"`
	Logging     LoggingConfig     `koanf:"logging"`
	Specifiers  map[string]string `koanf:"specifiers"`

	// Source is the file the configuration was read from. Empty when only
	// defaults and the environment applied.
	Source string `koanf:"-"`
}

// Default returns the default configuration
func Default() *Config {
	cfg, err := LoadConfiguration(LoadOptions{SkipFile: true, SkipEnv: true})
	if err != nil {
		// Fallback to a minimal config if the embedded defaults are broken
		return &Config{
			Directories: Directories{System: append([]string(nil), paths.SystemDirs...)},
			Run:         Run{Root: "/"},
			Output:      Output{Format: FormatText, Color: ColorAuto},
			Logging:     LoggingConfig{File: true},
		}
	}
	return cfg
}

// Dirs returns the rule directories for system or user mode
func (c *Config) Dirs(user bool) []string {
	if !user {
		return append([]string(nil), c.Directories.System...)
	}
	if len(c.Directories.User) > 0 {
		return append([]string(nil), c.Directories.User...)
	}
	return paths.New(true).ConfigDirs()
}
