package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/mitchellh/go-homedir"
)

// Environment variable names
const (
	// EnvConfigFile points at the tool configuration file
	EnvConfigFile = "TMPFILES_CONFIG"

	// EnvHome is the standard home directory variable
	EnvHome = "HOME"
)

// Default directories and files
const (
	// AppName is the directory name used below XDG base directories
	AppName = "tmpfiles"

	// SystemDirName is the name of system configuration directories
	SystemDirName = "tmpfiles.d"

	// UserDirName is the name of per-user configuration directories
	UserDirName = "user-tmpfiles.d"

	// ConfigFileName is the name of the tool configuration file
	ConfigFileName = "config.toml"

	// SystemConfigFile is used when no per-user tool configuration exists
	SystemConfigFile = "/etc/tmpfiles/config.toml"

	// LogFileName is the name of the log file
	LogFileName = "tmpfiles.log"
)

// SystemDirs are the system configuration directories, highest precedence
// first.
var SystemDirs = []string{
	"/etc/tmpfiles.d",
	"/run/tmpfiles.d",
	"/usr/local/lib/tmpfiles.d",
	"/usr/lib/tmpfiles.d",
}

// Paths provides the locations tmpfiles reads from and writes to
type Paths interface {
	// ConfigDirs lists the rule directories, highest precedence first.
	ConfigDirs() []string
	// ConfigFile is the tool configuration file, found or not.
	ConfigFile() string
	StateDir() string
	LogFile() string
	IsUser() bool
}

type paths struct {
	user bool
}

// New returns the paths for system mode, or for the invoking user's
// per-user mode.
func New(user bool) Paths {
	return &paths{user: user}
}

func (p *paths) IsUser() bool {
	return p.user
}

func (p *paths) ConfigDirs() []string {
	if !p.user {
		return append([]string(nil), SystemDirs...)
	}
	return UserDirs()
}

func (p *paths) ConfigFile() string {
	if env := os.Getenv(EnvConfigFile); env != "" {
		return ExpandHome(env)
	}
	if found, err := xdg.SearchConfigFile(filepath.Join(AppName, ConfigFileName)); err == nil {
		return found
	}
	return SystemConfigFile
}

func (p *paths) StateDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

func (p *paths) LogFile() string {
	return filepath.Join(p.StateDir(), LogFileName)
}

// UserDirs lists the per-user rule directories: the user's config,
// runtime and data homes, then the system-wide XDG config and data dirs.
func UserDirs() []string {
	dirs := []string{
		filepath.Join(xdg.ConfigHome, UserDirName),
	}
	if xdg.RuntimeDir != "" {
		dirs = append(dirs, filepath.Join(xdg.RuntimeDir, UserDirName))
	}
	dirs = append(dirs, filepath.Join(xdg.DataHome, UserDirName))
	for _, d := range xdg.ConfigDirs {
		dirs = append(dirs, filepath.Join(d, UserDirName))
	}
	for _, d := range xdg.DataDirs {
		dirs = append(dirs, filepath.Join(d, UserDirName))
	}
	return dedupe(dirs)
}

func dedupe(dirs []string) []string {
	seen := make(map[string]bool, len(dirs))
	out := dirs[:0]
	for _, d := range dirs {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// ExpandHome expands a leading ~ to the home directory. Paths it cannot
// expand are returned as-is.
func ExpandHome(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}
