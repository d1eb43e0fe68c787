// pkg/paths/paths_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: adrg/xdg with environment overrides
// PURPOSE: Test system and user directory lists and config file discovery

package paths_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/tmpfiles/pkg/paths"
	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// xdgEnv sets XDG variables and reloads the xdg package. The reload
// cleanup is registered first so it runs after the variables are restored.
func xdgEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	t.Cleanup(xdg.Reload)
	for k, v := range vars {
		t.Setenv(k, v)
	}
	xdg.Reload()
}

func TestConfigDirs_System(t *testing.T) {
	p := paths.New(false)
	assert.False(t, p.IsUser())
	assert.Equal(t, []string{
		"/etc/tmpfiles.d",
		"/run/tmpfiles.d",
		"/usr/local/lib/tmpfiles.d",
		"/usr/lib/tmpfiles.d",
	}, p.ConfigDirs())

	dirs := p.ConfigDirs()
	dirs[0] = "/changed"
	assert.Equal(t, "/etc/tmpfiles.d", paths.SystemDirs[0], "callers get a copy")
}

func TestConfigDirs_User(t *testing.T) {
	xdgEnv(t, map[string]string{
		"XDG_CONFIG_HOME": "/home/u/.config",
		"XDG_DATA_HOME":   "/home/u/.local/share",
		"XDG_RUNTIME_DIR": "/run/user/1000",
		"XDG_CONFIG_DIRS": "/etc/xdg",
		"XDG_DATA_DIRS":   "/usr/local/share:/usr/share",
	})

	assert.Equal(t, []string{
		"/home/u/.config/user-tmpfiles.d",
		"/run/user/1000/user-tmpfiles.d",
		"/home/u/.local/share/user-tmpfiles.d",
		"/etc/xdg/user-tmpfiles.d",
		"/usr/local/share/user-tmpfiles.d",
		"/usr/share/user-tmpfiles.d",
	}, paths.New(true).ConfigDirs())
}

func TestConfigFile(t *testing.T) {
	t.Run("env_wins", func(t *testing.T) {
		t.Setenv(paths.EnvConfigFile, "/srv/tmpfiles.toml")
		assert.Equal(t, "/srv/tmpfiles.toml", paths.New(false).ConfigFile())
	})

	t.Run("xdg_search", func(t *testing.T) {
		t.Setenv(paths.EnvConfigFile, "")
		home := t.TempDir()
		xdgEnv(t, map[string]string{"XDG_CONFIG_HOME": home, "XDG_CONFIG_DIRS": t.TempDir()})

		file := filepath.Join(home, "tmpfiles", "config.toml")
		require.NoError(t, os.MkdirAll(filepath.Dir(file), 0o755))
		require.NoError(t, os.WriteFile(file, []byte("boot = true\n"), 0o644))

		assert.Equal(t, file, paths.New(false).ConfigFile())
	})

	t.Run("system_fallback", func(t *testing.T) {
		t.Setenv(paths.EnvConfigFile, "")
		xdgEnv(t, map[string]string{"XDG_CONFIG_HOME": t.TempDir(), "XDG_CONFIG_DIRS": t.TempDir()})
		assert.Equal(t, paths.SystemConfigFile, paths.New(false).ConfigFile())
	})
}

func TestLogFile(t *testing.T) {
	xdgEnv(t, map[string]string{"XDG_STATE_HOME": "/home/u/.local/state"})
	assert.Equal(t, "/home/u/.local/state/tmpfiles/tmpfiles.log", paths.New(false).LogFile())
}

func TestExpandHome(t *testing.T) {
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })
	t.Setenv("HOME", "/home/u")

	assert.Equal(t, "/home/u", paths.ExpandHome("~"))
	assert.Equal(t, "/home/u/conf", paths.ExpandHome("~/conf"))
	assert.Equal(t, "/abs", paths.ExpandHome("/abs"))
	assert.Equal(t, "~other/x", paths.ExpandHome("~other/x"))
}
