// pkg/config/loader_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: temporary config files, environment variables
// PURPOSE: Test the precedence of defaults, config file, environment and overrides

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/tmpfiles/pkg/config"
	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// isolate keeps the host's config file out of a test.
func isolate(t *testing.T) {
	t.Setenv(paths.EnvConfigFile, filepath.Join(t.TempDir(), "missing.toml"))
}

func TestLoadConfiguration_Defaults(t *testing.T) {
	cfg, err := config.LoadConfiguration(config.LoadOptions{SkipFile: true, SkipEnv: true})
	require.NoError(t, err)

	assert.Equal(t, paths.SystemDirs, cfg.Directories.System)
	assert.Empty(t, cfg.Directories.User)
	assert.Equal(t, "/", cfg.Run.Root)
	assert.False(t, cfg.Run.Boot)
	assert.Zero(t, cfg.Run.Timeout)
	assert.Equal(t, config.FormatText, cfg.Output.Format)
	assert.Equal(t, config.ColorAuto, cfg.Output.Color)
	assert.True(t, cfg.Logging.File)
	assert.Empty(t, cfg.Source)
}

func TestLoadConfiguration_File(t *testing.T) {
	isolate(t)
	p := writeConfig(t, `
[run]
boot = true
timeout = "30s"
exclude_prefixes = ["/proc", "/sys"]

[output]
format = "json"

[specifiers]
H = "buildhost"
`)

	cfg, err := config.LoadConfiguration(config.LoadOptions{File: p, SkipEnv: true})
	require.NoError(t, err)

	assert.Equal(t, p, cfg.Source)
	assert.True(t, cfg.Run.Boot)
	assert.Equal(t, 30*time.Second, cfg.Run.Timeout)
	assert.Equal(t, []string{"/proc", "/sys"}, cfg.Run.ExcludePrefixes)
	assert.Equal(t, config.FormatJSON, cfg.Output.Format)
	assert.Equal(t, "buildhost", cfg.Specifiers["H"])
	assert.Equal(t, paths.SystemDirs, cfg.Directories.System, "unset keys keep defaults")
}

func TestLoadConfiguration_FileDiscovery(t *testing.T) {
	t.Run("found_through_env", func(t *testing.T) {
		p := writeConfig(t, "[output]\nformat = \"yaml\"\n")
		t.Setenv(paths.EnvConfigFile, p)

		cfg, err := config.LoadConfiguration(config.LoadOptions{SkipEnv: true})
		require.NoError(t, err)
		assert.Equal(t, p, cfg.Source)
		assert.Equal(t, config.FormatYAML, cfg.Output.Format)
	})

	t.Run("missing_default_is_fine", func(t *testing.T) {
		isolate(t)
		cfg, err := config.LoadConfiguration(config.LoadOptions{SkipEnv: true})
		require.NoError(t, err)
		assert.Empty(t, cfg.Source)
	})

	t.Run("missing_explicit_fails", func(t *testing.T) {
		_, err := config.LoadConfiguration(config.LoadOptions{File: "/nonexistent/tmpfiles.toml"})
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
	})

	t.Run("malformed", func(t *testing.T) {
		p := writeConfig(t, "[output\nformat = \n")
		_, err := config.LoadConfiguration(config.LoadOptions{File: p})
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrConfigParse))
	})
}

func TestLoadConfiguration_Environment(t *testing.T) {
	isolate(t)
	p := writeConfig(t, "[output]\nformat = \"json\"\n")
	t.Setenv("TMPFILES_OUTPUT__FORMAT", "yaml")
	t.Setenv("TMPFILES_RUN__BOOT", "true")
	t.Setenv("TMPFILES_RUN__EXCLUDE_PREFIXES", "/a,/b")
	t.Setenv("TMPFILES_LOGGING__VERBOSITY", "2")

	cfg, err := config.LoadConfiguration(config.LoadOptions{File: p})
	require.NoError(t, err)

	assert.Equal(t, config.FormatYAML, cfg.Output.Format, "environment beats the file")
	assert.True(t, cfg.Run.Boot)
	assert.Equal(t, []string{"/a", "/b"}, cfg.Run.ExcludePrefixes)
	assert.Equal(t, 2, cfg.Logging.Verbosity)
}

func TestLoadConfiguration_Overrides(t *testing.T) {
	isolate(t)
	t.Setenv("TMPFILES_OUTPUT__COLOR", "always")

	cfg, err := config.LoadConfiguration(config.LoadOptions{
		Overrides: map[string]interface{}{
			"output.color": "never",
			"run.root":     "/mnt/image",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, config.ColorNever, cfg.Output.Color)
	assert.Equal(t, "/mnt/image", cfg.Run.Root)
}

func TestLoadConfiguration_Validation(t *testing.T) {
	isolate(t)

	tests := []struct {
		name    string
		content string
		message string
	}{
		{"format", "[output]\nformat = \"xml\"\n", "unknown output format"},
		{"color", "[output]\ncolor = \"sometimes\"\n", "unknown color mode"},
		{"relative_dir", "[directories]\nsystem = [\"etc/tmpfiles.d\"]\n", "must be absolute"},
		{"negative_timeout", "[run]\ntimeout = \"-1s\"\n", "negative run timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadConfiguration(config.LoadOptions{File: writeConfig(t, tt.content), SkipEnv: true})
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrConfigParse))
			assert.True(t, strings.Contains(err.Error(), tt.message), err.Error())
		})
	}
}

func TestConfig_Dirs(t *testing.T) {
	cfg := config.Default()

	system := cfg.Dirs(false)
	assert.Equal(t, paths.SystemDirs, system)
	system[0] = "/changed"
	assert.Equal(t, "/etc/tmpfiles.d", cfg.Directories.System[0])

	user := cfg.Dirs(true)
	require.NotEmpty(t, user)
	for _, d := range user {
		assert.True(t, strings.HasSuffix(d, paths.UserDirName), d)
	}

	cfg.Directories.User = []string{"/srv/user.d"}
	assert.Equal(t, []string{"/srv/user.d"}, cfg.Dirs(true))
}

func TestGlobalConfig(t *testing.T) {
	custom := config.Default()
	custom.Output.Format = config.FormatTOML
	config.Initialize(custom)
	t.Cleanup(func() { config.Initialize(nil) })

	assert.Same(t, custom, config.Get())
	assert.Equal(t, config.FormatTOML, config.GetOutput().Format)
}
