// pkg/specifier/specifier_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: afero MemMapFs
// PURPOSE: Test specifier expansion, overrides, warnings and credentials

package specifier_test

import (
	"testing"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/specifier"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() specifier.Context {
	return specifier.Context{
		Hostname:      "build01.example.org",
		MachineID:     "0123456789abcdef0123456789abcdef",
		BootID:        "fedcba9876543210fedcba9876543210",
		Arch:          "x86-64",
		KernelRelease: "6.1.0",
		OSRelease: map[string]string{
			"ID":         "debian",
			"VERSION_ID": "12",
		},
		UserName:   "alice",
		UID:        1000,
		GroupName:  "staff",
		GID:        50,
		Home:       "/home/alice",
		HasUser:    true,
		CacheDir:   "/var/cache",
		LogDir:     "/var/log",
		StateDir:   "/var/lib",
		RuntimeDir: "/run",
		TempDir:    "/tmp",
		VarTempDir: "/var/tmp",
	}
}

func TestResolve(t *testing.T) {
	r := specifier.New(testContext())

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no_specifiers", "/var/lib/app", "/var/lib/app"},
		{"percent_escape", "/tmp/100%%", "/tmp/100%"},
		{"machine_id", "/var/log/journal/%m", "/var/log/journal/0123456789abcdef0123456789abcdef"},
		{"boot_id", "/run/boot-%b", "/run/boot-fedcba9876543210fedcba9876543210"},
		{"host_and_short_host", "%H:%l", "build01.example.org:build01"},
		{"user_identity", "/home/%u/%U/%g/%G", "/home/alice/1000/staff/50"},
		{"home", "%h/.cache", "/home/alice/.cache"},
		{"dirs", "%C %L %S %t %T %V", "/var/cache /var/log /var/lib /run /tmp /var/tmp"},
		{"os_release", "%o-%w", "debian-12"},
		{"arch_kernel", "%a/%v", "x86-64/6.1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, warnings, err := r.Resolve(tt.input)
			require.NoError(t, err)
			assert.Empty(t, warnings)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveUnknownKept(t *testing.T) {
	r := specifier.New(testContext())

	got, warnings, err := r.Resolve("/tmp/%y/%Z")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/%y/%Z", got)
	require.Len(t, warnings, 2)
	assert.Equal(t, "%y", warnings[0].Token)
	assert.Equal(t, "%Z", warnings[1].Token)
}

func TestResolveTrailingPercent(t *testing.T) {
	r := specifier.New(testContext())

	got, warnings, err := r.Resolve("/tmp/x%")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x%", got)
	assert.Len(t, warnings, 1)
}

func TestResolveUnresolved(t *testing.T) {
	t.Run("no_user", func(t *testing.T) {
		ctx := testContext()
		ctx.HasUser = false
		_, _, err := specifier.New(ctx).Resolve("/home/%u")
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrSpecifierUnresolved))
		assert.Equal(t, "%u", errors.GetErrorDetails(err)["specifier"])
	})

	t.Run("no_machine_id", func(t *testing.T) {
		ctx := testContext()
		ctx.MachineID = ""
		_, _, err := specifier.New(ctx).Resolve("/var/log/journal/%m")
		assert.True(t, errors.IsErrorCode(err, errors.ErrSpecifierUnresolved))
	})

	t.Run("override_wins", func(t *testing.T) {
		ctx := testContext()
		ctx.HasUser = false
		ctx.MachineID = ""
		ctx.Overrides = map[string]string{"u": "bob", "m": "cafe"}
		got, _, err := specifier.New(ctx).Resolve("/home/%u/%m")
		require.NoError(t, err)
		assert.Equal(t, "/home/bob/cafe", got)
	})

	t.Run("override_known_value", func(t *testing.T) {
		ctx := testContext()
		ctx.Overrides = map[string]string{"H": "override.local"}
		got, _, err := specifier.New(ctx).Resolve("%H")
		require.NoError(t, err)
		assert.Equal(t, "override.local", got)
	})
}

func TestCredential(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/run/credentials/tmpfiles/motd", []byte("hello\n"), 0600))

	ctx := testContext()
	ctx.Credentials = map[string]string{"inline": "value"}
	ctx.CredentialsDir = "/run/credentials/tmpfiles"
	ctx.CredentialsFS = fsys
	r := specifier.New(ctx)

	got, err := r.Credential("inline")
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	got, err = r.Credential("motd")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", got)

	_, err = r.Credential("missing")
	assert.True(t, errors.IsErrorCode(err, errors.ErrCredentialMissing))

	_, err = r.Credential("../escape")
	assert.True(t, errors.IsErrorCode(err, errors.ErrCredentialMissing))
}

func TestParseOSRelease(t *testing.T) {
	data := []byte(`# comment
NAME="Debian GNU/Linux"
ID=debian
VERSION_ID='12'
BROKEN
`)
	got := specifier.ParseOSRelease(data)
	assert.Equal(t, "Debian GNU/Linux", got["NAME"])
	assert.Equal(t, "debian", got["ID"])
	assert.Equal(t, "12", got["VERSION_ID"])
	assert.NotContains(t, got, "BROKEN")
}

func TestProbe(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, specifier.MachineIDPath, []byte("abc123\n"), 0444))
	require.NoError(t, afero.WriteFile(fsys, specifier.OSReleaseFallback, []byte("ID=arch\n"), 0444))

	ctx := specifier.Probe(specifier.ProbeOptions{FS: fsys})
	assert.Equal(t, "abc123", ctx.MachineID)
	assert.Equal(t, "arch", ctx.OSRelease["ID"])
	assert.Equal(t, specifier.DefaultSystemRun, ctx.RuntimeDir)
	assert.Equal(t, specifier.DefaultSystemState, ctx.StateDir)
	assert.Empty(t, ctx.BootID)
}
