// pkg/core/reconcile_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: testutil MemoryFS, afero MemMapFs for configuration
// PURPOSE: Test loading and reconciling whole configurations end to end

package core_test

import (
	"bytes"
	"context"
	"io"
	"syscall"
	"testing"
	"time"

	"github.com/arthur-debert/tmpfiles/pkg/core"
	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/logging"
	"github.com/arthur-debert/tmpfiles/pkg/specifier"
	"github.com/arthur-debert/tmpfiles/pkg/testutil"
	"github.com/arthur-debert/tmpfiles/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dirs = []string{"/etc/tmpfiles.d", "/run/tmpfiles.d", "/usr/lib/tmpfiles.d"}

func load(t *testing.T, env *testutil.TestEnvironment, files map[string]string) types.EffectiveConfig {
	t.Helper()
	for p, content := range files {
		env.WriteConfig(p, content)
	}
	cfg, err := core.Load(context.Background(), core.LoadOptions{
		Dirs:       dirs,
		FS:         env.ConfigFS,
		Specifiers: &specifier.Context{Hostname: "box", MachineID: "abcd"},
	})
	require.NoError(t, err)
	return cfg
}

func run(env *testutil.TestEnvironment, cfg types.EffectiveConfig, mode types.RunMode, opts core.Options) types.RunReport {
	opts.Env = env.Env()
	return core.Reconcile(context.Background(), cfg, mode, opts)
}

func exists(env *testutil.TestEnvironment, p string) bool {
	_, err := env.FS.Lstat(env.Path(p))
	return err == nil
}

func TestReconcile_Logging(t *testing.T) {
	t.Cleanup(func() { logging.SetupWriter(io.Discard, 0) })

	t.Run("default_component_logger", func(t *testing.T) {
		var buf bytes.Buffer
		logging.SetupWriter(&buf, 2)

		env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
		cfg := load(t, env, map[string]string{"/etc/tmpfiles.d/app.conf": "d /run/app\n"})
		report := run(env, cfg, types.ModeCreate, core.Options{})
		require.Equal(t, 1, report.Summary.Changed)

		out := buf.String()
		assert.Contains(t, out, `"component":"core.reconcile"`)
		assert.Contains(t, out, "Rule applied")
		assert.Contains(t, out, "Reconciliation finished")
		assert.Contains(t, out, `"operation":"load"`)
	})

	t.Run("caller_logger", func(t *testing.T) {
		var global, own bytes.Buffer
		logging.SetupWriter(&global, 1)
		logger := zerolog.New(&own)

		env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
		cfg := load(t, env, map[string]string{"/etc/tmpfiles.d/app.conf": "d /run/app\n"})
		run(env, cfg, types.ModeCreate, core.Options{Logger: &logger})

		assert.Contains(t, own.String(), "Reconciliation finished")
		assert.NotContains(t, global.String(), "Reconciliation finished")
	})
}

func TestReconcile_CreateIsIdempotent(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	cfg := load(t, env, map[string]string{
		"/usr/lib/tmpfiles.d/app.conf": "d /run/app 0750\n" +
			"f /run/app/file 0640 - - - hello\n" +
			"L /run/link - - - - /run/app/file\n",
	})

	first := run(env, cfg, types.ModeCreate, core.Options{})
	assert.Equal(t, types.Summary{Applied: 3, Changed: 3}, first.Summary)

	second := run(env, cfg, types.ModeCreate, core.Options{})
	assert.Equal(t, types.Summary{Applied: 3}, second.Summary)
	for _, o := range second.Outcomes {
		assert.False(t, o.Changed, o.Line)
	}

	data, err := env.FS.ReadFile("/run/app/file")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestReconcile_MaskedFileContributesNothing(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	cfg := load(t, env, map[string]string{
		"/usr/lib/tmpfiles.d/app.conf":  "d /low\n",
		"/etc/tmpfiles.d/app.conf":      "d /high\n",
		"/usr/lib/tmpfiles.d/gone.conf": "d /gone\n",
		"/etc/tmpfiles.d/-gone.conf":    "",
	})

	report := run(env, cfg, types.ModeCreate, core.Options{})
	assert.Equal(t, 1, report.Summary.Applied)
	assert.True(t, exists(env, "/high"))
	assert.False(t, exists(env, "/low"))
	assert.False(t, exists(env, "/gone"))
}

func TestReconcile_AgeCleanup(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	env.WithFileTree("/var/tmp/app", testutil.FileTree{"old": "x", "new": "x", "keep-old": "x"})
	require.NoError(t, env.Memory.SetAge("/var/tmp/app/old", 10*24*time.Hour))
	require.NoError(t, env.Memory.SetAge("/var/tmp/app/keep-old", 10*24*time.Hour))
	require.NoError(t, env.Memory.SetAge("/var/tmp/app/new", 24*time.Hour))

	cfg := load(t, env, map[string]string{
		"/usr/lib/tmpfiles.d/app.conf": "d /var/tmp/app - - - 5d\nx /var/tmp/app/keep-*\n",
	})

	report := run(env, cfg, types.ModeCreate|types.ModeClean, core.Options{})
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, types.ModeCreate, report.Outcomes[0].Phase)
	assert.False(t, report.Outcomes[0].Changed)
	assert.Equal(t, types.ModeClean, report.Outcomes[1].Phase)
	assert.Equal(t, 1, report.Outcomes[1].Removed)

	assert.False(t, exists(env, "/var/tmp/app/old"))
	assert.True(t, exists(env, "/var/tmp/app/new"))
	assert.True(t, exists(env, "/var/tmp/app/keep-old"))
}

func TestReconcile_CleanNeedsAge(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	cfg := load(t, env, map[string]string{
		"/usr/lib/tmpfiles.d/app.conf": "d /run/app\nf /run/file - - - 1d\n",
	})

	report := run(env, cfg, types.ModeClean, core.Options{})
	assert.Empty(t, report.Outcomes, "d without age and f are not cleaned")
}

func TestReconcile_GlobExpandsOncePerMatch(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	env.WithFileTree("/tmp", testutil.FileTree{
		"app-1": testutil.FileTree{"cache": testutil.FileTree{}},
		"app-2": testutil.FileTree{"cache": testutil.FileTree{}},
		"other": testutil.FileTree{"cache": testutil.FileTree{}},
	})
	cfg := load(t, env, map[string]string{
		"/usr/lib/tmpfiles.d/app.conf": "z /tmp/app-*/cache 0700\n",
	})

	report := run(env, cfg, types.ModeCreate, core.Options{})
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, []string{"/tmp/app-1/cache", "/tmp/app-2/cache"}, report.Outcomes[0].Paths)
}

func TestReconcile_MalformedLineIsDiagnostic(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	cfg := load(t, env, map[string]string{
		"/usr/lib/tmpfiles.d/app.conf": "Z\nd /ok\n",
	})

	report := run(env, cfg, types.ModeCreate, core.Options{})
	assert.True(t, exists(env, "/ok"))
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, errors.ErrParseFieldCount, report.Diagnostics[0].Code)
	assert.Equal(t, 1, report.Diagnostics[0].Source.Line)
	assert.True(t, report.HasDiagnostics())
	assert.False(t, report.HasFailures())
}

func TestReconcile_Selection(t *testing.T) {
	files := map[string]string{
		"/usr/lib/tmpfiles.d/app.conf": "d /run/a\nd /runner\nd /var/b\nd! /var/boot\n",
	}

	tests := []struct {
		name    string
		opts    core.Options
		present []string
		absent  []string
	}{
		{
			name:    "default_skips_boot_rules",
			present: []string{"/run/a", "/runner", "/var/b"},
			absent:  []string{"/var/boot"},
		},
		{
			name:    "boot",
			opts:    core.Options{Boot: true},
			present: []string{"/run/a", "/var/boot"},
		},
		{
			name:    "prefix",
			opts:    core.Options{Prefixes: []string{"/run"}},
			present: []string{"/run/a"},
			absent:  []string{"/runner", "/var/b"},
		},
		{
			name:    "exclude_prefix",
			opts:    core.Options{ExcludePrefixes: []string{"/run/"}},
			present: []string{"/runner", "/var/b"},
			absent:  []string{"/run/a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
			cfg := load(t, env, files)
			run(env, cfg, types.ModeCreate, tt.opts)
			for _, p := range tt.present {
				assert.True(t, exists(env, p), p)
			}
			for _, p := range tt.absent {
				assert.False(t, exists(env, p), p)
			}
		})
	}
}

func TestReconcile_PhaseOrder(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	env.WithFileTree("/tmp/stale", testutil.FileTree{"junk": "x"})
	env.WithFileTree("/tmp/cache", testutil.FileTree{"a": "x", "b": testutil.FileTree{"c": "x"}})
	cfg := load(t, env, map[string]string{
		"/usr/lib/tmpfiles.d/app.conf": "d /tmp/stale\nR /tmp/stale\nD /tmp/cache\n",
	})

	report := run(env, cfg, types.ModeCreate|types.ModeRemove, core.Options{})
	require.Len(t, report.Outcomes, 4)
	assert.Equal(t, types.ModeRemove, report.Outcomes[0].Phase)
	assert.Equal(t, "R /tmp/stale", report.Outcomes[0].Line)
	assert.Equal(t, types.ModeRemove, report.Outcomes[1].Phase)
	assert.Equal(t, types.ModeCreate, report.Outcomes[2].Phase)
	assert.Equal(t, types.ModeCreate, report.Outcomes[3].Phase)

	assert.True(t, exists(env, "/tmp/stale"))
	assert.False(t, exists(env, "/tmp/stale/junk"))
	assert.True(t, exists(env, "/tmp/cache"))
	assert.False(t, exists(env, "/tmp/cache/a"))
	assert.False(t, exists(env, "/tmp/cache/b"))
}

func TestReconcile_FailureDoesNotStopRun(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	env.Memory.WithError("/denied", syscall.EACCES)
	cfg := load(t, env, map[string]string{
		"/usr/lib/tmpfiles.d/app.conf": "d /denied\nd /fine\nd- /denied\n",
	})

	report := run(env, cfg, types.ModeCreate, core.Options{})
	assert.Equal(t, types.Summary{Applied: 1, Changed: 1, Skipped: 1, Failed: 1}, report.Summary)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "/denied", report.Failures[0].Path)
	assert.Equal(t, string(errors.ErrPermission), report.Failures[0].Code)
	assert.True(t, exists(env, "/fine"))
}

func TestReconcile_DryRun(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	cfg := load(t, env, map[string]string{
		"/usr/lib/tmpfiles.d/app.conf": "d /run/app\n",
	})

	report := run(env, cfg, types.ModeCreate, core.Options{DryRun: true})
	assert.True(t, report.DryRun)
	assert.Equal(t, 1, report.Summary.Skipped)
	assert.False(t, exists(env, "/run/app"))
}

func TestReconcile_Cancelled(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	cfg := load(t, env, map[string]string{
		"/usr/lib/tmpfiles.d/app.conf": "d /a\nd /b\n",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := core.Reconcile(ctx, cfg, types.ModeCreate, core.Options{Env: env.Env()})
	assert.True(t, report.Cancelled)
	assert.Empty(t, report.Outcomes)
	assert.False(t, exists(env, "/a"))
}

func TestStream_StopsWhenConsumerStops(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	cfg := load(t, env, map[string]string{
		"/usr/lib/tmpfiles.d/app.conf": "d /a\nd /b\nd /c\n",
	})

	var seen []string
	for o := range core.Stream(context.Background(), cfg, types.ModeCreate, core.Options{Env: env.Env()}) {
		seen = append(seen, o.Line)
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"d /a", "d /b"}, seen)
	assert.False(t, exists(env, "/c"))
}

func TestEligible(t *testing.T) {
	rule := func(typ byte, kind types.Kind, age bool) types.Rule {
		return types.Rule{Type: typ, Kind: kind, Path: "/x", Age: types.Age{Set: age}}
	}

	tests := []struct {
		name  string
		rule  types.Rule
		phase types.RunMode
		want  bool
	}{
		{"f_create", rule('f', types.KindCreateFile, false), types.ModeCreate, true},
		{"f_clean", rule('f', types.KindCreateFile, true), types.ModeClean, false},
		{"d_clean_with_age", rule('d', types.KindCreateDir, true), types.ModeClean, true},
		{"d_clean_without_age", rule('d', types.KindCreateDir, false), types.ModeClean, false},
		{"d_remove", rule('d', types.KindCreateDir, false), types.ModeRemove, false},
		{"D_remove", rule('D', types.KindCreateDirCleanPath, false), types.ModeRemove, true},
		{"e_create", rule('e', types.KindEmptyDir, false), types.ModeCreate, true},
		{"r_create", rule('r', types.KindRemove, false), types.ModeCreate, false},
		{"R_remove", rule('R', types.KindRemoveRecursive, false), types.ModeRemove, true},
		{"x_never", rule('x', types.KindIgnore, true), types.ModeClean, false},
		{"C_clean", rule('C', types.KindCopy, true), types.ModeClean, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.Eligible(tt.rule, tt.phase))
		})
	}
}
