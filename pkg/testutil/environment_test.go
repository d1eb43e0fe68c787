// pkg/testutil/environment_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test TestEnvironment orchestration

package testutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/tmpfiles/pkg/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestEnvironment_MemoryOnly(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)

	assert.Equal(t, "/", env.Root)
	require.NotNil(t, env.Memory)
	assert.Equal(t, testutil.Epoch, env.Clock.Now())
	assert.Equal(t, "/srv/x", env.Path("/srv/x"))

	env.WithFileTree("/srv", testutil.FileTree{
		"a.txt": "a",
		"sub":   testutil.FileTree{"b.txt": "b"},
	})
	data, err := env.FS.ReadFile("/srv/sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "b", string(data))

	env.WriteConfig("/etc/tmpfiles.d/a.conf", "d /run/a\n")
	content, err := afero.ReadFile(env.ConfigFS, "/etc/tmpfiles.d/a.conf")
	require.NoError(t, err)
	assert.Equal(t, "d /run/a\n", string(content))

	e := env.Env()
	assert.Equal(t, env.FS, e.FS)
	uid, err := e.Identity.LookupUser("root")
	require.NoError(t, err)
	assert.Zero(t, uid)
}

func TestTestEnvironment_Isolated(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvIsolated)

	assert.Nil(t, env.Memory)
	env.WithFileTree("/srv", testutil.FileTree{"a.txt": "a"})

	data, err := os.ReadFile(filepath.Join(env.Root, "srv", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	env.WriteConfig("/etc/tmpfiles.d/a.conf", "d /run/a\n")
	_, err = os.Stat(filepath.Join(env.Root, "etc", "tmpfiles.d", "a.conf"))
	assert.NoError(t, err, "config is written below the root")
}

func TestStaticIdentity(t *testing.T) {
	id := testutil.NewStaticIdentity().WithUser("alice", 1000).WithGroup("staff", 50)

	uid, err := id.LookupUser("alice")
	require.NoError(t, err)
	assert.Equal(t, 1000, uid)

	gid, err := id.LookupGroup("staff")
	require.NoError(t, err)
	assert.Equal(t, 50, gid)

	_, err = id.LookupUser("bob")
	assert.Error(t, err)
	_, err = id.LookupGroup("alice")
	assert.Error(t, err)
}
