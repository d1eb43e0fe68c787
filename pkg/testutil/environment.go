// pkg/testutil/environment.go
// DEPENDENCIES: None (base test utilities)
// PURPOSE: Orchestrate test environments with proper dependencies

package testutil

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/tmpfiles/pkg/filesystem"
	"github.com/arthur-debert/tmpfiles/pkg/types"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

// EnvType defines the type of test environment
type EnvType int

const (
	EnvMemoryOnly EnvType = iota // Pure in-memory, no real filesystem
	EnvIsolated                  // Real filesystem in temp directory
)

// Epoch is the fixed time memory environments start at.
var Epoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

// TestEnvironment provides a complete test environment with all dependencies
type TestEnvironment struct {
	// Root is where managed paths live. "/" for memory environments.
	Root string

	FS       types.FS
	Memory   *MemoryFS // nil for EnvIsolated
	Clock    clockwork.FakeClock
	Identity *StaticIdentity

	// ConfigFS holds configuration directories
	ConfigFS afero.Fs

	Type EnvType

	t *testing.T
}

// NewTestEnvironment creates a new test environment
func NewTestEnvironment(t *testing.T, envType EnvType) *TestEnvironment {
	t.Helper()

	env := &TestEnvironment{
		t:        t,
		Type:     envType,
		Identity: NewStaticIdentity(),
	}

	switch envType {
	case EnvMemoryOnly:
		env.Root = "/"
		env.Clock = clockwork.NewFakeClockAt(Epoch)
		env.Memory = NewMemoryFSWithClock(env.Clock)
		env.FS = env.Memory
		env.ConfigFS = afero.NewMemMapFs()
	case EnvIsolated:
		env.Root = t.TempDir()
		env.Clock = clockwork.NewFakeClockAt(time.Now())
		env.FS = filesystem.NewOS()
		env.ConfigFS = filesystem.NewConfigFS(env.Root)
	}

	return env
}

// Env returns the filesystem context for the executor and matcher
func (env *TestEnvironment) Env() types.Env {
	return types.Env{
		Root:     env.Root,
		FS:       env.FS,
		Clock:    env.Clock,
		Identity: env.Identity,
	}
}

// Path maps a managed path onto the backing filesystem
func (env *TestEnvironment) Path(p string) string {
	return filepath.Join(env.Root, p)
}

// WithFileTree creates a complete file tree structure below base
func (env *TestEnvironment) WithFileTree(base string, tree FileTree) {
	env.t.Helper()
	createFileTree(env.t, env.FS, env.Path(base), tree)
}

// WriteConfig writes a configuration file into ConfigFS
func (env *TestEnvironment) WriteConfig(path, content string) {
	env.t.Helper()
	if err := env.ConfigFS.MkdirAll(filepath.Dir(path), 0755); err != nil {
		env.t.Fatalf("Failed to create config directory %s: %v", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(env.ConfigFS, path, []byte(content), 0644); err != nil {
		env.t.Fatalf("Failed to write config %s: %v", path, err)
	}
}

// FileTree represents a directory structure for testing. Values are either
// file contents (string) or nested FileTrees.
type FileTree map[string]interface{}

// createFileTree recursively creates a file tree
func createFileTree(t *testing.T, fsys types.FS, basePath string, tree FileTree) {
	t.Helper()

	if err := fsys.MkdirAll(basePath, 0755); err != nil {
		t.Fatalf("Failed to create directory %s: %v", basePath, err)
	}

	for name, content := range tree {
		fullPath := filepath.Join(basePath, name)
		switch v := content.(type) {
		case string:
			if err := fsys.WriteFile(fullPath, []byte(v), 0644); err != nil {
				t.Fatalf("Failed to write file %s: %v", fullPath, err)
			}
		case FileTree:
			createFileTree(t, fsys, fullPath, v)
		default:
			t.Fatalf("Unsupported file tree entry %s: %s", name, fmt.Sprintf("%T", content))
		}
	}
}
