package filesystem

import (
	"path/filepath"

	"github.com/spf13/afero"
)

// NewConfigFS returns the filesystem configuration directories are read
// from. With a root other than "/" every path is resolved below root, so
// "/etc/tmpfiles.d" means "<root>/etc/tmpfiles.d".
func NewConfigFS(root string) afero.Fs {
	osFs := afero.NewOsFs()
	if root == "" || filepath.Clean(root) == "/" {
		return osFs
	}
	return afero.NewBasePathFs(osFs, root)
}

// NewReadOnlyConfigFS wraps NewConfigFS so that nothing can be written
// through it.
func NewReadOnlyConfigFS(root string) afero.Fs {
	return afero.NewReadOnlyFs(NewConfigFS(root))
}
