// Package filesystem provides the live filesystem implementations for tmpfiles.
//
// NewOS returns the types.FS used by the executor and matcher. Beyond the
// usual file operations it exposes the Linux specific calls the engine
// needs: statx timestamps, device and fifo nodes, extended attributes and
// inode flags. On other platforms those calls fail with
// errors.ErrUnsupported.
//
// NewConfigFS returns the afero filesystem configuration directories are
// read from, rooted at --root when one is given. NewHostIdentity maps user
// and group names to ids through the host user database.
package filesystem
