// Package paths knows where tmpfiles looks for things.
//
// In system mode rules are read from the fixed directories in SystemDirs.
// In user mode (--user) they come from user-tmpfiles.d below the XDG base
// directories, so a user's ~/.config/user-tmpfiles.d wins over the
// system-wide /etc/xdg/user-tmpfiles.d.
//
// The tool's own configuration file is $TMPFILES_CONFIG when set, else the
// first tmpfiles/config.toml found in the XDG config search path, else
// /etc/tmpfiles/config.toml. The log file lives in the XDG state home.
package paths
