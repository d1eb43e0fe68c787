// Package layers merges configuration directories into one ordered rule
// list.
//
// Directories are given highest precedence first. For every file name the
// first directory that has it wins and hides the same name everywhere
// below. A file called "-name.conf", or "name.conf" symlinked to /dev/null,
// disables name.conf in its own directory and all lower ones. Winning files
// are read in lexical order of their names and their lines in file order.
package layers
