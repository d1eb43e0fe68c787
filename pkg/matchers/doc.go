// Package matchers expands the path patterns of configuration rules against
// the live filesystem.
//
// Patterns are matched one path segment at a time. Literal segments are
// looked up directly and wildcard segments are compared against the names
// of the directory they apply to, so "*" never crosses a "/". A wildcard
// does not match names starting with "." unless the segment itself starts
// with ".". Brace alternatives such as "{a,b}" are supported.
//
// Nothing is cached: each call reflects the filesystem at that moment.
package matchers
