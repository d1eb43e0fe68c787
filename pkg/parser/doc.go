// Package parser turns configuration lines into types.Rule values and back.
//
// A line has up to seven whitespace separated fields:
//
//	<type><modifiers> <path> <mode> <user> <group> <age> <argument>
//
// Trailing fields may be omitted and "-" leaves a field unset. Fields may be
// quoted with ' or " and may contain the escapes \n \r \t \\ \" \' and \xHH.
// The argument is the rest of the line after the sixth field.
//
// Every failure is a coded error from pkg/errors carrying the offending
// field and value, so callers can report it and move on to the next line.
package parser
