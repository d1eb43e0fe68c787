package parser

import (
	"strconv"
	"strings"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
)

// positional fields before the free form argument
const fixedFields = 6

// splitLine splits a rule line into at most six fields plus the argument,
// which is the rest of the line after the sixth field. Fields may be
// quoted with ' or " and may contain C escapes.
func splitLine(line string) (fields []string, argument string, hasArgument bool, err error) {
	pos := skipBlank(line, 0)
	for len(fields) < fixedFields && pos < len(line) {
		var field string
		field, pos, err = readField(line, pos)
		if err != nil {
			return nil, "", false, err
		}
		fields = append(fields, field)
		pos = skipBlank(line, pos)
	}

	if pos >= len(line) {
		return fields, "", false, nil
	}

	rest := line[pos:]
	if rest == "-" {
		return fields, "", false, nil
	}
	argument, err = unescape(rest)
	if err != nil {
		return nil, "", false, err
	}
	return fields, argument, true, nil
}

func skipBlank(s string, pos int) int {
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t') {
		pos++
	}
	return pos
}

func readField(line string, pos int) (string, int, error) {
	var b strings.Builder
	var quote byte
	if c := line[pos]; c == '\'' || c == '"' {
		quote = c
		pos++
	}

	for {
		if pos >= len(line) {
			if quote != 0 {
				return "", pos, syntaxError("unterminated quote", line)
			}
			return b.String(), pos, nil
		}
		c := line[pos]
		switch {
		case quote != 0 && c == quote:
			pos++
			if pos < len(line) && line[pos] != ' ' && line[pos] != '\t' {
				return "", pos, syntaxError("text after closing quote", line)
			}
			return b.String(), pos, nil
		case quote == 0 && (c == ' ' || c == '\t'):
			return b.String(), pos, nil
		case c == '\\':
			r, next, err := readEscape(line, pos)
			if err != nil {
				return "", pos, err
			}
			b.WriteByte(r)
			pos = next
		default:
			b.WriteByte(c)
			pos++
		}
	}
}

// readEscape decodes the escape sequence starting at s[pos] == '\\'.
func readEscape(s string, pos int) (byte, int, error) {
	if pos+1 >= len(s) {
		return 0, pos, syntaxError("unterminated escape", s)
	}
	switch c := s[pos+1]; c {
	case 'n':
		return '\n', pos + 2, nil
	case 'r':
		return '\r', pos + 2, nil
	case 't':
		return '\t', pos + 2, nil
	case '\\', '"', '\'':
		return c, pos + 2, nil
	case 'x':
		if pos+4 > len(s) {
			return 0, pos, syntaxError("short hex escape", s)
		}
		v, err := strconv.ParseUint(s[pos+2:pos+4], 16, 8)
		if err != nil {
			return 0, pos, syntaxError("invalid hex escape", s)
		}
		return byte(v), pos + 4, nil
	default:
		return 0, pos, syntaxError("unknown escape \\"+string(c), s)
	}
}

func unescape(s string) (string, error) {
	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}
	var b strings.Builder
	for pos := 0; pos < len(s); {
		if s[pos] != '\\' {
			b.WriteByte(s[pos])
			pos++
			continue
		}
		r, next, err := readEscape(s, pos)
		if err != nil {
			return "", err
		}
		b.WriteByte(r)
		pos = next
	}
	return b.String(), nil
}

func syntaxError(msg, line string) error {
	return errors.New(errors.ErrParseSyntax, msg).WithDetail("line", line)
}

// needsQuoting reports fields that would not survive splitLine as is.
func needsQuoting(s string) bool {
	if s == "" || s == "-" {
		return true
	}
	if s[0] == '\'' || s[0] == '"' {
		return true
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '\t' || c == '\\' || c < 0x20 || c == 0x7f {
			return true
		}
	}
	return false
}

// quoteField renders a field so that splitLine reads it back unchanged.
func quoteField(s string) string {
	if !needsQuoting(s) {
		return s
	}
	return `"` + escapeBytes(s, true) + `"`
}

// escapeArgument renders an argument so that splitLine reads it back
// unchanged.
func escapeArgument(s string) string {
	if s == "-" {
		return `\x2d`
	}
	out := escapeBytes(s, false)
	if out != "" && (out[0] == ' ' || out[0] == '\t') {
		out = `\x` + strconv.FormatUint(uint64(out[0]), 16) + out[1:]
	}
	if n := len(out); n > 0 && (out[n-1] == ' ' || out[n-1] == '\t') {
		out = out[:n-1] + `\x` + strconv.FormatUint(uint64(out[n-1]), 16)
	}
	return out
}

func escapeBytes(s string, quoted bool) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			b.WriteString(`\\`)
		case c == '"' && quoted:
			b.WriteString(`\"`)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t' && !quoted:
			b.WriteString(`\t`)
		case c < 0x20 || c == 0x7f:
			b.WriteString(`\x`)
			if c < 0x10 {
				b.WriteByte('0')
			}
			b.WriteString(strconv.FormatUint(uint64(c), 16))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
