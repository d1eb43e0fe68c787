package parser

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/types"
)

// ParseLine turns one configuration line into a Rule. Blank lines and
// comments must be filtered by the caller. On error the returned Rule is
// the zero value.
func ParseLine(line string, src types.Source) (types.Rule, error) {
	rule, err := parseLine(line, src)
	if err != nil {
		if e, ok := err.(*errors.TmpfilesError); ok {
			e.WithDetail("source", src.String())
		}
		return types.Rule{}, err
	}
	return rule, nil
}

func parseLine(line string, src types.Source) (types.Rule, error) {
	line = strings.TrimRight(line, " \t\r\n")
	fields, argument, hasArgument, err := splitLine(line)
	if err != nil {
		return types.Rule{}, err
	}
	if len(fields) < 2 {
		return types.Rule{}, errors.Newf(errors.ErrParseFieldCount, "expected at least 2 fields, got %d", len(fields)).
			WithDetail("field", "line").
			WithDetail("value", line)
	}

	rule := types.Rule{Source: src}
	if err := parseType(fields[0], &rule); err != nil {
		return types.Rule{}, err
	}

	rule.Path = fields[1]
	if err := checkPath(rule.Path); err != nil {
		return types.Rule{}, err
	}

	field := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return "-"
	}

	if rule.Mode, err = ParseMode(field(2)); err != nil {
		return types.Rule{}, err
	}
	if rule.User, err = parseOwner("user", field(3)); err != nil {
		return types.Rule{}, err
	}
	if rule.Group, err = parseOwner("group", field(4)); err != nil {
		return types.Rule{}, err
	}
	if rule.Age, err = ParseAge(field(5)); err != nil {
		return types.Rule{}, err
	}

	rule.Argument = argument
	rule.HasArgument = hasArgument
	if err := checkArgument(&rule); err != nil {
		return types.Rule{}, err
	}
	return rule, nil
}

func fieldError(code errors.ErrorCode, field, value, msg string) error {
	return errors.Newf(code, "%s %q: %s", field, value, msg).
		WithDetail("field", field).
		WithDetail("value", value)
}

func parseType(field string, rule *types.Rule) error {
	if field == "" {
		return fieldError(errors.ErrParseType, "type", field, "empty type")
	}
	spec, ok := types.LookupType(field[0])
	if !ok {
		return fieldError(errors.ErrParseType, "type", field, "unknown type")
	}
	rule.Type = spec.Letter
	rule.Kind = spec.Kind
	rule.Recursive = spec.Recursive
	rule.Device = spec.Device

	seen := make(map[byte]bool)
	for i := 1; i < len(field); i++ {
		m := field[i]
		if seen[m] {
			return fieldError(errors.ErrParseModifier, "type", field, "duplicate modifier "+string(m))
		}
		seen[m] = true

		switch m {
		case '+':
			rule.Force = true
		case '-':
			rule.NoError = true
		case '=':
			rule.Replace = true
		case '!':
			rule.Boot = true
		case '~':
			rule.Base64 = true
		case '^':
			rule.Credential = true
		default:
			return fieldError(errors.ErrParseModifier, "type", field, "unknown modifier "+string(m))
		}
	}

	if rule.Force && !rule.IsCreateKind() && rule.Kind != types.KindWriteFile && rule.Kind != types.KindSetACL {
		return fieldError(errors.ErrParseModifier, "type", field, "'+' is not valid for this type")
	}
	if rule.Replace && !rule.IsCreateKind() {
		return fieldError(errors.ErrParseModifier, "type", field, "'=' is not valid for this type")
	}
	if (rule.Base64 || rule.Credential) && !takesContent(rule.Kind) {
		return fieldError(errors.ErrParseModifier, "type", field, "'~' and '^' need a content argument")
	}
	return nil
}

// takesContent reports kinds whose argument is file content.
func takesContent(k types.Kind) bool {
	switch k {
	case types.KindCreateFile, types.KindWriteFile:
		return true
	case types.KindCreateDir, types.KindCreateDirCleanPath, types.KindEmptyDir,
		types.KindCreateFifo, types.KindCreateDevice, types.KindCreateSymlink,
		types.KindCopy, types.KindIgnore, types.KindAdjustMode, types.KindSetXattr,
		types.KindSetAttr, types.KindSetACL, types.KindRemove, types.KindRemoveRecursive:
		return false
	}
	return false
}

func checkPath(p string) error {
	if p == "" || p == "-" {
		return fieldError(errors.ErrParsePath, "path", p, "path is required")
	}
	if p[0] != '/' && p[0] != '%' {
		return fieldError(errors.ErrParsePath, "path", p, "path must be absolute")
	}
	if strings.IndexByte(p, 0) >= 0 {
		return fieldError(errors.ErrParsePath, "path", p, "path contains a NUL byte")
	}
	return nil
}

// ParseMode parses the mode field.
func ParseMode(field string) (types.Mode, error) {
	if field == "-" {
		return types.Mode{}, nil
	}

	var mode types.Mode
	s := field
	if strings.HasPrefix(s, ":") {
		mode.KeepExisting = true
		s = s[1:]
	}

	mode.Op = types.ModeReplace
	if s != "" {
		switch s[0] {
		case '+':
			mode.Op = types.ModeAdd
			s = s[1:]
		case '-':
			mode.Op = types.ModeClearBits
			s = s[1:]
		case '~':
			mode.Op = types.ModeMask
			s = s[1:]
		}
	}

	if s == "" {
		return types.Mode{}, fieldError(errors.ErrParseMode, "mode", field, "missing octal value")
	}
	bits, err := strconv.ParseUint(s, 8, 32)
	if err != nil || bits > 0o7777 {
		return types.Mode{}, fieldError(errors.ErrParseMode, "mode", field, "invalid octal mode")
	}
	mode.Bits = uint32(bits)
	return mode, nil
}

func parseOwner(field, value string) (types.Owner, error) {
	if value == "-" {
		return types.Owner{}, nil
	}

	owner := types.Owner{Set: true}
	s := value
	if strings.HasPrefix(s, ":") {
		owner.KeepExisting = true
		s = s[1:]
	}
	if s == "" {
		return types.Owner{}, fieldError(errors.ErrParseOwner, field, value, "empty name")
	}

	// Only a value that parses as a number is an id; "1user" is a name.
	if id, err := strconv.ParseUint(s, 10, 32); err == nil {
		if id == 0xffffffff {
			return types.Owner{}, fieldError(errors.ErrParseOwner, field, value, "invalid numeric id")
		}
		owner.ID = uint32(id)
		owner.IsID = true
		return owner, nil
	}

	if strings.ContainsAny(s, ":/ \t\n") {
		return types.Owner{}, fieldError(errors.ErrParseOwner, field, value, "invalid name")
	}
	owner.Name = s
	return owner, nil
}

const defaultAgeBy = types.TimeAtime | types.TimeMtime

// ParseAge parses the age field.
func ParseAge(field string) (types.Age, error) {
	if field == "-" {
		return types.Age{}, nil
	}

	age := types.Age{
		Set:   true,
		Form:  types.AgePlain,
		Files: defaultAgeBy,
		Dirs:  defaultAgeBy,
	}
	s := field

	if selectors, rest, ok := strings.Cut(s, ":"); ok {
		age.Form = types.AgeSelectors
		if strings.HasPrefix(selectors, "~") {
			age.SecondLevel = true
			selectors = selectors[1:]
		}
		if selectors == "" {
			return types.Age{}, fieldError(errors.ErrParseAge, "age", field, "missing timestamp selectors")
		}
		var files, dirs types.Timestamp
		for i := 0; i < len(selectors); i++ {
			switch selectors[i] {
			case 'a':
				files |= types.TimeAtime
			case 'A':
				dirs |= types.TimeAtime
			case 'b':
				files |= types.TimeBtime
			case 'B':
				dirs |= types.TimeBtime
			case 'c':
				files |= types.TimeCtime
			case 'C':
				dirs |= types.TimeCtime
			case 'm':
				files |= types.TimeMtime
			case 'M':
				dirs |= types.TimeMtime
			default:
				return types.Age{}, fieldError(errors.ErrParseAge, "age", field, "unknown timestamp selector "+string(selectors[i]))
			}
		}
		if files != 0 {
			age.Files = files
		}
		if dirs != 0 {
			age.Dirs = dirs
		}
		s = rest
	} else if strings.HasPrefix(s, "~") {
		age.Form = types.AgeCtime
		age.Files = types.TimeCtime
		age.Dirs = types.TimeCtime
		s = s[1:]
	}

	d, err := ParseDuration(s)
	if err != nil {
		return types.Age{}, fieldError(errors.ErrParseAge, "age", field, err.Error())
	}
	age.Duration = d
	return age, nil
}

func checkArgument(rule *types.Rule) error {
	spec, _ := types.LookupType(rule.Type)
	if spec.NeedsArgument && !rule.HasArgument {
		return fieldError(errors.ErrParseArgument, "argument", "-", "type "+string(rule.Type)+" needs an argument")
	}
	if !rule.HasArgument {
		return nil
	}

	switch rule.Kind {
	case types.KindCreateDevice:
		if _, _, err := ParseDevice(rule.Argument); err != nil {
			return fieldError(errors.ErrParseArgument, "argument", rule.Argument, err.Error())
		}
	case types.KindSetXattr:
		if _, _, err := ParseXattr(rule.Argument); err != nil {
			return fieldError(errors.ErrParseArgument, "argument", rule.Argument, err.Error())
		}
	case types.KindSetAttr:
		if _, err := types.ParseAttrs(rule.Argument); err != nil {
			return fieldError(errors.ErrParseArgument, "argument", rule.Argument, err.Error())
		}
	case types.KindSetACL:
		if _, err := types.ParseACL(rule.Argument); err != nil {
			return fieldError(errors.ErrParseArgument, "argument", rule.Argument, err.Error())
		}
	case types.KindCreateFile, types.KindWriteFile:
		if rule.Base64 && !rule.Credential {
			if _, err := base64.StdEncoding.DecodeString(rule.Argument); err != nil {
				return fieldError(errors.ErrParseArgument, "argument", rule.Argument, "invalid base64")
			}
		}
	case types.KindCreateDir, types.KindCreateDirCleanPath, types.KindEmptyDir,
		types.KindCreateFifo, types.KindCreateSymlink, types.KindCopy, types.KindIgnore,
		types.KindAdjustMode, types.KindRemove, types.KindRemoveRecursive:
	}
	return nil
}

// ParseDevice parses a "major:minor" device argument.
func ParseDevice(arg string) (uint32, uint32, error) {
	majorText, minorText, ok := strings.Cut(arg, ":")
	if !ok {
		return 0, 0, fmt.Errorf("expected major:minor")
	}
	major, err := strconv.ParseUint(majorText, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid major number %q", majorText)
	}
	minor, err := strconv.ParseUint(minorText, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid minor number %q", minorText)
	}
	return uint32(major), uint32(minor), nil
}

// ParseXattr parses a "name=value" xattr argument. The value may be
// quoted.
func ParseXattr(arg string) (string, string, error) {
	name, value, ok := strings.Cut(arg, "=")
	if !ok || name == "" {
		return "", "", fmt.Errorf("expected name=value")
	}
	if !strings.Contains(name, ".") {
		return "", "", fmt.Errorf("xattr name %q needs a namespace", name)
	}
	if n := len(value); n >= 2 && (value[0] == '"' || value[0] == '\'') && value[n-1] == value[0] {
		value = value[1 : n-1]
	}
	return name, value, nil
}
