package parser

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/tmpfiles/pkg/types"
)

// Format renders a rule as a configuration line that ParseLine reads back
// into an equal rule (ignoring Source).
func Format(rule types.Rule) string {
	fields := []string{
		rule.TypeString(),
		quoteField(rule.Path),
		FormatMode(rule.Mode),
		rule.User.String(),
		rule.Group.String(),
		FormatAge(rule.Age),
	}
	line := strings.Join(fields, " ")
	if rule.HasArgument {
		line += " " + escapeArgument(rule.Argument)
	}
	return line
}

// FormatMode renders the mode field.
func FormatMode(m types.Mode) string {
	if !m.IsSet() {
		return "-"
	}
	var b strings.Builder
	if m.KeepExisting {
		b.WriteByte(':')
	}
	switch m.Op {
	case types.ModeAdd:
		b.WriteByte('+')
	case types.ModeClearBits:
		b.WriteByte('-')
	case types.ModeMask:
		b.WriteByte('~')
	case types.ModeUnset, types.ModeReplace:
	}
	fmt.Fprintf(&b, "%04o", m.Bits)
	return b.String()
}

// FormatAge renders the age field.
func FormatAge(a types.Age) string {
	if !a.Set {
		return "-"
	}
	switch a.Form {
	case types.AgeCtime:
		return "~" + FormatDuration(a.Duration)
	case types.AgeSelectors:
		var b strings.Builder
		if a.SecondLevel {
			b.WriteByte('~')
		}
		b.WriteString(selectorLetters(a.Files, "abcm"))
		b.WriteString(selectorLetters(a.Dirs, "ABCM"))
		b.WriteByte(':')
		b.WriteString(FormatDuration(a.Duration))
		return b.String()
	default:
		return FormatDuration(a.Duration)
	}
}

func selectorLetters(ts types.Timestamp, letters string) string {
	order := []types.Timestamp{types.TimeAtime, types.TimeBtime, types.TimeCtime, types.TimeMtime}
	var b strings.Builder
	for i, t := range order {
		if ts&t != 0 {
			b.WriteByte(letters[i])
		}
	}
	return b.String()
}
