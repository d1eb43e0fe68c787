package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30*day + 10*time.Hour + 30*time.Minute
	year  = 365*day + 6*time.Hour
)

var durationUnits = map[string]time.Duration{
	"":        time.Second,
	"seconds": time.Second,
	"second":  time.Second,
	"sec":     time.Second,
	"s":       time.Second,
	"minutes": time.Minute,
	"minute":  time.Minute,
	"min":     time.Minute,
	"m":       time.Minute,
	"months":  month,
	"month":   month,
	"M":       month,
	"msec":    time.Millisecond,
	"ms":      time.Millisecond,
	"hours":   time.Hour,
	"hour":    time.Hour,
	"hr":      time.Hour,
	"h":       time.Hour,
	"days":    day,
	"day":     day,
	"d":       day,
	"weeks":   week,
	"week":    week,
	"w":       week,
	"years":   year,
	"year":    year,
	"y":       year,
	"usec":    time.Microsecond,
	"us":      time.Microsecond,
	"µs":      time.Microsecond,
	"μs":      time.Microsecond,
	"nsec":    time.Nanosecond,
	"ns":      time.Nanosecond,
}

// ParseDuration parses one or more "<integer><unit>" parts and sums them.
// A part without unit counts seconds. Totals saturate instead of
// overflowing.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	var total time.Duration
	for pos := 0; pos < len(s); {
		start := pos
		for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
			pos++
		}
		if start == pos {
			return 0, fmt.Errorf("expected a number at %q", s[start:])
		}
		count, err := strconv.ParseUint(s[start:pos], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("number %q out of range", s[start:pos])
		}

		unitStart := pos
		for pos < len(s) && !(s[pos] >= '0' && s[pos] <= '9') {
			pos++
		}
		unit, ok := durationUnits[s[unitStart:pos]]
		if !ok {
			return 0, fmt.Errorf("unknown unit %q", s[unitStart:pos])
		}
		total = saturatingAdd(total, saturatingMul(unit, count))
	}
	return total, nil
}

func saturatingMul(unit time.Duration, count uint64) time.Duration {
	if count != 0 && uint64(unit) > uint64(math.MaxInt64)/count {
		return math.MaxInt64
	}
	return unit * time.Duration(count)
}

func saturatingAdd(a, b time.Duration) time.Duration {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

var formatUnits = []struct {
	unit time.Duration
	name string
}{
	{week, "w"},
	{day, "d"},
	{time.Hour, "h"},
	{time.Minute, "m"},
	{time.Second, "s"},
	{time.Millisecond, "ms"},
	{time.Microsecond, "us"},
	{time.Nanosecond, "ns"},
}

// FormatDuration renders d so that ParseDuration reads it back exactly.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	var b strings.Builder
	for _, u := range formatUnits {
		if n := d / u.unit; n > 0 {
			b.WriteString(strconv.FormatInt(int64(n), 10))
			b.WriteString(u.name)
			d -= n * u.unit
		}
	}
	return b.String()
}
