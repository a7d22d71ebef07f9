package availability

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is an inclusive window of minutes since midnight.
type Range struct {
	Start int
	End   int
}

// Contains reports whether minute lies inside the range, both ends included.
func (r Range) Contains(minute int) bool {
	return r.Start <= minute && minute <= r.End
}

// MinutesSinceMidnight parses HH:MM. Malformed input yields ErrInvalidTime.
func MinutesSinceMidnight(s string) (int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) == 0 || len(h) > 2 || len(m) != 2 || !digits(h) || !digits(m) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 24 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	if hour == 24 && minute != 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return hour*60 + minute, nil
}

// digits reports whether s is non-empty and made only of ASCII digits.
func digits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseRange parses an "HH:MM-HH:MM" range string.
func ParseRange(s string) (Range, error) {
	start, end, ok := strings.Cut(s, "-")
	if !ok {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	from, err := MinutesSinceMidnight(start)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	to, err := MinutesSinceMidnight(end)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	return Range{Start: from, End: to}, nil
}

// WithinAnyRange reports whether hhmm falls inside any of ranges. An empty list means no
// constraint is known and always matches; malformed entries are ignored.
func WithinAnyRange(hhmm string, ranges []string) (bool, error) {
	minute, err := MinutesSinceMidnight(hhmm)
	if err != nil {
		return false, err
	}
	if len(ranges) == 0 {
		return true, nil
	}
	for _, raw := range ranges {
		r, err := ParseRange(raw)
		if err != nil {
			continue
		}
		if r.Contains(minute) {
			return true, nil
		}
	}
	return false, nil
}
