package availability

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// weekdayNames are keyed by base language and indexed by time.Weekday (Sunday first).
var weekdayNames = map[string][7]string{
	"es": {"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"},
	"en": {"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"},
}

// parseDate reads a YYYY-MM-DD string as a calendar date in loc. The components are
// assembled with time.Date so the day never shifts at timezone boundaries.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 ||
		!digits(parts[0]) || !digits(parts[1]) || !digits(parts[2]) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	year, errY := strconv.Atoi(parts[0])
	month, errM := strconv.Atoi(parts[1])
	day, errD := strconv.Atoi(parts[2])
	if errY != nil || errM != nil || errD != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes 2025-02-30 into March; reject instead.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

func weekdayName(tag language.Tag, wd time.Weekday) string {
	base, _ := tag.Base()
	names, ok := weekdayNames[base.String()]
	if !ok {
		names = weekdayNames["es"]
	}
	return cases.Title(tag).String(names[wd])
}

// sameDay compares weekday names ignoring case and accents ("Miercoles" matches "Miércoles").
func sameDay(a, b string) bool {
	return normalizeDay(a) == normalizeDay(b)
}

func normalizeDay(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		out = strings.TrimSpace(s)
	}
	return cases.Fold().String(out)
}
