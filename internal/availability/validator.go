// Package availability decides whether an appointment slot fits a provider's declared working
// days and hours. The checks are advisory; the backend remains authoritative.
package availability

import (
	"fmt"
	"time"

	"golang.org/x/text/language"

	"homecare-portal/internal/models"
)

// Validator runs availability checks against a clock and a locale.
type Validator struct {
	lang language.Tag
	loc  *time.Location
	now  func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithLanguage selects the locale used for weekday names.
func WithLanguage(tag language.Tag) Option {
	return func(v *Validator) { v.lang = tag }
}

// WithLocation sets the location in which calendar days are evaluated.
func WithLocation(loc *time.Location) Option {
	return func(v *Validator) {
		if loc != nil {
			v.loc = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// NewValidator returns a Spanish-locale validator on the local timezone unless configured otherwise.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{lang: language.Spanish, loc: time.Local, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// WeekdayOf returns the capitalized weekday name of a YYYY-MM-DD date.
func (v *Validator) WeekdayOf(date string) (string, error) {
	t, err := parseDate(date, v.loc)
	if err != nil {
		return "", err
	}
	return weekdayName(v.lang, t.Weekday()), nil
}

// IsFutureStrict reports whether date is strictly after the current local calendar day.
func (v *Validator) IsFutureStrict(date string) (bool, error) {
	t, err := parseDate(date, v.loc)
	if err != nil {
		return false, err
	}
	now := v.now().In(v.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, v.loc)
	return t.After(today), nil
}

// Check is the submission gate. It returns the first failing condition: day mismatch,
// hour mismatch, then date not in the future. Empty day or hour lists do not constrain.
func (v *Validator) Check(date, startTime string, avail models.Availability) error {
	weekday, err := v.WeekdayOf(date)
	if err != nil {
		return err
	}
	if len(avail.Days) > 0 && !containsDay(avail.Days, weekday) {
		return fmt.Errorf("%w: %s", ErrDayUnavailable, weekday)
	}
	within, err := WithinAnyRange(startTime, avail.Hours)
	if err != nil {
		return err
	}
	if !within {
		return fmt.Errorf("%w: %s", ErrHourUnavailable, startTime)
	}
	future, err := v.IsFutureStrict(date)
	if err != nil {
		return err
	}
	if !future {
		return fmt.Errorf("%w: %s", ErrDateNotFuture, date)
	}
	return nil
}

// Warnings evaluates every condition independently for live form feedback.
func (v *Validator) Warnings(date, startTime string, avail models.Availability) []error {
	var warnings []error

	if date != "" {
		if weekday, err := v.WeekdayOf(date); err != nil {
			warnings = append(warnings, err)
		} else {
			if len(avail.Days) > 0 && !containsDay(avail.Days, weekday) {
				warnings = append(warnings, fmt.Errorf("%w: %s", ErrDayUnavailable, weekday))
			}
			if future, _ := v.IsFutureStrict(date); !future {
				warnings = append(warnings, fmt.Errorf("%w: %s", ErrDateNotFuture, date))
			}
		}
	}

	if startTime != "" {
		within, err := WithinAnyRange(startTime, avail.Hours)
		switch {
		case err != nil:
			warnings = append(warnings, err)
		case !within:
			warnings = append(warnings, fmt.Errorf("%w: %s", ErrHourUnavailable, startTime))
		}
	}

	return warnings
}

func containsDay(days []string, weekday string) bool {
	for _, d := range days {
		if sameDay(d, weekday) {
			return true
		}
	}
	return false
}
