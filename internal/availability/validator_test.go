package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"homecare-portal/internal/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestWeekdayOfIndependentOfTimezone(t *testing.T) {
	zones := []*time.Location{
		time.UTC,
		time.FixedZone("UTC-11", -11*3600),
		time.FixedZone("UTC+14", 14*3600),
	}
	for _, loc := range zones {
		v := NewValidator(WithLocation(loc))
		day, err := v.WeekdayOf("2025-12-25")
		require.NoError(t, err)
		assert.Equal(t, "Jueves", day, loc.String())
	}
}

func TestWeekdayOfNames(t *testing.T) {
	v := NewValidator(WithLocation(time.UTC))
	cases := map[string]string{
		"2025-12-22": "Lunes",
		"2025-12-24": "Miércoles",
		"2025-12-27": "Sábado",
		"2025-12-28": "Domingo",
		"2024-02-29": "Jueves",
	}
	for date, want := range cases {
		got, err := v.WeekdayOf(date)
		require.NoError(t, err)
		assert.Equal(t, want, got, date)
	}

	en := NewValidator(WithLocation(time.UTC), WithLanguage(language.MustParse("en-US")))
	got, err := en.WeekdayOf("2025-12-25")
	require.NoError(t, err)
	assert.Equal(t, "Thursday", got)
}

func TestWeekdayOfInvalid(t *testing.T) {
	v := NewValidator()
	for _, in := range []string{"", "2025-13-01", "2025-02-30", "25-12-25", "2025/12/25", "abcd-ef-gh", "2025-+1-05", "+025-01-05", "2025-01- 5"} {
		_, err := v.WeekdayOf(in)
		assert.ErrorIs(t, err, ErrInvalidDate, in)
	}
}

func TestIsFutureStrict(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*3600)
	now := time.Date(2026, 10, 14, 23, 59, 0, 0, loc)
	v := NewValidator(WithLocation(loc), WithClock(fixedClock(now)))

	today, err := v.IsFutureStrict("2026-10-14")
	require.NoError(t, err)
	assert.False(t, today)

	tomorrow, err := v.IsFutureStrict("2026-10-15")
	require.NoError(t, err)
	assert.True(t, tomorrow)

	yesterday, err := v.IsFutureStrict("2026-10-13")
	require.NoError(t, err)
	assert.False(t, yesterday)
}

func TestMinutesSinceMidnight(t *testing.T) {
	got, err := MinutesSinceMidnight("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, got)

	got, err = MinutesSinceMidnight("24:00")
	require.NoError(t, err)
	assert.Equal(t, 1440, got)

	for _, in := range []string{"", "9", "ab:cd", "09:3", "25:00", "10:60", "24:01", "-1:00", "09:+5", "+9:00", "9 :00"} {
		_, err := MinutesSinceMidnight(in)
		assert.ErrorIs(t, err, ErrInvalidTime, in)
	}
}

func TestWithinAnyRange(t *testing.T) {
	ranges := []string{"09:00-13:00", "15:00-18:00"}

	within, err := WithinAnyRange("09:30", ranges)
	require.NoError(t, err)
	assert.True(t, within)

	within, err = WithinAnyRange("14:00", ranges)
	require.NoError(t, err)
	assert.False(t, within)

	within, err = WithinAnyRange("13:00", ranges)
	require.NoError(t, err)
	assert.True(t, within, "end is inclusive")

	within, err = WithinAnyRange("15:00", ranges)
	require.NoError(t, err)
	assert.True(t, within, "start is inclusive")

	within, err = WithinAnyRange("09:00", nil)
	require.NoError(t, err)
	assert.True(t, within, "empty list means no constraint")

	within, err = WithinAnyRange("10:00", []string{"garbage", "09:00-11:00"})
	require.NoError(t, err)
	assert.True(t, within)

	_, err = WithinAnyRange("nope", ranges)
	assert.ErrorIs(t, err, ErrInvalidTime)
}

func TestCheck(t *testing.T) {
	now := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)
	v := NewValidator(WithLocation(time.UTC), WithClock(fixedClock(now)))

	tests := []struct {
		name  string
		date  string
		start string
		avail models.Availability
		want  error
	}{
		{
			name:  "accepted",
			date:  "2025-12-22",
			start: "10:00",
			avail: models.Availability{Days: []string{"Lunes"}, Hours: []string{"09:00-13:00"}},
		},
		{
			name:  "day mismatch wins over bad hour",
			date:  "2025-12-23",
			start: "22:00",
			avail: models.Availability{Days: []string{"Lunes"}, Hours: []string{"09:00-13:00"}},
			want:  ErrDayUnavailable,
		},
		{
			name:  "hour mismatch",
			date:  "2025-12-22",
			start: "14:00",
			avail: models.Availability{Days: []string{"Lunes"}, Hours: []string{"09:00-13:00", "15:00-18:00"}},
			want:  ErrHourUnavailable,
		},
		{
			name:  "today rejected",
			date:  "2025-12-01",
			start: "10:00",
			avail: models.Availability{},
			want:  ErrDateNotFuture,
		},
		{
			name:  "no provider data allows booking",
			date:  "2025-12-02",
			start: "03:00",
			avail: models.Availability{},
		},
		{
			name:  "accent-insensitive day match",
			date:  "2025-12-24",
			start: "10:00",
			avail: models.Availability{Days: []string{"miercoles"}},
		},
		{
			name:  "invalid time",
			date:  "2025-12-22",
			start: "10h",
			avail: models.Availability{},
			want:  ErrInvalidTime,
		},
		{
			name:  "invalid date",
			date:  "22-12-2025",
			start: "10:00",
			avail: models.Availability{},
			want:  ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Check(tt.date, tt.start, tt.avail)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWarningsCollectsEveryFailure(t *testing.T) {
	now := time.Date(2025, 12, 23, 8, 0, 0, 0, time.UTC)
	v := NewValidator(WithLocation(time.UTC), WithClock(fixedClock(now)))
	avail := models.Availability{Days: []string{"Lunes"}, Hours: []string{"09:00-13:00"}}

	warnings := v.Warnings("2025-12-23", "20:00", avail)
	require.Len(t, warnings, 3)
	assert.ErrorIs(t, warnings[0], ErrDayUnavailable)
	assert.ErrorIs(t, warnings[1], ErrDateNotFuture)
	assert.ErrorIs(t, warnings[2], ErrHourUnavailable)

	assert.Empty(t, v.Warnings("", "", avail))
}

func TestMessageAndCode(t *testing.T) {
	assert.Equal(t, "day_unavailable", Code(ErrDayUnavailable))
	assert.Equal(t, "", Code(assert.AnError))
	assert.NotEqual(t, Message(ErrDayUnavailable), Message(ErrHourUnavailable))
}
