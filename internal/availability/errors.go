package availability

import "errors"

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidTime     = errors.New("invalid time")
	ErrInvalidRange    = errors.New("invalid time range")
	ErrDayUnavailable  = errors.New("provider does not work on the selected day")
	ErrHourUnavailable = errors.New("provider does not work at the selected hour")
	ErrDateNotFuture   = errors.New("date must be after today")
)

// Code returns a stable machine-readable code for a validation error.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidDate):
		return "invalid_date"
	case errors.Is(err, ErrInvalidTime):
		return "invalid_time"
	case errors.Is(err, ErrDayUnavailable):
		return "day_unavailable"
	case errors.Is(err, ErrHourUnavailable):
		return "hour_unavailable"
	case errors.Is(err, ErrDateNotFuture):
		return "date_not_future"
	default:
		return ""
	}
}

// Message returns the notice shown to the user for a validation error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidDate):
		return "Please choose a valid date."
	case errors.Is(err, ErrInvalidTime):
		return "Please choose a valid start time (HH:MM)."
	case errors.Is(err, ErrDayUnavailable):
		return "The provider does not work on the selected day."
	case errors.Is(err, ErrHourUnavailable):
		return "The provider does not work at the selected time."
	case errors.Is(err, ErrDateNotFuture):
		return "Appointments can only be booked from tomorrow onwards."
	default:
		return "The selected slot could not be validated."
	}
}
