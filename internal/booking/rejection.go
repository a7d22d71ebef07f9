package booking

import (
	"errors"
	"strings"

	"homecare-portal/internal/backend"
)

// Rejection classifies why the backend refused a booking.
type Rejection string

const (
	RejectDay               Rejection = "day_unavailable"
	RejectHour              Rejection = "hour_unavailable"
	RejectSlotTaken         Rejection = "slot_taken"
	RejectServiceNotOffered Rejection = "service_not_offered"
	RejectProviderNotFound  Rejection = "provider_not_found"
	RejectValidation        Rejection = "validation_failed"
	RejectUnknown           Rejection = "unknown"
)

var rejectionMessages = map[Rejection]string{
	RejectDay:               "The provider does not work on the selected day.",
	RejectHour:              "The provider does not work at the selected time.",
	RejectSlotTaken:         "That time slot is already booked. Please choose another one.",
	RejectServiceNotOffered: "The provider does not offer the selected service.",
	RejectProviderNotFound:  "The provider could not be found.",
	RejectValidation:        "Some booking details are invalid. Please review the form.",
	RejectUnknown:           "The appointment could not be created. Please try again.",
}

// Message returns the notice shown to the user.
func (r Rejection) Message() string {
	if msg, ok := rejectionMessages[r]; ok {
		return msg
	}
	return rejectionMessages[RejectUnknown]
}

// codeRejections maps structured backend codes. They take precedence over text matching.
var codeRejections = map[string]Rejection{
	"DAY_UNAVAILABLE":     RejectDay,
	"HOUR_UNAVAILABLE":    RejectHour,
	"SLOT_TAKEN":          RejectSlotTaken,
	"SLOT_ALREADY_BOOKED": RejectSlotTaken,
	"SERVICE_NOT_OFFERED": RejectServiceNotOffered,
	"PROVIDER_NOT_FOUND":  RejectProviderNotFound,
	"VALIDATION_FAILED":   RejectValidation,
}

// textRules are checked in order; the first match wins. The backend emits Spanish texts,
// English variants are accepted too.
var textRules = []struct {
	rejection Rejection
	needles   []string
}{
	{RejectSlotTaken, []string{"ya está reservad", "ya esta reservad", "ocupad", "already booked", "not available at that time", "slot taken"}},
	{RejectDay, []string{"no trabaja ese día", "no trabaja ese dia", "día no disponible", "dia no disponible", "does not work on", "day not available"}},
	{RejectHour, []string{"fuera del horario", "hora no disponible", "horario no disponible", "outside working hours", "hour not available"}},
	{RejectServiceNotOffered, []string{"no ofrece", "servicio no disponible", "does not offer", "service not offered"}},
	{RejectProviderNotFound, []string{"proveedor no encontrado", "provider not found"}},
	{RejectValidation, []string{"validation", "validación", "validacion", "inválid", "invalid", "must be", "debe ser"}},
}

// Classify maps a backend rejection to a Rejection.
func Classify(err error) Rejection {
	apiErr, ok := backend.AsAPIError(err)
	if !ok {
		return RejectUnknown
	}
	if r, ok := codeRejections[strings.ToUpper(apiErr.Code)]; ok {
		return r
	}
	text := strings.ToLower(apiErr.Message)
	for _, rule := range textRules {
		for _, needle := range rule.needles {
			if strings.Contains(text, needle) {
				return rule.rejection
			}
		}
	}
	if apiErr.NotFound() {
		return RejectProviderNotFound
	}
	return RejectUnknown
}

// RejectedError is returned when the backend refuses a booking.
type RejectedError struct {
	Reason Rejection
	Err    error
}

func (e *RejectedError) Error() string {
	return "appointment rejected (" + string(e.Reason) + "): " + e.Err.Error()
}

func (e *RejectedError) Unwrap() error { return e.Err }

// AsRejected unwraps err into a *RejectedError.
func AsRejected(err error) (*RejectedError, bool) {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
