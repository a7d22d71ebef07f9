package models

import "fmt"

// AppointmentDraft is the transient booking form state.
type AppointmentDraft struct {
	Service       string `json:"service"`
	Date          string `json:"date"`
	StartTime     string `json:"startTime"`
	Notes         string `json:"notes"`
	Address       string `json:"address"`
	ProviderEmail string `json:"providerEmail"`
	ProviderID    ID     `json:"providerId,omitempty"`
}

// Appointment is the backend snapshot of a booked appointment.
type Appointment struct {
	ID            ID     `json:"id"`
	Service       string `json:"service"`
	Date          string `json:"date"`
	StartHour     string `json:"startHour"`
	EndHour       string `json:"endHour"`
	Status        string `json:"status"`
	Notes         string `json:"notes,omitempty"`
	Address       string `json:"address,omitempty"`
	ProviderEmail string `json:"providerEmail,omitempty"`
	ClientEmail   string `json:"clientEmail,omitempty"`
}

// Label renders the chat header for the appointment.
func (a Appointment) Label() string {
	hours := a.StartHour
	if a.EndHour != "" {
		hours = fmt.Sprintf("%s-%s", a.StartHour, a.EndHour)
	}
	label := a.Date
	if hours != "" {
		label = fmt.Sprintf("%s %s", label, hours)
	}
	if a.Status != "" {
		label = fmt.Sprintf("%s (%s)", label, a.Status)
	}
	return label
}
