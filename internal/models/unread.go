package models

// UnreadEntry is one row of the unread summary: unread messages from a counterpart in one appointment.
type UnreadEntry struct {
	AppointmentID   ID     `json:"appointmentId"`
	CounterpartID   ID     `json:"counterpartId"`
	CounterpartName string `json:"counterpartName,omitempty"`
	Count           int    `json:"count"`
}

// PersonTotal aggregates unread counts per counterpart.
type PersonTotal struct {
	UserID       ID     `json:"user_id"`
	Name         string `json:"name,omitempty"`
	Count        int    `json:"count"`
	Appointments []ID   `json:"appointments"`
}
