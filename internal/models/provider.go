package models

// Availability holds the provider declared working days and hour ranges.
type Availability struct {
	Days  []string `json:"days"`
	Hours []string `json:"hours"`
}

// Provider is the record returned by GET /provider/{id}.
type Provider struct {
	ID       ID       `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	Services []string `json:"services,omitempty"`
	Days     []string `json:"days"`
	Hours    []string `json:"hours"`
}

// Availability extracts the declared availability.
func (p Provider) Availability() Availability {
	return Availability{Days: p.Days, Hours: p.Hours}
}
