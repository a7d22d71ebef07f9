package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"homecare-portal/internal/models"
)

// GetAppointment fetches an appointment snapshot.
func (c *Client) GetAppointment(ctx context.Context, token string, id models.ID) (models.Appointment, error) {
	var appt models.Appointment
	path := fmt.Sprintf("/appointments/%s", url.PathEscape(id.String()))
	if err := c.do(ctx, http.MethodGet, path, token, nil, &appt); err != nil {
		return models.Appointment{}, err
	}
	return appt, nil
}

type createAppointmentRequest struct {
	Service       string `json:"service"`
	Date          string `json:"date"`
	StartTime     string `json:"startTime"`
	Notes         string `json:"notes"`
	ProviderEmail string `json:"providerEmail"`
	Address       string `json:"address"`
}

// CreateAppointment books an appointment.
func (c *Client) CreateAppointment(ctx context.Context, token string, draft models.AppointmentDraft) (models.Appointment, error) {
	req := createAppointmentRequest{
		Service:       draft.Service,
		Date:          draft.Date,
		StartTime:     draft.StartTime,
		Notes:         draft.Notes,
		ProviderEmail: draft.ProviderEmail,
		Address:       draft.Address,
	}
	var appt models.Appointment
	if err := c.do(ctx, http.MethodPost, "/appointments", token, req, &appt); err != nil {
		return models.Appointment{}, err
	}
	return appt, nil
}

// GetProvider fetches a provider record including declared availability.
func (c *Client) GetProvider(ctx context.Context, token string, id models.ID) (models.Provider, error) {
	var p models.Provider
	path := fmt.Sprintf("/provider/%s", url.PathEscape(id.String()))
	if err := c.do(ctx, http.MethodGet, path, token, nil, &p); err != nil {
		return models.Provider{}, err
	}
	return p, nil
}
