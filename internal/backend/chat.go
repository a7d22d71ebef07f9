package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"homecare-portal/internal/models"
)

// ListMessages returns the ordered chat history of an appointment.
func (c *Client) ListMessages(ctx context.Context, token string, appointmentID models.ID) ([]models.Message, error) {
	var msgs []models.Message
	path := fmt.Sprintf("/chat/messages/%s", url.PathEscape(appointmentID.String()))
	if err := c.do(ctx, http.MethodGet, path, token, nil, &msgs); err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

// SendMessage creates a chat message.
func (c *Client) SendMessage(ctx context.Context, token string, appointmentID models.ID, content string) (models.Message, error) {
	var msg models.Message
	req := models.NewMessageRequest{AppointmentID: appointmentID, Content: content}
	if err := c.do(ctx, http.MethodPost, "/chat/messages", token, req, &msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// MarkRead marks every message addressed to the caller in the appointment as read.
func (c *Client) MarkRead(ctx context.Context, token string, appointmentID models.ID) error {
	path := fmt.Sprintf("/chat/appointments/%s/read", url.PathEscape(appointmentID.String()))
	return c.do(ctx, http.MethodPatch, path, token, nil, nil)
}

// UnreadSummary returns the caller's unread counts per appointment and counterpart.
func (c *Client) UnreadSummary(ctx context.Context, token string) ([]models.UnreadEntry, error) {
	var entries []models.UnreadEntry
	if err := c.do(ctx, http.MethodGet, "/chat/unread-summary", token, nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
