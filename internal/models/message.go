package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// PendingPrefix marks locally synthesized message ids that the backend has not confirmed yet.
const PendingPrefix = "temp-"

// ID is a backend identifier. The marketplace API emits both numeric and string ids.
type ID string

// UnmarshalJSON accepts JSON strings and numbers.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// String returns the raw identifier.
func (id ID) String() string { return string(id) }

// Int returns the identifier as an integer when it is numeric.
func (id ID) Int() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	return n, err == nil
}

// UserRef is the compact user reference embedded in chat messages.
type UserRef struct {
	ID    ID     `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Message represents an appointment chat message.
type Message struct {
	ID            ID        `json:"id"`
	Content       string    `json:"content"`
	Read          bool      `json:"read"`
	CreatedAt     time.Time `json:"createdAt"`
	Sender        UserRef   `json:"sender"`
	Receiver      UserRef   `json:"receiver"`
	AppointmentID ID        `json:"appointmentId"`
}

// Pending reports whether the message is a local, unconfirmed entry.
func (m Message) Pending() bool {
	return strings.HasPrefix(string(m.ID), PendingPrefix)
}

// AddressedTo reports whether userID is the receiver of the message.
func (m Message) AddressedTo(userID ID) bool {
	return userID != "" && m.Receiver.ID == userID
}

// NewMessageRequest is the body of POST /chat/messages.
type NewMessageRequest struct {
	AppointmentID ID     `json:"appointmentId"`
	Content       string `json:"content"`
}

// Chat event types sent to browser websockets.
const (
	ChatEventSnapshot      = "snapshot"
	ChatEventError         = "error"
	ChatEventSessionClosed = "session_closed"
)

// ChatEvent is broadcasted to browser websockets.
type ChatEvent struct {
	Type          string    `json:"type"`
	AppointmentID ID        `json:"appointment_id,omitempty"`
	Messages      []Message `json:"messages,omitempty"`
	Draft         string    `json:"draft,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// ChatCommand is a frame sent by the browser over the chat websocket.
type ChatCommand struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}
