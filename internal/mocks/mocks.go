package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"homecare-portal/internal/models"
	"homecare-portal/internal/repositories"
)

// BackendMock doubles the marketplace API client.
type BackendMock struct {
	mock.Mock
}

func (m *BackendMock) Login(ctx context.Context, email, password string) (string, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Error(1)
}

func (m *BackendMock) ListMessages(ctx context.Context, token string, appointmentID models.ID) ([]models.Message, error) {
	args := m.Called(ctx, token, appointmentID)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

func (m *BackendMock) SendMessage(ctx context.Context, token string, appointmentID models.ID, content string) (models.Message, error) {
	args := m.Called(ctx, token, appointmentID, content)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *BackendMock) MarkRead(ctx context.Context, token string, appointmentID models.ID) error {
	args := m.Called(ctx, token, appointmentID)
	return args.Error(0)
}

func (m *BackendMock) UnreadSummary(ctx context.Context, token string) ([]models.UnreadEntry, error) {
	args := m.Called(ctx, token)
	var list []models.UnreadEntry
	if val := args.Get(0); val != nil {
		list = val.([]models.UnreadEntry)
	}
	return list, args.Error(1)
}

func (m *BackendMock) GetAppointment(ctx context.Context, token string, id models.ID) (models.Appointment, error) {
	args := m.Called(ctx, token, id)
	var appt models.Appointment
	if val := args.Get(0); val != nil {
		appt = val.(models.Appointment)
	}
	return appt, args.Error(1)
}

func (m *BackendMock) CreateAppointment(ctx context.Context, token string, draft models.AppointmentDraft) (models.Appointment, error) {
	args := m.Called(ctx, token, draft)
	var appt models.Appointment
	if val := args.Get(0); val != nil {
		appt = val.(models.Appointment)
	}
	return appt, args.Error(1)
}

func (m *BackendMock) GetProvider(ctx context.Context, token string, id models.ID) (models.Provider, error) {
	args := m.Called(ctx, token, id)
	var p models.Provider
	if val := args.Get(0); val != nil {
		p = val.(models.Provider)
	}
	return p, args.Error(1)
}

type SessionRepositoryMock struct {
	mock.Mock
}

var _ repositories.SessionRepository = (*SessionRepositoryMock)(nil)

func (m *SessionRepositoryMock) CreateSession(ctx context.Context, s models.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *SessionRepositoryMock) GetSession(ctx context.Context, id string) (models.Session, error) {
	args := m.Called(ctx, id)
	var s models.Session
	if val := args.Get(0); val != nil {
		s = val.(models.Session)
	}
	return s, args.Error(1)
}

func (m *SessionRepositoryMock) DeleteSession(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *SessionRepositoryMock) DeleteExpired(ctx context.Context, now time.Time) ([]models.Session, error) {
	args := m.Called(ctx, now)
	var list []models.Session
	if val := args.Get(0); val != nil {
		list = val.([]models.Session)
	}
	return list, args.Error(1)
}

type ProviderCacheMock struct {
	mock.Mock
}

func (m *ProviderCacheMock) GetProvider(ctx context.Context, id models.ID) (models.Provider, error) {
	args := m.Called(ctx, id)
	var p models.Provider
	if val := args.Get(0); val != nil {
		p = val.(models.Provider)
	}
	return p, args.Error(1)
}

func (m *ProviderCacheMock) SetProvider(ctx context.Context, p models.Provider) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

type EmitterMock struct {
	mock.Mock
}

func (m *EmitterMock) Emit(ctx context.Context, name, requestID, userID string, payload map[string]any) {
	m.Called(ctx, name, requestID, userID, payload)
}
