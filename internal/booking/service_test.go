package booking

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"homecare-portal/internal/availability"
	"homecare-portal/internal/backend"
	"homecare-portal/internal/cache"
	"homecare-portal/internal/mocks"
	"homecare-portal/internal/models"
	"homecare-portal/internal/telemetry"
)

var (
	monday  = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	session = models.Session{ID: "s1", Token: "tok", UserID: "u1"}
	plumber = models.Provider{
		ID:    "p1",
		Email: "plumber@example.com",
		Days:  []string{"Lunes", "Miércoles"},
		Hours: []string{"08:00-12:00"},
	}
)

func newTestService(b Backend, c cache.ProviderCache, e Emitter) *Service {
	v := availability.NewValidator(
		availability.WithLocation(time.UTC),
		availability.WithClock(func() time.Time { return monday }),
	)
	return NewService(b, c, v, e, nil)
}

func draft(date, start string) models.AppointmentDraft {
	return models.AppointmentDraft{
		Service:    "plumbing",
		Date:       date,
		StartTime:  start,
		Address:    "Calle Mayor 1",
		ProviderID: "p1",
	}
}

func TestSubmitCreatesAppointment(t *testing.T) {
	b := new(mocks.BackendMock)
	c := new(mocks.ProviderCacheMock)
	e := new(mocks.EmitterMock)
	svc := newTestService(b, c, e)

	c.On("GetProvider", mock.Anything, models.ID("p1")).Return(plumber, nil).Once()
	b.On("CreateAppointment", mock.Anything, "tok", mock.MatchedBy(func(d models.AppointmentDraft) bool {
		return d.ProviderEmail == "plumber@example.com" && d.Date == "2026-03-04"
	})).Return(models.Appointment{ID: "a9"}, nil).Once()
	e.On("Emit", mock.Anything, telemetry.EventAppointmentCreated, "req", "u1", mock.Anything).Once()

	appt, err := svc.Submit(context.Background(), session, "req", draft("2026-03-04", "09:30"))
	require.NoError(t, err)
	assert.Equal(t, models.ID("a9"), appt.ID)
	b.AssertExpectations(t)
	c.AssertExpectations(t)
	e.AssertExpectations(t)
}

func TestSubmitBlocksBeforeBackend(t *testing.T) {
	tests := []struct {
		name  string
		date  string
		start string
		want  error
	}{
		{name: "day not worked", date: "2026-03-03", start: "09:00", want: availability.ErrDayUnavailable},
		{name: "hour outside ranges", date: "2026-03-04", start: "13:00", want: availability.ErrHourUnavailable},
		{name: "today is not future", date: "2026-03-02", start: "09:00", want: availability.ErrDateNotFuture},
		{name: "bad date", date: "2026-02-30", start: "09:00", want: availability.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := new(mocks.BackendMock)
			c := new(mocks.ProviderCacheMock)
			svc := newTestService(b, c, nil)
			c.On("GetProvider", mock.Anything, models.ID("p1")).Return(plumber, nil)

			_, err := svc.Submit(context.Background(), session, "", draft(tt.date, tt.start))
			assert.ErrorIs(t, err, tt.want)
			b.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitRequiresFields(t *testing.T) {
	svc := newTestService(new(mocks.BackendMock), new(mocks.ProviderCacheMock), nil)

	d := draft("2026-03-04", "09:00")
	d.Address = "  "
	_, err := svc.Submit(context.Background(), session, "", d)
	require.ErrorIs(t, err, ErrMissingField)
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "address", missing.Field)
}

func TestSubmitProceedsWhenProviderLookupFails(t *testing.T) {
	b := new(mocks.BackendMock)
	c := new(mocks.ProviderCacheMock)
	svc := newTestService(b, c, nil)

	d := draft("2026-03-03", "20:00")
	d.ProviderEmail = "plumber@example.com"
	c.On("GetProvider", mock.Anything, models.ID("p1")).Return(nil, cache.ErrMiss).Once()
	b.On("GetProvider", mock.Anything, "tok", models.ID("p1")).Return(nil, fmt.Errorf("%w: refused", backend.ErrUnavailable)).Once()
	b.On("CreateAppointment", mock.Anything, "tok", mock.Anything).Return(models.Appointment{ID: "a1"}, nil).Once()

	_, err := svc.Submit(context.Background(), session, "", d)
	require.NoError(t, err)
	b.AssertExpectations(t)
}

func TestSubmitCachesFetchedProvider(t *testing.T) {
	b := new(mocks.BackendMock)
	c := new(mocks.ProviderCacheMock)
	svc := newTestService(b, c, nil)

	c.On("GetProvider", mock.Anything, models.ID("p1")).Return(nil, cache.ErrMiss).Once()
	b.On("GetProvider", mock.Anything, "tok", models.ID("p1")).Return(plumber, nil).Once()
	c.On("SetProvider", mock.Anything, plumber).Return(nil).Once()

	p, err := svc.Provider(context.Background(), session, "p1")
	require.NoError(t, err)
	assert.Equal(t, plumber, p)
	c.AssertExpectations(t)
}

func TestSubmitMapsBackendRejection(t *testing.T) {
	b := new(mocks.BackendMock)
	c := new(mocks.ProviderCacheMock)
	e := new(mocks.EmitterMock)
	svc := newTestService(b, c, e)

	c.On("GetProvider", mock.Anything, models.ID("p1")).Return(plumber, nil).Once()
	b.On("CreateAppointment", mock.Anything, "tok", mock.Anything).
		Return(nil, &backend.APIError{Status: http.StatusConflict, Message: "El horario ya está reservado"}).Once()
	e.On("Emit", mock.Anything, telemetry.EventAppointmentBlocked, "", "u1", mock.MatchedBy(func(p map[string]any) bool {
		return p["reason"] == string(RejectSlotTaken)
	})).Once()

	_, err := svc.Submit(context.Background(), session, "", draft("2026-03-04", "09:00"))
	rej, ok := AsRejected(err)
	require.True(t, ok)
	assert.Equal(t, RejectSlotTaken, rej.Reason)
	e.AssertExpectations(t)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Rejection
	}{
		{name: "code wins over text", err: &backend.APIError{Status: 400, Code: "hour_unavailable", Message: "no trabaja ese día"}, want: RejectHour},
		{name: "spanish day", err: &backend.APIError{Status: 400, Message: "El proveedor no trabaja ese día"}, want: RejectDay},
		{name: "spanish hour", err: &backend.APIError{Status: 400, Message: "Hora fuera del horario del proveedor"}, want: RejectHour},
		{name: "english slot", err: &backend.APIError{Status: 409, Message: "Slot already booked"}, want: RejectSlotTaken},
		{name: "service", err: &backend.APIError{Status: 400, Message: "El proveedor no ofrece ese servicio"}, want: RejectServiceNotOffered},
		{name: "plain 404", err: &backend.APIError{Status: 404, Message: "Not Found"}, want: RejectProviderNotFound},
		{name: "validation", err: &backend.APIError{Status: 400, Message: "date must be a valid ISO 8601 date string"}, want: RejectValidation},
		{name: "unknown", err: &backend.APIError{Status: 500, Message: "boom"}, want: RejectUnknown},
		{name: "not an api error", err: assert.AnError, want: RejectUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
			assert.NotEmpty(t, tt.want.Message())
		})
	}
}

func TestCheckSlotWarnings(t *testing.T) {
	c := new(mocks.ProviderCacheMock)
	svc := newTestService(new(mocks.BackendMock), c, nil)
	c.On("GetProvider", mock.Anything, models.ID("p1")).Return(plumber, nil).Once()

	warnings := svc.CheckSlot(context.Background(), session, "p1", "2026-03-03", "14:00")
	require.Len(t, warnings, 2)
	assert.ErrorIs(t, warnings[0], availability.ErrDayUnavailable)
	assert.ErrorIs(t, warnings[1], availability.ErrHourUnavailable)
}
