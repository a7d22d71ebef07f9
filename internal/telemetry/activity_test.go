package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"homecare-portal/internal/mocks"
)

func TestEmitBuildsEnvelope(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewActivityEmitter(pub, "portal", "homecare-portal", "test", nil)
	emitter.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	var got ActivityEnvelope
	pub.On("Publish", mock.Anything, "portal.appointment_created", mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(2).(ActivityEnvelope) }).
		Return(nil).Once()

	emitter.Emit(context.Background(), EventAppointmentCreated, "req-1", "u1", map[string]any{"appointment_id": "9"})

	pub.AssertExpectations(t)
	require.Equal(t, 1, got.SchemaVersion)
	assert.Equal(t, "portal_activity", got.EventType)
	assert.Equal(t, EventAppointmentCreated, got.EventName)
	assert.Equal(t, "2026-01-02T03:04:05Z", got.OccurredAt)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "9", got.Payload["appointment_id"])
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewActivityEmitter(pub, "portal", "svc", "test", nil)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError).Once()

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), EventLogin, "", "", nil)
	})
	pub.AssertExpectations(t)
}

func TestNilEmitterIsNoop(t *testing.T) {
	var emitter *ActivityEmitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), EventLogin, "", "", nil)
	})
}
