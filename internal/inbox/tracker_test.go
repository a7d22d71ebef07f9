package inbox

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"homecare-portal/internal/mocks"
	"homecare-portal/internal/models"
	"homecare-portal/internal/unread"
)

func TestEnsurePollsBeforeReturning(t *testing.T) {
	source := new(mocks.BackendMock)
	source.On("UnreadSummary", mock.Anything, "tok").Return([]models.UnreadEntry{
		{AppointmentID: "a1", CounterpartID: "p1", CounterpartName: "Luis", Count: 2},
	}, nil)

	tracker := NewTracker(source, Config{PollInterval: time.Hour})
	defer tracker.Close()

	cell := tracker.Ensure(context.Background(), models.Session{ID: "s1", Token: "tok"})
	state, ok := cell.Snapshot(context.Background())
	require.True(t, ok)
	assert.Equal(t, unread.SourcePoll, state.Source)
	assert.Len(t, state.Entries, 1)

	again := tracker.Ensure(context.Background(), models.Session{ID: "s1", Token: "tok"})
	assert.Same(t, cell, again)
	source.AssertNumberOfCalls(t, "UnreadSummary", 1)
}

func TestStopEndsTracking(t *testing.T) {
	source := new(mocks.BackendMock)
	source.On("UnreadSummary", mock.Anything, "tok").Return(nil, assert.AnError)

	tracker := NewTracker(source, Config{PollInterval: time.Hour})
	cell := tracker.Ensure(context.Background(), models.Session{ID: "s1", Token: "tok"})
	require.Equal(t, 1, tracker.Len())

	tracker.Stop("s1")
	assert.Zero(t, tracker.Len())
	_, ok := tracker.Lookup("s1")
	assert.False(t, ok)
	_, ok = cell.Snapshot(context.Background())
	assert.False(t, ok, "stopped cell refuses reads")

	assert.NotPanics(t, func() { tracker.Stop("s1") })
}

func TestConcurrentEnsureAndStop(t *testing.T) {
	source := new(mocks.BackendMock)
	source.On("UnreadSummary", mock.Anything, "tok").Return([]models.UnreadEntry{}, nil)

	tracker := NewTracker(source, Config{PollInterval: time.Hour})
	s := models.Session{ID: "s1", Token: "tok"}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tracker.Ensure(context.Background(), s)
		}()
		go func() {
			defer wg.Done()
			tracker.Stop(s.ID)
		}()
	}
	wg.Wait()

	tracker.Close()
	assert.Zero(t, tracker.Len())
}
