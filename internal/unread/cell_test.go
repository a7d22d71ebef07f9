package unread

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homecare-portal/internal/models"
)

func startCell(t *testing.T) *Cell {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	cell := NewCell()
	go cell.Run(ctx)
	return cell
}

func TestCellLastWriteWins(t *testing.T) {
	cell := startCell(t)
	ctx := t.Context()

	require.True(t, cell.Publish(ctx, SourcePoll, []models.UnreadEntry{{AppointmentID: "1", CounterpartID: "p1", Count: 2}}))
	require.True(t, cell.Publish(ctx, SourcePush, []models.UnreadEntry{{AppointmentID: "1", CounterpartID: "p1", Count: 5}}))

	state, ok := cell.Snapshot(ctx)
	require.True(t, ok)
	assert.Equal(t, SourcePush, state.Source)
	assert.Equal(t, uint64(2), state.Version)
	require.Len(t, state.Entries, 1)
	assert.Equal(t, 5, state.Entries[0].Count)
}

func TestCellSnapshotIsACopy(t *testing.T) {
	cell := startCell(t)
	ctx := t.Context()
	require.True(t, cell.Publish(ctx, SourcePoll, []models.UnreadEntry{{CounterpartID: "p1", Count: 1}}))

	state, ok := cell.Snapshot(ctx)
	require.True(t, ok)
	state.Entries[0].Count = 99

	again, ok := cell.Snapshot(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, again.Entries[0].Count)
}

func TestCellWatch(t *testing.T) {
	cell := startCell(t)
	ctx := t.Context()

	updates, ok := cell.Watch(ctx)
	require.True(t, ok)
	require.True(t, cell.Publish(ctx, SourcePush, []models.UnreadEntry{{CounterpartID: "p1", Count: 3}}))

	select {
	case s := <-updates:
		assert.Equal(t, SourcePush, s.Source)
		assert.Equal(t, 3, s.Entries[0].Count)
	case <-time.After(time.Second):
		t.Fatal("watcher did not receive update")
	}
}

func TestCellWatcherSeesLatestState(t *testing.T) {
	cell := startCell(t)
	ctx := t.Context()

	updates, ok := cell.Watch(ctx)
	require.True(t, ok)
	require.True(t, cell.Publish(ctx, SourcePoll, []models.UnreadEntry{{CounterpartID: "p1", Count: 3}}))
	require.True(t, cell.Publish(ctx, SourcePush, []models.UnreadEntry{{CounterpartID: "p1", Count: 0}}))

	// Snapshot round-trips through the owner, so both publishes are applied.
	_, ok = cell.Snapshot(ctx)
	require.True(t, ok)

	select {
	case s := <-updates:
		assert.Equal(t, uint64(2), s.Version)
		assert.Equal(t, SourcePush, s.Source)
		require.Len(t, s.Entries, 1)
		assert.Equal(t, 0, s.Entries[0].Count)
	case <-time.After(time.Second):
		t.Fatal("watcher did not receive update")
	}

	select {
	case s := <-updates:
		t.Fatalf("unexpected extra state version %d", s.Version)
	default:
	}
}

func TestCellWatchEndsWithContext(t *testing.T) {
	cell := startCell(t)

	watchCtx, cancel := context.WithCancel(t.Context())
	updates, ok := cell.Watch(watchCtx)
	require.True(t, ok)
	cancel()

	select {
	case _, open := <-updates:
		assert.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("watcher channel was not closed")
	}

	// The cell keeps serving other callers after a watcher leaves.
	require.True(t, cell.Publish(t.Context(), SourcePoll, nil))
}

func TestCellStopped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cell := NewCell()
	done := make(chan struct{})
	go func() {
		cell.Run(ctx)
		close(done)
	}()
	cancel()
	<-done

	assert.False(t, cell.Publish(context.Background(), SourcePoll, nil))
	_, ok := cell.Snapshot(context.Background())
	assert.False(t, ok)
}

func TestAggregate(t *testing.T) {
	totals := Aggregate([]models.UnreadEntry{
		{AppointmentID: "1", CounterpartID: "ana", CounterpartName: "Ana", Count: 1},
		{AppointmentID: "2", CounterpartID: "bo", CounterpartName: "Bo", Count: 4},
		{AppointmentID: "3", CounterpartID: "ana", CounterpartName: "Ana", Count: 2},
		{AppointmentID: "4", CounterpartID: "cy", CounterpartName: "Cy", Count: 0},
		{AppointmentID: "5", CounterpartID: "dee", CounterpartName: "Dee", Count: 3},
	})

	require.Len(t, totals, 3)
	assert.Equal(t, models.PersonTotal{UserID: "bo", Name: "Bo", Count: 4, Appointments: []models.ID{"2"}}, totals[0])
	assert.Equal(t, models.PersonTotal{UserID: "ana", Name: "Ana", Count: 3, Appointments: []models.ID{"1", "3"}}, totals[1])
	assert.Equal(t, models.ID("dee"), totals[2].UserID)

	assert.Empty(t, Aggregate(nil))
	assert.NotNil(t, Aggregate(nil))
}
