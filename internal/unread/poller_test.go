package unread

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"homecare-portal/internal/models"
)

type summaryMock struct {
	mock.Mock
}

func (m *summaryMock) UnreadSummary(ctx context.Context, token string) ([]models.UnreadEntry, error) {
	args := m.Called(ctx, token)
	var entries []models.UnreadEntry
	if val := args.Get(0); val != nil {
		entries = val.([]models.UnreadEntry)
	}
	return entries, args.Error(1)
}

func TestPollerTickPublishes(t *testing.T) {
	cell := startCell(t)
	source := new(summaryMock)
	source.On("UnreadSummary", mock.Anything, "tok").Return([]models.UnreadEntry{{CounterpartID: "p", Count: 1}}, nil).Once()

	p := NewPoller(source, cell, "tok", 0, nil)
	require.True(t, p.Tick(t.Context()))

	state, ok := cell.Snapshot(t.Context())
	require.True(t, ok)
	assert.Equal(t, SourcePoll, state.Source)
	source.AssertExpectations(t)
}

func TestPollerTickSwallowsErrors(t *testing.T) {
	cell := startCell(t)
	source := new(summaryMock)
	source.On("UnreadSummary", mock.Anything, "tok").Return(nil, assert.AnError).Once()

	p := NewPoller(source, cell, "tok", 0, nil)
	assert.False(t, p.Tick(t.Context()))

	state, ok := cell.Snapshot(t.Context())
	require.True(t, ok)
	assert.Zero(t, state.Version)
	source.AssertExpectations(t)
}
