package search

import (
	"context"
	"testing"
	"time"

	v1 "github.com/kickback-hq/kickback/internal/api/v1"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockAggregateReader for testing
type mockAggregateReader struct {
	rows      []v1.DailyAggregate
	lastSince time.Time
	lastLimit int
	lastDocID int64
}

func (m *mockAggregateReader) Leaderboard(ctx context.Context, since time.Time, limit int) ([]v1.DailyAggregate, error) {
	m.lastSince = since
	m.lastLimit = limit
	return m.rows, nil
}

func (m *mockAggregateReader) DailyForDoc(ctx context.Context, docID int64) ([]v1.DailyAggregate, error) {
	m.lastDocID = docID
	return m.rows, nil
}

func newFixedClockService(reader AggregateReader, at time.Time) *Service {
	svc := NewService(reader)
	svc.now = func() time.Time { return at }
	return svc
}

func TestLeaderboard_WindowParsing(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		window    string
		wantSince time.Time
	}{
		{
			name:      "days window",
			window:    "7d",
			wantSince: time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "hours window",
			window:    "48h",
			wantSince: time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC),
		},
		{
			name:   "hours window crossing midnight",
			window: "15h",
			// 14:30 minus 15h lands on the previous calendar day.
			wantSince: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "zero-day window is today",
			window:    "0d",
			wantSince: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &mockAggregateReader{}
			svc := newFixedClockService(reader, now)

			_, err := svc.Leaderboard(context.Background(), tt.window, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSince, reader.lastSince)
			assert.Equal(t, 10, reader.lastLimit)
		})
	}
}

func TestLeaderboard_InvalidWindow(t *testing.T) {
	reader := &mockAggregateReader{}
	svc := NewService(reader)

	for _, window := range []string{"", "7", "7w", "d", "x7d", "7.5d"} {
		_, err := svc.Leaderboard(context.Background(), window, 10)
		require.ErrorIs(t, err, ErrInvalidWindow, "window %q", window)
	}
}

func TestLeaderboard_PassesRowsThrough(t *testing.T) {
	rows := []v1.DailyAggregate{
		{DocID: 7, Day: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), Views: 5, Edits: 2, RecencyScore: decimal.RequireFromString("18.0000")},
		{DocID: 9, Day: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC), Views: 1, Edits: 0, RecencyScore: decimal.RequireFromString("10.0000")},
	}
	svc := NewService(&mockAggregateReader{rows: rows})

	got, err := svc.Leaderboard(context.Background(), "7d", 10)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestDaily_ForwardsDocID(t *testing.T) {
	reader := &mockAggregateReader{}
	svc := NewService(reader)

	_, err := svc.Daily(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), reader.lastDocID)
}
