package sweeper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLastDuePointMonthly(t *testing.T) {
	loc := time.UTC

	t.Run("before the scheduled day falls back to previous month", func(t *testing.T) {
		now := time.Date(2025, time.March, 3, 12, 0, 0, 0, loc)
		got := lastDuePoint(now, 6, 0, 0)
		require.Equal(t, time.Date(2025, time.February, 6, 0, 0, 0, 0, loc), got)
	})

	t.Run("on the scheduled minute is due", func(t *testing.T) {
		now := time.Date(2025, time.March, 6, 0, 0, 0, 0, loc)
		got := lastDuePoint(now, 6, 0, 0)
		require.Equal(t, now, got)
	})

	t.Run("after the scheduled day stays in current month", func(t *testing.T) {
		now := time.Date(2025, time.March, 20, 9, 30, 0, 0, loc)
		got := lastDuePoint(now, 6, 0, 0)
		require.Equal(t, time.Date(2025, time.March, 6, 0, 0, 0, 0, loc), got)
	})

	t.Run("january falls back to december", func(t *testing.T) {
		now := time.Date(2025, time.January, 2, 0, 0, 0, 0, loc)
		got := lastDuePoint(now, 21, 0, 0)
		require.Equal(t, time.Date(2024, time.December, 21, 0, 0, 0, 0, loc), got)
	})
}

func TestLastDuePointDaily(t *testing.T) {
	loc := time.UTC

	t.Run("earlier than the hour falls back to yesterday", func(t *testing.T) {
		now := time.Date(2025, time.March, 10, 0, 30, 0, 0, loc)
		got := lastDuePoint(now, 0, 1, 0)
		require.Equal(t, time.Date(2025, time.March, 9, 1, 0, 0, 0, loc), got)
	})

	t.Run("later than the hour stays today", func(t *testing.T) {
		now := time.Date(2025, time.March, 10, 15, 0, 0, 0, loc)
		got := lastDuePoint(now, 0, 1, 0)
		require.Equal(t, time.Date(2025, time.March, 10, 1, 0, 0, 0, loc), got)
	})
}

func TestWatermarkCollapsesBacklog(t *testing.T) {
	loc := time.UTC
	// A process down from March 5 to March 23 sees exactly one due point for
	// the day-21 action, not one per missed tick.
	last := time.Date(2025, time.March, 5, 0, 0, 0, 0, loc)
	now := time.Date(2025, time.March, 23, 8, 0, 0, 0, loc)

	due := lastDuePoint(now, 21, 0, 0)
	require.True(t, due.After(last))
	require.Equal(t, time.Date(2025, time.March, 21, 0, 0, 0, 0, loc), due)

	// After running once with the watermark advanced, nothing further is due.
	require.False(t, lastDuePoint(now, 21, 0, 0).After(due))
}
