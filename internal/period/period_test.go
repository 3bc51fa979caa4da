package period

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var minsk = time.FixedZone("GMT+3", 3*60*60)

func at(day, hour int) time.Time {
	return time.Date(2025, time.March, day, hour, 0, 0, 0, minsk)
}

func TestPhaseOf_WindowBoundaries(t *testing.T) {
	cases := []struct {
		day  int
		want Phase
	}{
		{1, PhaseFirstWindow},
		{5, PhaseFirstWindow},
		{6, PhaseGap},
		{14, PhaseGap},
		{15, PhaseSecondWindow},
		{20, PhaseSecondWindow},
		{21, PhaseLate},
		{28, PhaseLate},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, PhaseOf(at(tc.day, 12)), "day %d", tc.day)
	}
}

func TestPhaseOf_IgnoresTimeOfDay(t *testing.T) {
	require.Equal(t, PhaseFirstWindow, PhaseOf(at(5, 23)))
	require.Equal(t, PhaseGap, PhaseOf(at(6, 0)))
}

func TestCurrent(t *testing.T) {
	p := Current(at(17, 9))
	require.Equal(t, Period{Month: 3, Year: 2025}, p)
}

func TestDeadlines(t *testing.T) {
	now := at(2, 10)
	require.Equal(t, time.Date(2025, time.March, 5, 23, 59, 59, 0, minsk), FirstDeadline(now))
	require.Equal(t, time.Date(2025, time.March, 20, 23, 59, 59, 0, minsk), SecondDeadline(now))
}

func TestFullTermEnd(t *testing.T) {
	end := FullTermEnd(at(3, 10))
	require.Equal(t, time.Date(2025, time.April, 5, 23, 59, 59, 0, minsk), end)
}

func TestFullTermEnd_DecemberRollsToJanuary(t *testing.T) {
	now := time.Date(2025, time.December, 22, 15, 0, 0, 0, minsk)
	end := FullTermEnd(now)
	require.Equal(t, time.Date(2026, time.January, 5, 23, 59, 59, 0, minsk), end)
}

func TestFirstPartEnd(t *testing.T) {
	end := FirstPartEnd(at(4, 10))
	require.Equal(t, time.Date(2025, time.March, 15, 23, 59, 59, 0, minsk), end)
}

func TestRenewalTermEnd_AnchorsToLaterOfNowAndExistingEnd(t *testing.T) {
	now := at(20, 12)
	anchor := time.Date(2025, time.April, 5, 23, 59, 59, 0, minsk)

	end := RenewalTermEnd(now, anchor)
	require.Equal(t, time.Date(2025, time.May, 5, 23, 59, 59, 0, minsk), end)
}

func TestRenewalTermEnd_ExpiredAnchorFallsBackToNow(t *testing.T) {
	now := at(10, 12)
	anchor := time.Date(2025, time.February, 5, 23, 59, 59, 0, minsk)

	end := RenewalTermEnd(now, anchor)
	require.Equal(t, time.Date(2025, time.April, 5, 23, 59, 59, 0, minsk), end)
	require.True(t, end.After(now))
}
