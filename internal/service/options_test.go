package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evelansk/grouppassbot/internal/models"
)

func day(d int) time.Time {
	return time.Date(2025, time.March, d, 12, 0, 0, 0, time.UTC)
}

func paidSub(part models.PartPaid, month, year int) *models.Subscription {
	return &models.Subscription{
		UserID:      10,
		PlanID:      1,
		PeriodMonth: month,
		PeriodYear:  year,
		PartPaid:    part,
		Active:      true,
	}
}

func TestResolveOptionsFirstWindowUnpaid(t *testing.T) {
	opts := ResolveOptions(nil, day(3), 1000)

	require.Len(t, opts, 2)
	require.Equal(t, models.PaymentFull, opts[0].Type)
	require.Equal(t, 1000, opts[0].Price)
	require.Equal(t, models.PaymentPartial, opts[1].Type)
	require.Equal(t, 500, opts[1].Price)
}

func TestResolveOptionsGapUnpaid(t *testing.T) {
	opts := ResolveOptions(nil, day(10), 1000)

	require.Len(t, opts, 1)
	require.Equal(t, models.PaymentFull, opts[0].Type)
	require.Equal(t, 1000, opts[0].Price)
}

func TestResolveOptionsSecondWindowAfterFirstHalf(t *testing.T) {
	sub := paidSub(models.PartPaidFirst, 3, 2025)
	opts := ResolveOptions(sub, day(17), 1000)

	require.Len(t, opts, 1)
	require.Equal(t, models.PaymentSecondPart, opts[0].Type)
	require.Equal(t, 500, opts[0].Price)
}

func TestResolveOptionsLatePhase(t *testing.T) {
	t.Run("unpaid gets half month", func(t *testing.T) {
		opts := ResolveOptions(nil, day(25), 1000)
		require.Len(t, opts, 1)
		require.Equal(t, models.PaymentHalfMonth, opts[0].Type)
		require.Equal(t, 500, opts[0].Price)
	})

	t.Run("first half paid gets late second part", func(t *testing.T) {
		sub := paidSub(models.PartPaidFirst, 3, 2025)
		opts := ResolveOptions(sub, day(25), 1000)
		require.Len(t, opts, 1)
		require.Equal(t, models.PaymentSecondPartLate, opts[0].Type)
	})
}

func TestResolveOptionsGapAfterFirstHalf(t *testing.T) {
	// Missing the day-15 boundary downgrades the completion to the late type
	// but keeps the half price.
	sub := paidSub(models.PartPaidFirst, 3, 2025)
	opts := ResolveOptions(sub, day(10), 1000)

	require.Len(t, opts, 1)
	require.Equal(t, models.PaymentSecondPartLate, opts[0].Type)
	require.Equal(t, 500, opts[0].Price)
}

func TestResolveOptionsFullyPaidIsEmpty(t *testing.T) {
	sub := paidSub(models.PartPaidFull, 3, 2025)
	for _, d := range []int{2, 10, 17, 28} {
		require.Empty(t, ResolveOptions(sub, day(d), 1000), "day %d", d)
	}
}

func TestResolveOptionsNeverOffersFullAfterFirstHalf(t *testing.T) {
	sub := paidSub(models.PartPaidFirst, 3, 2025)
	for _, d := range []int{2, 10, 17, 28} {
		for _, opt := range ResolveOptions(sub, day(d), 1000) {
			require.NotEqual(t, models.PaymentFull, opt.Type, "day %d", d)
		}
	}
}

func TestResolveOptionsStalePeriodTreatedAsUnpaid(t *testing.T) {
	// A row credited to February does not count as paid in March.
	sub := paidSub(models.PartPaidFull, 2, 2025)
	opts := ResolveOptions(sub, day(3), 1000)

	require.Len(t, opts, 2)
	require.Equal(t, models.PaymentFull, opts[0].Type)
}

func TestSplitPriceOddLosesMinorUnit(t *testing.T) {
	require.Equal(t, 500, SplitPrice(1001))
	require.Equal(t, 500, SplitPrice(1000))
	require.Equal(t, 0, SplitPrice(1))
}
