package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evelansk/grouppassbot/internal/models"
	"github.com/evelansk/grouppassbot/internal/repository"
)

func TestFillEntitlement(t *testing.T) {
	now := time.Date(2025, time.March, 3, 12, 0, 0, 0, time.UTC)

	t.Run("full payment runs to next settlement day", func(t *testing.T) {
		var rec repository.ActivationRecord
		fillEntitlement(&rec, models.PaymentFull, now, nil)

		require.Equal(t, 3, rec.PeriodMonth)
		require.Equal(t, 2025, rec.PeriodYear)
		require.Equal(t, models.PartPaidFull, rec.PartPaid)
		require.Equal(t, time.Date(2025, time.April, 5, 23, 59, 59, 0, time.UTC), rec.EndTs)
	})

	t.Run("first half runs to mid-month", func(t *testing.T) {
		var rec repository.ActivationRecord
		fillEntitlement(&rec, models.PaymentPartial, now, nil)

		require.Equal(t, models.PartPaidFirst, rec.PartPaid)
		require.Equal(t, time.Date(2025, time.March, 15, 23, 59, 59, 0, time.UTC), rec.EndTs)
	})

	t.Run("half month covers the remainder", func(t *testing.T) {
		late := time.Date(2025, time.March, 25, 9, 0, 0, 0, time.UTC)
		var rec repository.ActivationRecord
		fillEntitlement(&rec, models.PaymentHalfMonth, late, nil)

		require.Equal(t, models.PartPaidFull, rec.PartPaid)
		require.Equal(t, time.Date(2025, time.April, 5, 23, 59, 59, 0, time.UTC), rec.EndTs)
	})

	t.Run("renewal extends from the later of now and anchor", func(t *testing.T) {
		anchor := time.Date(2025, time.April, 5, 23, 59, 59, 0, time.UTC)
		var rec repository.ActivationRecord
		fillEntitlement(&rec, models.PaymentRenewal, now, &anchor)

		require.Equal(t, time.Date(2025, time.May, 5, 23, 59, 59, 0, time.UTC), rec.EndTs)
	})

	t.Run("renewal with expired anchor falls back to now", func(t *testing.T) {
		anchor := time.Date(2025, time.January, 5, 23, 59, 59, 0, time.UTC)
		var rec repository.ActivationRecord
		fillEntitlement(&rec, models.PaymentRenewal, now, &anchor)

		require.Equal(t, time.Date(2025, time.April, 5, 23, 59, 59, 0, time.UTC), rec.EndTs)
	})

	t.Run("december rolls into january", func(t *testing.T) {
		dec := time.Date(2025, time.December, 2, 10, 0, 0, 0, time.UTC)
		var rec repository.ActivationRecord
		fillEntitlement(&rec, models.PaymentFull, dec, nil)

		require.Equal(t, time.Date(2026, time.January, 5, 23, 59, 59, 0, time.UTC), rec.EndTs)
	})
}

func TestPairLocksSerializeSamePair(t *testing.T) {
	locks := newPairLocks()

	unlock := locks.Lock(1, 1)

	acquired := make(chan struct{})
	go func() {
		u := locks.Lock(1, 1)
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestPairLocksIndependentPairs(t *testing.T) {
	locks := newPairLocks()

	unlock := locks.Lock(1, 1)
	defer unlock()

	done := make(chan struct{})
	go func() {
		u := locks.Lock(1, 2)
		u()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("different pair blocked")
	}
}

func TestPairLocksReleaseIdempotent(t *testing.T) {
	locks := newPairLocks()
	unlock := locks.Lock(1, 1)
	unlock()
	unlock() // second call is a no-op

	u := locks.Lock(1, 1)
	u()
}
