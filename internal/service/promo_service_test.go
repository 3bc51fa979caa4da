package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evelansk/grouppassbot/internal/models"
)

func activePromo() *models.PromoCode {
	return &models.PromoCode{ID: 1, Code: "SPRING", DiscountPercent: 10, IsActive: true}
}

func TestCheckPromoOrdering(t *testing.T) {
	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	t.Run("missing code", func(t *testing.T) {
		require.ErrorIs(t, CheckPromo(nil, false, now), ErrPromoNotFound)
	})

	t.Run("already used wins over inactive", func(t *testing.T) {
		promo := activePromo()
		promo.IsActive = false
		require.ErrorIs(t, CheckPromo(promo, true, now), ErrPromoAlreadyUsed)
	})

	t.Run("inactive", func(t *testing.T) {
		promo := activePromo()
		promo.IsActive = false
		require.ErrorIs(t, CheckPromo(promo, false, now), ErrPromoInactive)
	})

	t.Run("exhausted", func(t *testing.T) {
		promo := activePromo()
		max := 5
		promo.MaxUses = &max
		promo.UsedCount = 5
		require.ErrorIs(t, CheckPromo(promo, false, now), ErrPromoExhausted)
	})

	t.Run("expired", func(t *testing.T) {
		promo := activePromo()
		past := now.Add(-time.Hour)
		promo.ExpiresAt = &past
		require.ErrorIs(t, CheckPromo(promo, false, now), ErrPromoExpired)
	})

	t.Run("valid", func(t *testing.T) {
		max := 5
		promo := activePromo()
		promo.MaxUses = &max
		promo.UsedCount = 4
		future := now.Add(time.Hour)
		promo.ExpiresAt = &future
		require.NoError(t, CheckPromo(promo, false, now))
	})
}

func TestApplyDiscount(t *testing.T) {
	t.Run("percent floors", func(t *testing.T) {
		promo := &models.PromoCode{DiscountPercent: 10}
		require.Equal(t, 900, ApplyDiscount(1000, promo))
		require.Equal(t, 91, ApplyDiscount(101, promo)) // 10.1 -> 10 off
	})

	t.Run("fixed amount", func(t *testing.T) {
		promo := &models.PromoCode{DiscountFixed: 150}
		require.Equal(t, 850, ApplyDiscount(1000, promo))
	})

	t.Run("fixed clamps to zero", func(t *testing.T) {
		promo := &models.PromoCode{DiscountFixed: 5000}
		require.Equal(t, 0, ApplyDiscount(1000, promo))
	})

	t.Run("nil promo is identity", func(t *testing.T) {
		require.Equal(t, 1000, ApplyDiscount(1000, nil))
	})
}
