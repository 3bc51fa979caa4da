package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/evelansk/grouppassbot/internal/models"
)

func TestStateManagerExpiry(t *testing.T) {
	m := NewStateManager(30 * time.Minute)
	current := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	m.Set(1, &Session{State: StateAwaitingPromo, PlanID: 5})

	got := m.Get(1)
	require.Equal(t, StateAwaitingPromo, got.State)
	require.Equal(t, int64(5), got.PlanID)

	current = current.Add(29 * time.Minute)
	require.Equal(t, StateAwaitingPromo, m.Get(1).State)

	current = current.Add(2 * time.Minute)
	got = m.Get(1)
	require.Equal(t, StateIdle, got.State)
	require.Zero(t, got.PlanID)
}

func TestStateManagerSetRefreshesTTL(t *testing.T) {
	m := NewStateManager(30 * time.Minute)
	current := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	m.Set(1, &Session{State: StateAwaitingReceipt})

	current = current.Add(20 * time.Minute)
	session := m.Get(1)
	session.ReceiptFile = "file123"
	m.Set(1, session)

	current = current.Add(20 * time.Minute)
	got := m.Get(1)
	require.Equal(t, StateAwaitingReceipt, got.State)
	require.Equal(t, "file123", got.ReceiptFile)
}

func TestStateManagerReset(t *testing.T) {
	m := NewStateManager(30 * time.Minute)
	m.Set(1, &Session{State: StateAwaitingPromo, Promo: &models.PromoCode{ID: 1}})
	m.Reset(1)

	got := m.Get(1)
	require.Equal(t, StateIdle, got.State)
	require.Nil(t, got.Promo)
}

func TestStateManagerEvictExpired(t *testing.T) {
	m := NewStateManager(30 * time.Minute)
	current := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return current }

	m.Set(1, &Session{State: StateAwaitingPromo})
	m.Set(2, &Session{State: StateAwaitingReceipt})

	current = current.Add(10 * time.Minute)
	m.Set(2, m.Get(2))

	current = current.Add(25 * time.Minute)
	m.evictExpired()

	m.mu.RLock()
	_, hasOld := m.sessions[1]
	_, hasFresh := m.sessions[2]
	m.mu.RUnlock()
	require.False(t, hasOld)
	require.True(t, hasFresh)
}
