package telegram

import (
	"context"
	"sync"
	"time"

	"github.com/evelansk/grouppassbot/internal/models"
)

type SessionState int

const (
	StateIdle SessionState = iota
	StateAwaitingPromo
	StateAwaitingReceipt
	StateAwaitingFullName
)

// Session is the per-chat conversational state of a checkout in progress.
// Sessions expire after the configured TTL so an abandoned flow cannot
// resurface days later with stale pricing.
type Session struct {
	State       SessionState
	PlanID      int64
	Option      *sessionOption
	Promo       *models.PromoCode
	ReceiptFile string
	touchedAt   time.Time
}

// sessionOption pins the option the user picked so the invoice matches the
// button they pressed even if the phase flips mid-flow.
type sessionOption struct {
	Type  models.PaymentType
	Price int
	Title string
	Desc  string
}

type StateManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStateManager(ttl time.Duration) *StateManager {
	return &StateManager{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the live session for the chat, or a fresh idle one. Expired
// sessions are treated as absent.
func (m *StateManager) Get(chatID int64) *Session {
	m.mu.RLock()
	session, ok := m.sessions[chatID]
	m.mu.RUnlock()
	if ok && m.now().Sub(session.touchedAt) < m.ttl {
		return session
	}
	return &Session{State: StateIdle}
}

func (m *StateManager) Set(chatID int64, session *Session) {
	session.touchedAt = m.now()
	m.mu.Lock()
	m.sessions[chatID] = session
	m.mu.Unlock()
}

func (m *StateManager) Reset(chatID int64) {
	m.mu.Lock()
	delete(m.sessions, chatID)
	m.mu.Unlock()
}

// RunJanitor evicts expired sessions until ctx is cancelled.
func (m *StateManager) RunJanitor(ctx context.Context) {
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *StateManager) evictExpired() {
	cutoff := m.now().Add(-m.ttl)
	m.mu.Lock()
	for chatID, session := range m.sessions {
		if session.touchedAt.Before(cutoff) {
			delete(m.sessions, chatID)
		}
	}
	m.mu.Unlock()
}
