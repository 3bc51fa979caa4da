package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evelansk/grouppassbot/internal/models"
	"github.com/evelansk/grouppassbot/internal/period"
)

// SubscriptionRepository is the subscription ledger: one authoritative row per
// (user, plan) pair, at most one of them active. All mutations go through
// Commit or Deactivate so the invariant cannot be bypassed.
type SubscriptionRepository struct {
	db *sql.DB
}

func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, user_id, plan_id, group_id, start_ts, end_ts, payment_type, period_month, period_year, part_paid, COALESCE(invite_link, ''), active, removed`

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	var s models.Subscription
	var startTs, endTs int64
	var active, removed int
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.GroupID, &startTs, &endTs, &s.PaymentType, &s.PeriodMonth, &s.PeriodYear, &s.PartPaid, &s.InviteLink, &active, &removed); err != nil {
		return nil, err
	}
	s.StartTs = time.Unix(startTs, 0)
	s.EndTs = time.Unix(endTs, 0)
	s.Active = active != 0
	s.Removed = removed != 0
	return &s, nil
}

// FindActive returns the active row for the pair, or nil.
func (r *SubscriptionRepository) FindActive(ctx context.Context, userID, planID int64) (*models.Subscription, error) {
	const query = `
SELECT ` + subscriptionColumns + ` FROM subscriptions
WHERE user_id = ? AND plan_id = ? AND active = 1
ORDER BY end_ts DESC LIMIT 1`
	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, userID, planID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active subscription: %w", err)
	}
	return sub, nil
}

// FindRenewalAnchor returns the most recent inactive row for the pair, or nil.
// A renewal reuses it rather than inserting a duplicate.
func (r *SubscriptionRepository) FindRenewalAnchor(ctx context.Context, userID, planID int64) (*models.Subscription, error) {
	const query = `
SELECT ` + subscriptionColumns + ` FROM subscriptions
WHERE user_id = ? AND plan_id = ? AND active = 0
ORDER BY end_ts DESC LIMIT 1`
	sub, err := scanSubscription(r.db.QueryRowContext(ctx, query, userID, planID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find renewal anchor: %w", err)
	}
	return sub, nil
}

// ListActiveForUser returns all active rows across plans for the user.
func (r *SubscriptionRepository) ListActiveForUser(ctx context.Context, userID int64) ([]models.Subscription, error) {
	const query = `
SELECT ` + subscriptionColumns + ` FROM subscriptions
WHERE user_id = ? AND active = 1
ORDER BY end_ts DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list user subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

// ActivationRecord carries the outcome of a confirmed payment into the ledger.
type ActivationRecord struct {
	UserID      int64
	PlanID      int64
	GroupID     int64
	PaymentType models.PaymentType
	PeriodMonth int
	PeriodYear  int
	PartPaid    models.PartPaid
	EndTs       time.Time
	InviteLink  string
	Now         time.Time
}

// Commit applies the ledger transition rules for a confirmed payment, in
// priority order:
//
//  1. an active row for the current period is updated in place (covers the
//     first-half to full upgrade);
//  2. an active row for a different period with entitlement still running is
//     renewed: the new end is computed forward from whichever is later, now or
//     the old end, and the period fields move to the paid period;
//  3. with no active row, the latest inactive row is reused as the renewal
//     anchor;
//  4. otherwise a fresh row is inserted.
//
// The authoritative row is resolved under FOR UPDATE before any write, so two
// interleaved commits for the same pair cannot both insert and the
// single-active-row invariant holds. On error nothing is committed.
func (r *SubscriptionRepository) Commit(ctx context.Context, rec ActivationRecord) (*models.Subscription, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	const lockQuery = `
SELECT ` + subscriptionColumns + ` FROM subscriptions
WHERE user_id = ? AND plan_id = ? AND active = 1
ORDER BY end_ts DESC LIMIT 1
FOR UPDATE`
	existing, err := scanSubscription(tx.QueryRowContext(ctx, lockQuery, rec.UserID, rec.PlanID))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lock active subscription: %w", err)
	}

	var subID int64
	switch {
	case existing != nil && existing.CoversPeriod(rec.PeriodMonth, rec.PeriodYear):
		// Rule 1: same period, mutate in place.
		subID = existing.ID
		const query = `
UPDATE subscriptions
SET payment_type = ?, part_paid = ?, end_ts = ?, invite_link = ?, active = 1, removed = 0
WHERE id = ?`
		if _, err := tx.ExecContext(ctx, query, rec.PaymentType, rec.PartPaid, rec.EndTs.Unix(), rec.InviteLink, subID); err != nil {
			return nil, fmt.Errorf("update subscription: %w", err)
		}

	case existing != nil:
		// Rule 2 when the old entitlement still runs; an active row already
		// past its end is normalized the same way so the pair keeps a single
		// authoritative row.
		subID = existing.ID
		endTs := rec.EndTs
		if rec.PartPaid == models.PartPaidFull && existing.EndTs.After(rec.Now) {
			endTs = period.RenewalTermEnd(rec.Now, existing.EndTs)
		}
		if endTs.Before(existing.EndTs) {
			// Never shorten remaining access.
			endTs = existing.EndTs
		}
		const query = `
UPDATE subscriptions
SET payment_type = ?, part_paid = ?, period_month = ?, period_year = ?, end_ts = ?, invite_link = ?, active = 1, removed = 0
WHERE id = ?`
		if _, err := tx.ExecContext(ctx, query, rec.PaymentType, rec.PartPaid, rec.PeriodMonth, rec.PeriodYear, endTs.Unix(), rec.InviteLink, subID); err != nil {
			return nil, fmt.Errorf("renew subscription: %w", err)
		}

	default:
		const anchorQuery = `
SELECT ` + subscriptionColumns + ` FROM subscriptions
WHERE user_id = ? AND plan_id = ? AND active = 0
ORDER BY end_ts DESC LIMIT 1
FOR UPDATE`
		anchor, err := scanSubscription(tx.QueryRowContext(ctx, anchorQuery, rec.UserID, rec.PlanID))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lock renewal anchor: %w", err)
		}

		if anchor != nil {
			// Rule 3: revive the anchor row.
			subID = anchor.ID
			const query = `
UPDATE subscriptions
SET group_id = ?, payment_type = ?, part_paid = ?, period_month = ?, period_year = ?, end_ts = ?, invite_link = ?, active = 1, removed = 0
WHERE id = ?`
			if _, err := tx.ExecContext(ctx, query, rec.GroupID, rec.PaymentType, rec.PartPaid, rec.PeriodMonth, rec.PeriodYear, rec.EndTs.Unix(), rec.InviteLink, subID); err != nil {
				return nil, fmt.Errorf("revive subscription: %w", err)
			}
		} else {
			// Rule 4: first payment for this pair.
			const query = `
INSERT INTO subscriptions (user_id, plan_id, group_id, start_ts, end_ts, payment_type, period_month, period_year, part_paid, invite_link, active, removed)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, 0)`
			res, err := tx.ExecContext(ctx, query, rec.UserID, rec.PlanID, rec.GroupID, rec.Now.Unix(), rec.EndTs.Unix(), rec.PaymentType, rec.PeriodMonth, rec.PeriodYear, rec.PartPaid, rec.InviteLink)
			if err != nil {
				return nil, fmt.Errorf("insert subscription: %w", err)
			}
			subID, err = res.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("subscription last insert id: %w", err)
			}
		}
	}

	const readQuery = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = ?`
	sub, err := scanSubscription(tx.QueryRowContext(ctx, readQuery, subID))
	if err != nil {
		return nil, fmt.Errorf("read committed subscription: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit subscription tx: %w", err)
	}
	return sub, nil
}

// Deactivate marks the row revoked. The row is kept for renewal anchoring.
func (r *SubscriptionRepository) Deactivate(ctx context.Context, id int64) error {
	const query = `UPDATE subscriptions SET active = 0, removed = 1 WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}
	return nil
}

// RevocationCandidate is a row selected by the sweeper together with the plan
// title used in the user notification.
type RevocationCandidate struct {
	SubID     int64
	UserID    int64
	GroupID   int64
	PlanID    int64
	PlanTitle string
}

func (r *SubscriptionRepository) listCandidates(ctx context.Context, query string, args ...any) ([]RevocationCandidate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []RevocationCandidate
	for rows.Next() {
		var c RevocationCandidate
		if err := rows.Scan(&c.SubID, &c.UserID, &c.GroupID, &c.PlanID, &c.PlanTitle); err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// ListUnpaidForPeriod returns active rows credited to an older period with
// nothing paid at all.
func (r *SubscriptionRepository) ListUnpaidForPeriod(ctx context.Context, month, year int) ([]RevocationCandidate, error) {
	const query = `
SELECT s.id, s.user_id, s.group_id, s.plan_id, p.title
FROM subscriptions s
JOIN plans p ON s.plan_id = p.id
WHERE s.active = 1
  AND (s.period_month != ? OR s.period_year != ?)
  AND s.part_paid = 'none'`
	list, err := r.listCandidates(ctx, query, month, year)
	if err != nil {
		return nil, fmt.Errorf("list unpaid subscriptions: %w", err)
	}
	return list, nil
}

// ListPartialForPeriod returns active rows for the given period where only the
// first half was paid.
func (r *SubscriptionRepository) ListPartialForPeriod(ctx context.Context, month, year int) ([]RevocationCandidate, error) {
	const query = `
SELECT s.id, s.user_id, s.group_id, s.plan_id, p.title
FROM subscriptions s
JOIN plans p ON s.plan_id = p.id
WHERE s.active = 1
  AND s.part_paid = 'first'
  AND s.period_month = ? AND s.period_year = ?`
	list, err := r.listCandidates(ctx, query, month, year)
	if err != nil {
		return nil, fmt.Errorf("list partial subscriptions: %w", err)
	}
	return list, nil
}

// ListExpired returns active rows whose entitlement boundary has passed.
func (r *SubscriptionRepository) ListExpired(ctx context.Context, now time.Time) ([]RevocationCandidate, error) {
	const query = `
SELECT s.id, s.user_id, s.group_id, s.plan_id, p.title
FROM subscriptions s
JOIN plans p ON s.plan_id = p.id
WHERE s.active = 1 AND s.end_ts < ?`
	list, err := r.listCandidates(ctx, query, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("list expired subscriptions: %w", err)
	}
	return list, nil
}

// ListStalePeriodActive returns active rows not yet credited for the current
// period; the sweeper uses it for renewal reminders.
func (r *SubscriptionRepository) ListStalePeriodActive(ctx context.Context, month, year int) ([]RevocationCandidate, error) {
	const query = `
SELECT s.id, s.user_id, s.group_id, s.plan_id, p.title
FROM subscriptions s
JOIN plans p ON s.plan_id = p.id
WHERE s.active = 1
  AND (s.period_month != ? OR s.period_year != ?)`
	list, err := r.listCandidates(ctx, query, month, year)
	if err != nil {
		return nil, fmt.Errorf("list stale-period subscriptions: %w", err)
	}
	return list, nil
}
