package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/evelansk/grouppassbot/internal/models"
	"github.com/evelansk/grouppassbot/internal/period"
	"github.com/evelansk/grouppassbot/internal/repository"
)

// GroupAccess is the gateway to the managed chat: invite issuance and
// membership control. The Telegram-backed implementation lives in
// internal/groupaccess.
type GroupAccess interface {
	CreateInviteLink(ctx context.Context, chatID int64, ttl time.Duration, memberLimit int) (string, error)
	Ban(ctx context.Context, chatID, userID int64) error
	Unban(ctx context.Context, chatID, userID int64) error
}

// ActivationService turns a confirmed payment into group access: a fresh
// single-use invite link plus the corresponding ledger commit.
type ActivationService struct {
	subs      *repository.SubscriptionRepository
	plans     *repository.PlanRepository
	groups    *repository.GroupRepository
	access    GroupAccess
	log       *slog.Logger
	inviteTTL time.Duration
	locks     *pairLocks
	now       func() time.Time
}

func NewActivationService(
	subs *repository.SubscriptionRepository,
	plans *repository.PlanRepository,
	groups *repository.GroupRepository,
	access GroupAccess,
	log *slog.Logger,
	inviteTTL time.Duration,
) *ActivationService {
	return &ActivationService{
		subs:      subs,
		plans:     plans,
		groups:    groups,
		access:    access,
		log:       log,
		inviteTTL: inviteTTL,
		locks:     newPairLocks(),
		now:       time.Now,
	}
}

// ActivationResult is what the caller presents to the user.
type ActivationResult struct {
	Subscription *models.Subscription
	InviteLink   string
	Plan         *models.Plan
}

// Activate grants access for a confirmed payment. The sequence is deliberate:
// the invite link is issued before any ledger write, so a Telegram failure
// leaves the ledger untouched and the payment can be retried or refunded.
// A previously banned member is unbanned first so the new link works for them;
// that step is best-effort.
//
// Activations for the same (user, plan) pair are serialized.
func (s *ActivationService) Activate(ctx context.Context, userID, planID int64, pt models.PaymentType, renewalAnchor *time.Time) (*ActivationResult, error) {
	unlock := s.locks.Lock(userID, planID)
	defer unlock()

	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}

	groupID, err := s.resolveGroup(ctx, plan)
	if err != nil {
		return nil, err
	}

	if err := s.access.Unban(ctx, groupID, userID); err != nil {
		s.log.Warn("unban before invite failed", "user_id", userID, "chat_id", groupID, "error", err)
	}

	link, err := s.access.CreateInviteLink(ctx, groupID, s.inviteTTL, 1)
	if err != nil {
		s.log.Error("invite link issuance failed", "user_id", userID, "chat_id", groupID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInviteIssuance, err)
	}

	now := s.now()
	rec := repository.ActivationRecord{
		UserID:      userID,
		PlanID:      planID,
		GroupID:     groupID,
		PaymentType: pt,
		InviteLink:  link,
		Now:         now,
	}
	fillEntitlement(&rec, pt, now, renewalAnchor)

	sub, err := s.subs.Commit(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("commit subscription: %w", err)
	}

	s.log.Info("subscription activated",
		"user_id", userID,
		"plan_id", planID,
		"payment_type", string(pt),
		"end_ts", sub.EndTs,
	)
	return &ActivationResult{Subscription: sub, InviteLink: link, Plan: plan}, nil
}

// Revoke removes a member from the group and marks the ledger row inactive.
// The ban is best-effort: a user who already left must still lose the row.
func (s *ActivationService) Revoke(ctx context.Context, subID, userID, groupID int64) error {
	if err := s.access.Ban(ctx, groupID, userID); err != nil {
		s.log.Warn("ban on revocation failed", "user_id", userID, "chat_id", groupID, "error", err)
	}
	if err := s.subs.Deactivate(ctx, subID); err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}
	s.log.Info("subscription revoked", "subscription_id", subID, "user_id", userID)
	return nil
}

func (s *ActivationService) resolveGroup(ctx context.Context, plan *models.Plan) (int64, error) {
	if plan.GroupID != nil {
		return *plan.GroupID, nil
	}
	def, err := s.groups.GetDefault(ctx)
	if err != nil {
		return 0, fmt.Errorf("load default group: %w", err)
	}
	if def == nil {
		return 0, ErrNoGroupConfigured
	}
	return def.ChatID, nil
}

// fillEntitlement derives the period credit and entitlement boundary from the
// payment type.
func fillEntitlement(rec *repository.ActivationRecord, pt models.PaymentType, now time.Time, renewalAnchor *time.Time) {
	cur := period.Current(now)
	rec.PeriodMonth = cur.Month
	rec.PeriodYear = cur.Year

	switch pt {
	case models.PaymentPartial:
		rec.PartPaid = models.PartPaidFirst
		rec.EndTs = period.FirstPartEnd(now)
	case models.PaymentRenewal:
		rec.PartPaid = models.PartPaidFull
		anchor := now
		if renewalAnchor != nil {
			anchor = *renewalAnchor
		}
		rec.EndTs = period.RenewalTermEnd(now, anchor)
	default:
		// full, full_anytime, second_part, second_part_late, half_month: the
		// period is fully covered and access runs to the next settlement day.
		rec.PartPaid = models.PartPaidFull
		rec.EndTs = period.FullTermEnd(now)
	}
}
