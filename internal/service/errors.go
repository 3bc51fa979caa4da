package service

import "errors"

var (
	// ErrNoGroupConfigured aborts activation before any mutation: the plan has
	// no target group and no default group exists.
	ErrNoGroupConfigured = errors.New("no group configured for plan")

	// ErrInviteIssuance aborts activation: without a fresh invite link there is
	// nothing to sell, so no ledger state is committed.
	ErrInviteIssuance = errors.New("invite link issuance failed")

	// ErrPlanNotFound is returned for unknown or deactivated plans.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrMalformedPayload marks a payment payload that failed strict parsing.
	// Such payments are rejected, never guessed at.
	ErrMalformedPayload = errors.New("malformed payment payload")

	ErrPromoNotFound    = errors.New("promo code not found")
	ErrPromoInactive    = errors.New("promo code inactive")
	ErrPromoExhausted   = errors.New("promo code exhausted")
	ErrPromoExpired     = errors.New("promo code expired")
	ErrPromoAlreadyUsed = errors.New("promo code already used")
)
