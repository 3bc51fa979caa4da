package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/evelansk/grouppassbot/internal/config"
	"github.com/evelansk/grouppassbot/internal/models"
	"github.com/evelansk/grouppassbot/internal/period"
	"github.com/evelansk/grouppassbot/internal/repository"
)

// PaymentService drives the Telegram-payments checkout: invoice out, payload
// back, activation on success.
type PaymentService struct {
	cfg        config.Config
	invoices   *repository.InvoiceRepository
	promos     *PromoService
	activation *ActivationService
	log        *slog.Logger
	now        func() time.Time
}

func NewPaymentService(
	cfg config.Config,
	invoices *repository.InvoiceRepository,
	promos *PromoService,
	activation *ActivationService,
	log *slog.Logger,
) *PaymentService {
	return &PaymentService{
		cfg:        cfg,
		invoices:   invoices,
		promos:     promos,
		activation: activation,
		log:        log,
		now:        time.Now,
	}
}

// SendInvoice issues a Telegram invoice for one payment option. promo may be
// nil. renewalAnchor carries the current entitlement end for renewals so the
// payload survives the round trip through Telegram.
func (s *PaymentService) SendInvoice(ctx context.Context, bot *tgbotapi.BotAPI, chatID, userID int64, plan *models.Plan, option PaymentOption, promo *models.PromoCode, renewalAnchor *time.Time) error {
	price := ApplyDiscount(option.Price, promo)

	now := s.now()
	cur := period.Current(now)

	var promoID int64
	if promo != nil {
		promoID = promo.ID
	}
	payload := NewPaymentPayload(plan.ID, userID, option.Type, cur.Month, cur.Year, promoID)
	if renewalAnchor != nil {
		payload.RenewalEnd = renewalAnchor.Unix()
	}
	token := payload.Encode()

	inv := &models.Invoice{
		Payload:          token,
		UserID:           userID,
		PlanID:           plan.ID,
		AmountMinorUnits: price,
		PaymentType:      option.Type,
		PeriodMonth:      cur.Month,
		PeriodYear:       cur.Year,
		RenewalEndTs:     renewalAnchor,
		CreatedAt:        now,
	}
	if promo != nil {
		inv.PromoID = &promo.ID
	}
	if err := s.invoices.Put(ctx, inv); err != nil {
		return fmt.Errorf("store invoice: %w", err)
	}

	prices := []tgbotapi.LabeledPrice{{Label: option.Title, Amount: price}}
	invoice := tgbotapi.NewInvoice(chatID,
		fmt.Sprintf("%s — %s", plan.Title, option.Title),
		option.Description,
		token,
		s.cfg.PaymentProviderToken,
		"subscription",
		plan.Currency,
		prices,
	)
	if _, err := bot.Send(invoice); err != nil {
		return fmt.Errorf("send invoice: %w", err)
	}
	return nil
}

// HandlePreCheckout answers the pre-checkout query. Approval requires a
// pending invoice we issued ourselves; anything else is declined.
func (s *PaymentService) HandlePreCheckout(ctx context.Context, bot *tgbotapi.BotAPI, query *tgbotapi.PreCheckoutQuery) error {
	response := tgbotapi.PreCheckoutConfig{PreCheckoutQueryID: query.ID, OK: true}

	inv, err := s.invoices.Get(ctx, query.InvoicePayload)
	if err != nil || inv == nil {
		response.OK = false
		response.ErrorMessage = "Счёт устарел, начните оплату заново."
		if err != nil {
			s.log.Error("pre-checkout invoice lookup failed", "error", err)
		}
	}

	if _, err := bot.Request(response); err != nil {
		return fmt.Errorf("answer pre-checkout: %w", err)
	}
	return nil
}

// HandleSuccessfulPayment is the commit point: the payload is parsed strictly,
// the pending invoice is consumed, access is activated, and only then is a
// promo redemption recorded. Malformed payloads are rejected outright.
func (s *PaymentService) HandleSuccessfulPayment(ctx context.Context, payment *tgbotapi.SuccessfulPayment) (*ActivationResult, error) {
	payload, err := ParsePaymentPayload(payment.InvoicePayload)
	if err != nil {
		s.log.Error("rejecting payment with malformed payload",
			"payload", payment.InvoicePayload, "charge_id", payment.ProviderPaymentChargeID)
		return nil, err
	}

	if err := s.invoices.Delete(ctx, payment.InvoicePayload); err != nil {
		s.log.Warn("delete pending invoice failed", "error", err)
	}

	result, err := s.activation.Activate(ctx, payload.UserID, payload.PlanID, payload.PaymentType, payload.RenewalAnchor())
	if err != nil {
		return nil, err
	}

	if payload.PromoID > 0 {
		if err := s.promos.Redeem(ctx, payload.PromoID, payload.UserID); err != nil {
			// Access is already granted; losing the redemption record is the
			// lesser failure.
			s.log.Error("record promo redemption failed",
				"promo_id", payload.PromoID, "user_id", payload.UserID, "error", err)
		}
	}

	s.log.Info("payment processed",
		"user_id", payload.UserID,
		"plan_id", payload.PlanID,
		"payment_type", string(payload.PaymentType),
		"amount", payment.TotalAmount,
		"charge_id", payment.ProviderPaymentChargeID,
	)
	return result, nil
}

// PurgeStaleInvoices drops pending invoices older than the cutoff.
func (s *PaymentService) PurgeStaleInvoices(ctx context.Context, olderThan time.Duration) error {
	n, err := s.invoices.DeleteOlderThan(ctx, s.now().Add(-olderThan))
	if err != nil {
		return fmt.Errorf("purge invoices: %w", err)
	}
	if n > 0 {
		s.log.Info("purged stale invoices", "count", n)
	}
	return nil
}

// IsRejectable reports whether the error should bounce the payment update back
// to the operator rather than retry.
func IsRejectable(err error) bool {
	return errors.Is(err, ErrMalformedPayload) || errors.Is(err, ErrPlanNotFound)
}
