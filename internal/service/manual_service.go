package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/evelansk/grouppassbot/internal/models"
	"github.com/evelansk/grouppassbot/internal/period"
)

// ReceiptArchiver stores a copy of a payment receipt and returns its URL.
// Implemented by the S3 uploader; nil disables archival.
type ReceiptArchiver interface {
	Upload(ctx context.Context, body io.Reader, contentType string) (string, error)
}

// Notifier delivers a plain text message to a user. Best-effort: a blocked bot
// must not fail the review.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// manualPaymentStore is the slice of the manual-payment repository this
// service needs.
type manualPaymentStore interface {
	Create(ctx context.Context, mp *models.ManualPayment) (*models.ManualPayment, error)
	GetByID(ctx context.Context, id int64) (*models.ManualPayment, error)
	ListPending(ctx context.Context) ([]models.ManualPayment, error)
	MarkReviewed(ctx context.Context, id, adminID int64, status models.ManualPaymentStatus, reviewedAt time.Time) error
	Reopen(ctx context.Context, id int64) error
	SetReceiptURL(ctx context.Context, id int64, url string) error
}

// activator grants access for a confirmed payment.
type activator interface {
	Activate(ctx context.Context, userID, planID int64, pt models.PaymentType, renewalAnchor *time.Time) (*ActivationResult, error)
}

// promoRedeemer records a promo usage for a confirmed payment.
type promoRedeemer interface {
	Redeem(ctx context.Context, promoID, userID int64) error
}

var errAlreadyReviewed = fmt.Errorf("manual payment already reviewed")

// ManualPaymentService handles transfer-by-receipt payments: the user submits
// a receipt, an admin approves or rejects it.
type ManualPaymentService struct {
	payments   manualPaymentStore
	promos     promoRedeemer
	activation activator
	archiver   ReceiptArchiver
	notifier   Notifier
	log        *slog.Logger
	now        func() time.Time
}

func NewManualPaymentService(
	payments manualPaymentStore,
	promos promoRedeemer,
	activation activator,
	archiver ReceiptArchiver,
	notifier Notifier,
	log *slog.Logger,
) *ManualPaymentService {
	return &ManualPaymentService{
		payments:   payments,
		promos:     promos,
		activation: activation,
		archiver:   archiver,
		notifier:   notifier,
		log:        log,
		now:        time.Now,
	}
}

type SubmitManualInput struct {
	UserID      int64
	Plan        *models.Plan
	Option      PaymentOption
	Promo       *models.PromoCode
	ReceiptFile string
	FullName    string
}

// Submit records a pending manual payment awaiting admin review. The payment
// is credited to the period it was submitted in.
func (s *ManualPaymentService) Submit(ctx context.Context, input SubmitManualInput) (*models.ManualPayment, error) {
	if input.ReceiptFile == "" {
		return nil, fmt.Errorf("receipt is required")
	}
	now := s.now()
	cur := period.Current(now)
	mp := &models.ManualPayment{
		UserID:           input.UserID,
		PlanID:           input.Plan.ID,
		AmountMinorUnits: ApplyDiscount(input.Option.Price, input.Promo),
		PaymentType:      input.Option.Type,
		PeriodMonth:      cur.Month,
		PeriodYear:       cur.Year,
		ReceiptFileID:    input.ReceiptFile,
		FullName:         input.FullName,
		Status:           models.ManualPending,
		CreatedAt:        now,
	}
	if input.Promo != nil {
		mp.PromoID = &input.Promo.ID
	}
	created, err := s.payments.Create(ctx, mp)
	if err != nil {
		return nil, fmt.Errorf("create manual payment: %w", err)
	}
	s.log.Info("manual payment submitted", "id", created.ID, "user_id", input.UserID, "plan_id", input.Plan.ID)
	return created, nil
}

// ArchiveReceipt uploads the receipt bytes and stores the resulting URL.
// Failures are logged, not fatal: the Telegram file id remains the source.
func (s *ManualPaymentService) ArchiveReceipt(ctx context.Context, paymentID int64, body io.Reader, contentType string) {
	if s.archiver == nil {
		return
	}
	url, err := s.archiver.Upload(ctx, body, contentType)
	if err != nil {
		s.log.Warn("receipt archive failed", "payment_id", paymentID, "error", err)
		return
	}
	if err := s.payments.SetReceiptURL(ctx, paymentID, url); err != nil {
		s.log.Warn("store receipt url failed", "payment_id", paymentID, "error", err)
	}
}

func (s *ManualPaymentService) ListPending(ctx context.Context) ([]models.ManualPayment, error) {
	return s.payments.ListPending(ctx)
}

func (s *ManualPaymentService) GetByID(ctx context.Context, id int64) (*models.ManualPayment, error) {
	return s.payments.GetByID(ctx, id)
}

// Approve activates access for the payment and marks it approved. The status
// flip claims the row first, conditional on it still being pending, so two
// admins cannot both approve — but a failed activation reopens the claim: the
// user has paid, and the payment must stay reviewable until access is actually
// granted.
func (s *ManualPaymentService) Approve(ctx context.Context, paymentID, adminID int64) (*ActivationResult, error) {
	mp, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("load manual payment: %w", err)
	}
	if mp == nil {
		return nil, fmt.Errorf("manual payment %d not found", paymentID)
	}
	if mp.Status != models.ManualPending {
		return nil, errAlreadyReviewed
	}

	if err := s.payments.MarkReviewed(ctx, paymentID, adminID, models.ManualApproved, s.now()); err != nil {
		return nil, err
	}

	result, err := s.activation.Activate(ctx, mp.UserID, mp.PlanID, mp.PaymentType, nil)
	if err != nil {
		if reopenErr := s.payments.Reopen(ctx, paymentID); reopenErr != nil {
			s.log.Error("reopen manual payment failed", "id", paymentID, "error", reopenErr)
		}
		return nil, fmt.Errorf("activate after approval: %w", err)
	}

	if mp.PromoID != nil {
		if err := s.promos.Redeem(ctx, *mp.PromoID, mp.UserID); err != nil {
			s.log.Error("record promo redemption failed",
				"promo_id", *mp.PromoID, "user_id", mp.UserID, "error", err)
		}
	}

	s.notify(ctx, mp.UserID, fmt.Sprintf(
		"Оплата подтверждена! Ваша ссылка для вступления: %s", result.InviteLink))
	s.log.Info("manual payment approved", "id", paymentID, "admin_id", adminID)
	return result, nil
}

// Reject marks the payment rejected and tells the user.
func (s *ManualPaymentService) Reject(ctx context.Context, paymentID, adminID int64, reason string) error {
	mp, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("load manual payment: %w", err)
	}
	if mp == nil {
		return fmt.Errorf("manual payment %d not found", paymentID)
	}
	if mp.Status != models.ManualPending {
		return errAlreadyReviewed
	}

	if err := s.payments.MarkReviewed(ctx, paymentID, adminID, models.ManualRejected, s.now()); err != nil {
		return err
	}

	text := "Оплата не подтверждена. Проверьте чек и попробуйте ещё раз."
	if reason != "" {
		text = fmt.Sprintf("Оплата не подтверждена: %s", reason)
	}
	s.notify(ctx, mp.UserID, text)
	s.log.Info("manual payment rejected", "id", paymentID, "admin_id", adminID)
	return nil
}

func (s *ManualPaymentService) notify(ctx context.Context, userID int64, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, text); err != nil {
		s.log.Warn("user notification failed", "user_id", userID, "error", err)
	}
}
