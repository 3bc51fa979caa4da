package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evelansk/grouppassbot/internal/models"
)

type ManualPaymentRepository struct {
	db *sql.DB
}

func NewManualPaymentRepository(db *sql.DB) *ManualPaymentRepository {
	return &ManualPaymentRepository{db: db}
}

const manualColumns = `id, user_id, plan_id, amount_minor_units, payment_type, period_month, period_year, promo_id, COALESCE(receipt_file_id, ''), COALESCE(receipt_url, ''), COALESCE(full_name, ''), status, admin_id, created_at, reviewed_at`

func scanManual(row interface{ Scan(...any) error }) (*models.ManualPayment, error) {
	var mp models.ManualPayment
	var promoID, adminID sql.NullInt64
	var reviewedAt sql.NullTime
	if err := row.Scan(&mp.ID, &mp.UserID, &mp.PlanID, &mp.AmountMinorUnits, &mp.PaymentType, &mp.PeriodMonth, &mp.PeriodYear, &promoID, &mp.ReceiptFileID, &mp.ReceiptURL, &mp.FullName, &mp.Status, &adminID, &mp.CreatedAt, &reviewedAt); err != nil {
		return nil, err
	}
	if promoID.Valid {
		mp.PromoID = &promoID.Int64
	}
	if adminID.Valid {
		mp.AdminID = &adminID.Int64
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		mp.ReviewedAt = &t
	}
	return &mp, nil
}

func (r *ManualPaymentRepository) Create(ctx context.Context, mp *models.ManualPayment) (*models.ManualPayment, error) {
	const query = `
INSERT INTO manual_payments (user_id, plan_id, amount_minor_units, payment_type, period_month, period_year, promo_id, receipt_file_id, receipt_url, full_name, status)
VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?)`
	var promoID any
	if mp.PromoID != nil {
		promoID = *mp.PromoID
	}
	res, err := r.db.ExecContext(ctx, query, mp.UserID, mp.PlanID, mp.AmountMinorUnits, mp.PaymentType, mp.PeriodMonth, mp.PeriodYear, promoID, mp.ReceiptFileID, mp.ReceiptURL, mp.FullName, models.ManualPending)
	if err != nil {
		return nil, fmt.Errorf("create manual payment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("manual payment last insert id: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *ManualPaymentRepository) GetByID(ctx context.Context, id int64) (*models.ManualPayment, error) {
	const query = `SELECT ` + manualColumns + ` FROM manual_payments WHERE id = ?`
	mp, err := scanManual(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get manual payment: %w", err)
	}
	return mp, nil
}

func (r *ManualPaymentRepository) ListPending(ctx context.Context) ([]models.ManualPayment, error) {
	const query = `SELECT ` + manualColumns + ` FROM manual_payments WHERE status = ? ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, query, models.ManualPending)
	if err != nil {
		return nil, fmt.Errorf("list pending manual payments: %w", err)
	}
	defer rows.Close()

	var list []models.ManualPayment
	for rows.Next() {
		mp, err := scanManual(rows)
		if err != nil {
			return nil, fmt.Errorf("scan manual payment: %w", err)
		}
		list = append(list, *mp)
	}
	return list, rows.Err()
}

// MarkReviewed transitions a pending record to approved or rejected. It is
// conditional on the current status so two admins cannot both approve.
func (r *ManualPaymentRepository) MarkReviewed(ctx context.Context, id, adminID int64, status models.ManualPaymentStatus, reviewedAt time.Time) error {
	const query = `
UPDATE manual_payments SET status = ?, admin_id = ?, reviewed_at = ?
WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, query, status, adminID, reviewedAt, id, models.ManualPending)
	if err != nil {
		return fmt.Errorf("mark manual payment reviewed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("manual payment rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("manual payment %d is not pending", id)
	}
	return nil
}

// Reopen reverts an approved record back to pending. Used when activation
// fails after the approval claim, so the payment can be reviewed again.
func (r *ManualPaymentRepository) Reopen(ctx context.Context, id int64) error {
	const query = `
UPDATE manual_payments SET status = ?, admin_id = NULL, reviewed_at = NULL
WHERE id = ? AND status = ?`
	if _, err := r.db.ExecContext(ctx, query, models.ManualPending, id, models.ManualApproved); err != nil {
		return fmt.Errorf("reopen manual payment: %w", err)
	}
	return nil
}

// SetReceiptURL stores the archive location once the receipt is uploaded.
func (r *ManualPaymentRepository) SetReceiptURL(ctx context.Context, id int64, url string) error {
	const query = `UPDATE manual_payments SET receipt_url = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, url, id); err != nil {
		return fmt.Errorf("set receipt url: %w", err)
	}
	return nil
}
