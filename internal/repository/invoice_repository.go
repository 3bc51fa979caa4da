package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evelansk/grouppassbot/internal/models"
)

type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Put(ctx context.Context, inv *models.Invoice) error {
	const query = `
REPLACE INTO invoices (payload, user_id, plan_id, amount_minor_units, payment_type, period_month, period_year, promo_id, renewal_end_ts)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var promoID any
	if inv.PromoID != nil {
		promoID = *inv.PromoID
	}
	var renewalEnd any
	if inv.RenewalEndTs != nil {
		renewalEnd = inv.RenewalEndTs.Unix()
	}
	if _, err := r.db.ExecContext(ctx, query, inv.Payload, inv.UserID, inv.PlanID, inv.AmountMinorUnits, inv.PaymentType, inv.PeriodMonth, inv.PeriodYear, promoID, renewalEnd); err != nil {
		return fmt.Errorf("put invoice: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) Get(ctx context.Context, payload string) (*models.Invoice, error) {
	const query = `
SELECT payload, user_id, plan_id, amount_minor_units, payment_type, period_month, period_year, promo_id, renewal_end_ts, created_at
FROM invoices WHERE payload = ?`
	row := r.db.QueryRowContext(ctx, query, payload)
	var inv models.Invoice
	var promoID sql.NullInt64
	var renewalEnd sql.NullInt64
	if err := row.Scan(&inv.Payload, &inv.UserID, &inv.PlanID, &inv.AmountMinorUnits, &inv.PaymentType, &inv.PeriodMonth, &inv.PeriodYear, &promoID, &renewalEnd, &inv.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}
	if promoID.Valid {
		inv.PromoID = &promoID.Int64
	}
	if renewalEnd.Valid {
		t := time.Unix(renewalEnd.Int64, 0)
		inv.RenewalEndTs = &t
	}
	return &inv, nil
}

func (r *InvoiceRepository) Delete(ctx context.Context, payload string) error {
	const query = `DELETE FROM invoices WHERE payload = ?`
	if _, err := r.db.ExecContext(ctx, query, payload); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}

// DeleteOlderThan clears abandoned checkouts.
func (r *InvoiceRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM invoices WHERE created_at < ?`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale invoices: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stale invoices rows affected: %w", err)
	}
	return n, nil
}
