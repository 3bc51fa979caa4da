package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evelansk/grouppassbot/internal/models"
)

type PaymentMethodRepository struct {
	db *sql.DB
}

func NewPaymentMethodRepository(db *sql.DB) *PaymentMethodRepository {
	return &PaymentMethodRepository{db: db}
}

func (r *PaymentMethodRepository) ListActive(ctx context.Context) ([]models.PaymentMethod, error) {
	const query = `
SELECT id, name, type, is_active, description, details
FROM payment_methods WHERE is_active = 1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list payment methods: %w", err)
	}
	defer rows.Close()

	var list []models.PaymentMethod
	for rows.Next() {
		var m models.PaymentMethod
		if err := rows.Scan(&m.ID, &m.Name, &m.Type, &m.IsActive, &m.Description, &m.Details); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// GetManual returns the active manual-transfer method, or nil.
func (r *PaymentMethodRepository) GetManual(ctx context.Context) (*models.PaymentMethod, error) {
	const query = `
SELECT id, name, type, is_active, description, details
FROM payment_methods WHERE is_active = 1 AND type = 'manual' LIMIT 1`
	var m models.PaymentMethod
	err := r.db.QueryRowContext(ctx, query).Scan(&m.ID, &m.Name, &m.Type, &m.IsActive, &m.Description, &m.Details)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get manual payment method: %w", err)
	}
	return &m, nil
}

func (r *PaymentMethodRepository) SetActive(ctx context.Context, id int64, active bool) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE payment_methods SET is_active = ? WHERE id = ?`, active, id); err != nil {
		return fmt.Errorf("set payment method active: %w", err)
	}
	return nil
}

func (r *PaymentMethodRepository) UpdateDetails(ctx context.Context, id int64, details string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE payment_methods SET details = ? WHERE id = ?`, details, id); err != nil {
		return fmt.Errorf("update payment method details: %w", err)
	}
	return nil
}
