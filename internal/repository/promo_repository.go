package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evelansk/grouppassbot/internal/models"
)

type PromoRepository struct {
	db *sql.DB
}

func NewPromoRepository(db *sql.DB) *PromoRepository {
	return &PromoRepository{db: db}
}

const promoColumns = `id, code, discount_percent, discount_fixed, is_active, used_count, max_uses, expires_ts, created_at`

func scanPromo(row interface{ Scan(...any) error }) (*models.PromoCode, error) {
	var promo models.PromoCode
	var maxUses sql.NullInt64
	var expiresTs sql.NullInt64
	if err := row.Scan(&promo.ID, &promo.Code, &promo.DiscountPercent, &promo.DiscountFixed, &promo.IsActive, &promo.UsedCount, &maxUses, &expiresTs, &promo.CreatedAt); err != nil {
		return nil, err
	}
	if maxUses.Valid {
		v := int(maxUses.Int64)
		promo.MaxUses = &v
	}
	if expiresTs.Valid {
		t := time.Unix(expiresTs.Int64, 0)
		promo.ExpiresAt = &t
	}
	return &promo, nil
}

func (r *PromoRepository) GetByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	const query = `SELECT ` + promoColumns + ` FROM promo_codes WHERE code = ?`
	promo, err := scanPromo(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get promo by code: %w", err)
	}
	return promo, nil
}

func (r *PromoRepository) GetByID(ctx context.Context, id int64) (*models.PromoCode, error) {
	const query = `SELECT ` + promoColumns + ` FROM promo_codes WHERE id = ?`
	promo, err := scanPromo(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get promo by id: %w", err)
	}
	return promo, nil
}

func (r *PromoRepository) List(ctx context.Context) ([]models.PromoCode, error) {
	const query = `SELECT ` + promoColumns + ` FROM promo_codes ORDER BY id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list promos: %w", err)
	}
	defer rows.Close()

	var promos []models.PromoCode
	for rows.Next() {
		promo, err := scanPromo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan promo list: %w", err)
		}
		promos = append(promos, *promo)
	}
	return promos, rows.Err()
}

func (r *PromoRepository) Create(ctx context.Context, promo *models.PromoCode) (*models.PromoCode, error) {
	const query = `
INSERT INTO promo_codes (code, discount_percent, discount_fixed, is_active, used_count, max_uses, expires_ts)
VALUES (?, ?, ?, ?, 0, ?, ?)`
	var maxUses any
	if promo.MaxUses != nil {
		maxUses = *promo.MaxUses
	}
	var expiresTs any
	if promo.ExpiresAt != nil {
		expiresTs = promo.ExpiresAt.Unix()
	}
	res, err := r.db.ExecContext(ctx, query, promo.Code, promo.DiscountPercent, promo.DiscountFixed, promo.IsActive, maxUses, expiresTs)
	if err != nil {
		return nil, fmt.Errorf("create promo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("promo last insert id: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PromoRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE promo_codes SET is_active = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, active, id); err != nil {
		return fmt.Errorf("set promo active: %w", err)
	}
	return nil
}

func (r *PromoRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM promo_codes WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete promo: %w", err)
	}
	return nil
}

func (r *PromoRepository) HasUserRedeemed(ctx context.Context, promoID, userID int64) (bool, error) {
	const query = `SELECT 1 FROM promo_usage WHERE promo_id = ? AND user_id = ?`
	row := r.db.QueryRowContext(ctx, query, promoID, userID)
	var dummy int
	if err := row.Scan(&dummy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check promo redemption: %w", err)
	}
	return true, nil
}

// RecordRedemption inserts the usage row and bumps the counter in one
// transaction. The promo row is locked so the usage limit cannot be raced
// past, and the unique (promo, user) key rejects a second redemption.
func (r *PromoRepository) RecordRedemption(ctx context.Context, promoID, userID int64, usedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var usedCount int
	var maxUses sql.NullInt64
	row := tx.QueryRowContext(ctx, `SELECT used_count, max_uses FROM promo_codes WHERE id = ? FOR UPDATE`, promoID)
	if err := row.Scan(&usedCount, &maxUses); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("promo %d not found", promoID)
		}
		return fmt.Errorf("lock promo: %w", err)
	}
	if maxUses.Valid && int64(usedCount) >= maxUses.Int64 {
		return fmt.Errorf("promo %d exhausted", promoID)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO promo_usage (promo_id, user_id, used_ts) VALUES (?, ?, ?)`, promoID, userID, usedAt.Unix()); err != nil {
		return fmt.Errorf("insert redemption: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE promo_codes SET used_count = used_count + 1 WHERE id = ?`, promoID); err != nil {
		return fmt.Errorf("increment promo uses: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit redemption tx: %w", err)
	}
	return nil
}
