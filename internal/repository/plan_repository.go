package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evelansk/grouppassbot/internal/models"
)

type PlanRepository struct {
	db *sql.DB
}

func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, title, COALESCE(description, ''), currency, price_minor_units, group_id, is_active, created_at, updated_at`

func scanPlan(row interface{ Scan(...any) error }) (*models.Plan, error) {
	var plan models.Plan
	var groupID sql.NullInt64
	if err := row.Scan(&plan.ID, &plan.Title, &plan.Description, &plan.Currency, &plan.PriceMinorUnits, &groupID, &plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
		return nil, err
	}
	if groupID.Valid {
		plan.GroupID = &groupID.Int64
	}
	return &plan, nil
}

func (r *PlanRepository) List(ctx context.Context, onlyActive bool) ([]models.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans ORDER BY id ASC`
	if onlyActive {
		query = `SELECT ` + planColumns + ` FROM plans WHERE is_active = 1 ORDER BY id ASC`
	}
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []models.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

func (r *PlanRepository) GetByID(ctx context.Context, id int64) (*models.Plan, error) {
	const query = `SELECT ` + planColumns + ` FROM plans WHERE id = ?`
	plan, err := scanPlan(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return plan, nil
}

func (r *PlanRepository) Create(ctx context.Context, plan *models.Plan) (*models.Plan, error) {
	const query = `
INSERT INTO plans (title, description, currency, price_minor_units, group_id, is_active)
VALUES (?, NULLIF(?, ''), ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, plan.Title, plan.Description, plan.Currency, plan.PriceMinorUnits, plan.GroupID, plan.IsActive)
	if err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("plan last insert id: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PlanRepository) Update(ctx context.Context, plan *models.Plan) (*models.Plan, error) {
	const query = `
UPDATE plans
SET title = ?, description = NULLIF(?, ''), currency = ?, price_minor_units = ?, group_id = ?, is_active = ?, updated_at = NOW()
WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, plan.Title, plan.Description, plan.Currency, plan.PriceMinorUnits, plan.GroupID, plan.IsActive, plan.ID); err != nil {
		return nil, fmt.Errorf("update plan: %w", err)
	}
	return r.GetByID(ctx, plan.ID)
}

func (r *PlanRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM plans WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	return nil
}

func (r *PlanRepository) ListMedia(ctx context.Context, planID int64) ([]models.PlanMedia, error) {
	const query = `SELECT id, plan_id, file_id, media_type, ord FROM plan_media WHERE plan_id = ? ORDER BY ord ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, fmt.Errorf("list plan media: %w", err)
	}
	defer rows.Close()

	var media []models.PlanMedia
	for rows.Next() {
		var m models.PlanMedia
		if err := rows.Scan(&m.ID, &m.PlanID, &m.FileID, &m.MediaType, &m.Ord); err != nil {
			return nil, fmt.Errorf("scan plan media: %w", err)
		}
		media = append(media, m)
	}
	return media, rows.Err()
}

func (r *PlanRepository) AddMedia(ctx context.Context, media *models.PlanMedia) error {
	const query = `INSERT INTO plan_media (plan_id, file_id, media_type, ord) VALUES (?, ?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, media.PlanID, media.FileID, media.MediaType, media.Ord); err != nil {
		return fmt.Errorf("add plan media: %w", err)
	}
	return nil
}
