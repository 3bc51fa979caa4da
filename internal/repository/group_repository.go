package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/evelansk/grouppassbot/internal/models"
)

type GroupRepository struct {
	db *sql.DB
}

func NewGroupRepository(db *sql.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

func (r *GroupRepository) Upsert(ctx context.Context, group *models.Group) error {
	const query = `
INSERT INTO managed_groups (chat_id, title, type)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE title = VALUES(title), type = VALUES(type)`
	if _, err := r.db.ExecContext(ctx, query, group.ChatID, group.Title, group.Type); err != nil {
		return fmt.Errorf("upsert group: %w", err)
	}
	return nil
}

func (r *GroupRepository) Delete(ctx context.Context, chatID int64) error {
	const query = `DELETE FROM managed_groups WHERE chat_id = ?`
	if _, err := r.db.ExecContext(ctx, query, chatID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

func (r *GroupRepository) List(ctx context.Context) ([]models.Group, error) {
	const query = `SELECT chat_id, COALESCE(title, ''), type, is_default, added_at FROM managed_groups ORDER BY added_at ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []models.Group
	for rows.Next() {
		var g models.Group
		var isDefault int
		if err := rows.Scan(&g.ChatID, &g.Title, &g.Type, &isDefault, &g.AddedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.IsDefault = isDefault != 0
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// GetDefault returns the fallback group for plans without an explicit one, or
// nil when no default is configured.
func (r *GroupRepository) GetDefault(ctx context.Context) (*models.Group, error) {
	const query = `SELECT chat_id, COALESCE(title, ''), type, is_default, added_at FROM managed_groups WHERE is_default = 1 LIMIT 1`
	row := r.db.QueryRowContext(ctx, query)
	var g models.Group
	var isDefault int
	if err := row.Scan(&g.ChatID, &g.Title, &g.Type, &isDefault, &g.AddedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get default group: %w", err)
	}
	g.IsDefault = true
	return &g, nil
}

// SetDefault marks one group as the fallback target, clearing any previous one.
func (r *GroupRepository) SetDefault(ctx context.Context, chatID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE managed_groups SET is_default = 0`); err != nil {
		return fmt.Errorf("clear default group: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE managed_groups SET is_default = 1 WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("set default group: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("default group rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("group %d is not managed", chatID)
	}
	return tx.Commit()
}
