package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/evelansk/grouppassbot/internal/models"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Ensure records the user if unseen and refreshes the username otherwise.
func (r *UserRepository) Ensure(ctx context.Context, telegramID int64, username string) error {
	const query = `
INSERT INTO users (telegram_id, username)
VALUES (?, NULLIF(?, ''))
ON DUPLICATE KEY UPDATE username = COALESCE(NULLIF(VALUES(username), ''), username)`
	if _, err := r.db.ExecContext(ctx, query, telegramID, username); err != nil {
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

func (r *UserRepository) ListTelegramIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT telegram_id FROM users`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list telegram ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan telegram id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *UserRepository) Get(ctx context.Context, telegramID int64) (*models.User, error) {
	const query = `SELECT telegram_id, COALESCE(username, ''), joined_at FROM users WHERE telegram_id = ?`
	row := r.db.QueryRowContext(ctx, query, telegramID)
	var u models.User
	if err := row.Scan(&u.TelegramID, &u.Username, &u.JoinedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}
