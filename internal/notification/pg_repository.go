package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/clinical-encounters/internal/apperr"
	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/db"
)

const notificationColumns = `id, user_id, user_role, title, message, type, priority, related_id, action_url, is_read, created_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.UserRole,
		&n.Title,
		&n.Message,
		&n.Type,
		&n.Priority,
		&n.RelatedID,
		&n.ActionURL,
		&n.IsRead,
		&n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: notification", apperr.ErrNotFound)
		}
		return nil, err
	}
	return &n, nil
}

func (r *PgRepository) Insert(ctx context.Context, n Notification) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, n.ID, n.UserID, n.UserRole, n.Title, n.Message, n.Type, n.Priority,
		n.RelatedID, n.ActionURL, n.IsRead, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE id = $1
	`, id)
	return scanNotification(row)
}

func (r *PgRepository) Exists(ctx context.Context, key IdempotencyKey) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications
			WHERE related_id = $1 AND type = $2 AND title = $3
		)
	`, key.RelatedID, key.Type, key.Title).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check notification exists: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE notifications SET is_read = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: notification", apperr.ErrNotFound)
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: notification", apperr.ErrNotFound)
	}
	return nil
}

func (r *PgRepository) CountUnread(ctx context.Context, userID string, role auth.Role) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT count(*) FROM notifications
		WHERE user_id = $1 AND user_role = $2 AND NOT is_read
	`, userID, role).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

func (r *PgRepository) List(ctx context.Context, userID string, role auth.Role, opts InboxOptions) ([]Notification, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1 AND user_role = $2
		  AND ($3 = false OR NOT is_read)
		ORDER BY created_at DESC
		LIMIT $4
	`, userID, role, opts.UnreadOnly, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
