package notification

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/clinical-encounters/internal/auth"
)

// Repository persists notifications. Writes made with a transactional ctx
// join that transaction.
type Repository interface {
	Insert(ctx context.Context, n Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	Exists(ctx context.Context, key IdempotencyKey) (bool, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountUnread(ctx context.Context, userID string, role auth.Role) (int, error)
	List(ctx context.Context, userID string, role auth.Role, opts InboxOptions) ([]Notification, error)
}
