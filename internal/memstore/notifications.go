package memstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/clinical-encounters/internal/apperr"
	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/notification"
)

// Notifications implements notification.Repository.
type Notifications struct{ s *Store }

var _ notification.Repository = (*Notifications)(nil)

func (r *Notifications) Insert(ctx context.Context, n notification.Notification) error {
	return r.s.do(ctx, func(st *state) error {
		st.notifications = append(st.notifications, n)
		return nil
	})
}

func (r *Notifications) GetByID(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	var out *notification.Notification
	err := r.s.do(ctx, func(st *state) error {
		i := indexOfNotification(st, id)
		if i < 0 {
			return fmt.Errorf("%w: notification", apperr.ErrNotFound)
		}
		n := st.notifications[i]
		out = &n
		return nil
	})
	return out, err
}

func (r *Notifications) Exists(ctx context.Context, key notification.IdempotencyKey) (bool, error) {
	var found bool
	err := r.s.do(ctx, func(st *state) error {
		for _, n := range st.notifications {
			if n.RelatedID != nil && *n.RelatedID == key.RelatedID && n.Type == key.Type && n.Title == key.Title {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *Notifications) MarkRead(ctx context.Context, id uuid.UUID) error {
	return r.s.do(ctx, func(st *state) error {
		i := indexOfNotification(st, id)
		if i < 0 {
			return fmt.Errorf("%w: notification", apperr.ErrNotFound)
		}
		st.notifications[i].IsRead = true
		return nil
	})
}

func (r *Notifications) Delete(ctx context.Context, id uuid.UUID) error {
	return r.s.do(ctx, func(st *state) error {
		i := indexOfNotification(st, id)
		if i < 0 {
			return fmt.Errorf("%w: notification", apperr.ErrNotFound)
		}
		st.notifications = append(st.notifications[:i:i], st.notifications[i+1:]...)
		return nil
	})
}

func (r *Notifications) CountUnread(ctx context.Context, userID string, role auth.Role) (int, error) {
	var count int
	err := r.s.do(ctx, func(st *state) error {
		for _, n := range st.notifications {
			if n.UserID == userID && n.UserRole == role && !n.IsRead {
				count++
			}
		}
		return nil
	})
	return count, err
}

// List returns newest first; rows inserted later win ties on CreatedAt.
func (r *Notifications) List(ctx context.Context, userID string, role auth.Role, opts notification.InboxOptions) ([]notification.Notification, error) {
	var out []notification.Notification
	err := r.s.do(ctx, func(st *state) error {
		for i := len(st.notifications) - 1; i >= 0; i-- {
			n := st.notifications[i]
			if n.UserID != userID || n.UserRole != role || (opts.UnreadOnly && n.IsRead) {
				continue
			}
			out = append(out, n)
		}
		return nil
	})
	sortNewestFirst(out, func(n notification.Notification) int64 { return n.CreatedAt.UnixNano() })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, err
}

// All returns every notification in insertion order.
func (r *Notifications) All(ctx context.Context) []notification.Notification {
	var out []notification.Notification
	_ = r.s.do(ctx, func(st *state) error {
		out = append(out, st.notifications...)
		return nil
	})
	return out
}

func indexOfNotification(st *state, id uuid.UUID) int {
	for i, n := range st.notifications {
		if n.ID == id {
			return i
		}
	}
	return -1
}
