package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinical-encounters/internal/apperr"
	"github.com/hackgods/clinical-encounters/internal/auth"
	"github.com/hackgods/clinical-encounters/internal/metrics"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("component", "notification").Logger(),
		now:  time.Now,
	}
}

// Notify writes one notification. Called with a transactional ctx the row
// commits or rolls back with the caller's state change.
func (s *Service) Notify(ctx context.Context, n Notification) (*Notification, error) {
	if n.UserID == "" || n.Title == "" || n.Message == "" || n.Type == "" {
		return nil, fmt.Errorf("%w: notification needs user, title, message and type", apperr.ErrInvalidInput)
	}
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	n.IsRead = false

	if err := s.repo.Insert(ctx, n); err != nil {
		return nil, err
	}
	metrics.RecordNotification(string(n.Type))
	return &n, nil
}

func (s *Service) NotifyMany(ctx context.Context, ns ...Notification) error {
	for _, n := range ns {
		if _, err := s.Notify(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) Exists(ctx context.Context, key IdempotencyKey) (bool, error) {
	return s.repo.Exists(ctx, key)
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID, actor auth.Identity) error {
	if _, err := s.owned(ctx, id, actor); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor auth.Identity) error {
	if _, err := s.owned(ctx, id, actor); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) UnreadCount(ctx context.Context, userID string, role auth.Role) (int, error) {
	return s.repo.CountUnread(ctx, userID, role)
}

// Inbox lists the newest notifications addressed to userID in role.
func (s *Service) Inbox(ctx context.Context, userID string, role auth.Role, opts InboxOptions) ([]Notification, error) {
	if opts.Limit <= 0 || opts.Limit > 200 {
		opts.Limit = DefaultInboxLimit
	}
	return s.repo.List(ctx, userID, role, opts)
}

func (s *Service) owned(ctx context.Context, id uuid.UUID, actor auth.Identity) (*Notification, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != actor.UserID {
		s.log.Warn().Str("notification_id", id.String()).Str("actor", actor.UserID).Msg("notification access denied")
		return nil, fmt.Errorf("%w: notification belongs to another user", apperr.ErrForbidden)
	}
	return n, nil
}
