package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	Insert(ctx context.Context, a Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// UpdateStatus applies u only while the row is still in u.From. A row that
	// moved on in the meantime yields apperr.ErrInvalidTransition.
	UpdateStatus(ctx context.Context, u StatusUpdate) (*Appointment, error)

	List(ctx context.Context, f ListFilter) ([]Appointment, error)

	// Sweep scans, VIDEO appointments only
	FindStaleInProgress(ctx context.Context, before time.Time) ([]Appointment, error)
	FindOverdueScheduled(ctx context.Context, before time.Time) ([]Appointment, error)
}
